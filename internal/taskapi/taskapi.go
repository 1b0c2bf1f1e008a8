// Package taskapi is a thin read-only client for the task backend REST API.
// The backend owns the task lifecycle, this client only lists and inspects.
package taskapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slok/tasklog/internal/log"
	"github.com/slok/tasklog/internal/model"
)

// ClientConfig is the configuration for the task API client.
type ClientConfig struct {
	// ServerURL is the backend base URL, e.g. "http://localhost:8080".
	ServerURL string
	Client    *http.Client
	Logger    log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server url is required")
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "taskapi.Client"})
	return nil
}

// Client talks to the task backend REST API.
type Client struct {
	serverURL string
	client    *http.Client
	logger    log.Logger
}

// NewClient creates a new task API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		serverURL: strings.TrimSuffix(cfg.ServerURL, "/"),
		client:    cfg.Client,
		logger:    cfg.Logger,
	}, nil
}

// taskJSON is the backend wire representation of a task.
type taskJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t taskJSON) toModel() model.Task {
	return model.Task{
		ID:        t.ID,
		Name:      t.Name,
		Status:    model.TaskStatus(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// ListTasks returns all tasks known to the backend.
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var resp struct {
		Tasks []taskJSON `json:"tasks"`
	}
	if err := c.get(ctx, c.serverURL+"/api/tasks", &resp); err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		tasks = append(tasks, t.toModel())
	}

	c.logger.Debugf("Listed %d tasks", len(tasks))
	return tasks, nil
}

// GetTask returns a single task by id.
func (c *Client) GetTask(ctx context.Context, id string) (*model.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}

	var t taskJSON
	err := c.get(ctx, fmt.Sprintf("%s/api/tasks/%s", c.serverURL, url.PathEscape(id)), &t)
	if err != nil {
		return nil, fmt.Errorf("could not get task %s: %w", id, err)
	}

	task := t.toModel()
	return &task, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}

	return nil
}
