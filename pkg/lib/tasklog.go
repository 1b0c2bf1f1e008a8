package lib

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/slok/tasklog/internal/app/follow"
	"github.com/slok/tasklog/internal/app/list"
	"github.com/slok/tasklog/internal/app/logs"
	"github.com/slok/tasklog/internal/log"
	"github.com/slok/tasklog/internal/model"
	"github.com/slok/tasklog/internal/storage/sqlite"
	"github.com/slok/tasklog/internal/stream"
	"github.com/slok/tasklog/internal/stream/sse"
	"github.com/slok/tasklog/internal/taskapi"
)

var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = model.ErrNotFound
	// ErrNotValid is returned on invalid input.
	ErrNotValid = model.ErrNotValid
)

const (
	defaultServerURL = "http://localhost:8080"
	defaultDataDir   = ".tasklog"
	defaultDBFile    = "tasklog.db"
)

// Config configures the SDK client.
//
// Only ServerURL is commonly set, every field has a sensible default.
type Config struct {
	// ServerURL is the task backend base URL.
	// Default: http://localhost:8080.
	ServerURL string

	// DBPath is the SQLite database path for the local event store.
	// Default: ~/.tasklog/tasklog.db.
	DBPath string

	// ReconnectDelay is the fixed wait between reconnection attempts.
	// Default: 3s.
	ReconnectDelay time.Duration

	// HeartbeatTimeout drops an open stream that stays silent for this long.
	// Default: 30s, negative disables.
	HeartbeatTimeout time.Duration

	// MaxBufferedEvents bounds the in-memory event buffer per stream.
	// Default: 1000.
	MaxBufferedEvents int

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// Transport overrides the stream transport. Default: SSE against
	// ServerURL. Mainly useful for testing.
	Transport stream.Transport
}

func (c *Config) defaults() error {
	if c.ServerURL == "" {
		c.ServerURL = defaultServerURL
	}
	if c.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DBPath = filepath.Join(home, defaultDataDir, defaultDBFile)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// Client is the main SDK entry point for following task logs programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	repo      *sqlite.Repository
	followSvc *follow.Service
	logsSvc   *logs.Service
	listSvc   *list.Service
	logger    log.Logger
}

// New creates a new SDK client backed by a SQLite event store.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create event store: %w", err)
	}

	transport := cfg.Transport
	if transport == nil {
		sseTransport, err := sse.NewTransport(sse.TransportConfig{
			ServerURL: cfg.ServerURL,
			Logger:    cfg.Logger,
		})
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("could not create transport: %w", err)
		}
		transport = sseTransport
	}

	followSvc, err := follow.NewService(follow.ServiceConfig{
		Transport:         transport,
		Repository:        repo,
		Logger:            cfg.Logger,
		ReconnectDelay:    cfg.ReconnectDelay,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
		MaxBufferedEvents: cfg.MaxBufferedEvents,
	})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("could not create follow service: %w", err)
	}

	logsSvc, err := logs.NewService(logs.ServiceConfig{
		Repository: repo,
		Logger:     cfg.Logger,
	})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("could not create logs service: %w", err)
	}

	apiClient, err := taskapi.NewClient(taskapi.ClientConfig{
		ServerURL: cfg.ServerURL,
		Logger:    cfg.Logger,
	})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("could not create API client: %w", err)
	}
	listSvc, err := list.NewService(list.ServiceConfig{
		TaskLister: apiClient,
		Logger:     cfg.Logger,
	})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("could not create list service: %w", err)
	}

	return &Client{
		repo:      repo,
		followSvc: followSvc,
		logsSvc:   logsSvc,
		listSvc:   listSvc,
		logger:    cfg.Logger,
	}, nil
}

// Close releases the client resources.
func (c *Client) Close() error {
	return c.repo.Close()
}

// FollowOpts are the options for following a task's log stream.
type FollowOpts struct {
	// FromSequence starts the stream after this sequence, 0 from the beginning.
	FromSequence int64
	// Resume starts after the last event already stored locally.
	Resume bool
	// StopOnTerminal returns once the task reports a terminal status.
	StopOnTerminal bool
	// OnEvent receives every delivered event in sequence order.
	OnEvent func(ev LogEvent)
	// OnState receives connection state transitions.
	OnState func(old, new StreamState)
}

// FollowTask follows a task's log stream until ctx is cancelled or, with
// StopOnTerminal, the task finishes. Events are persisted to the local store
// as they arrive. Transport failures are retried forever at a fixed cadence,
// they never end the follow.
func (c *Client) FollowTask(ctx context.Context, taskID string, opts FollowOpts) error {
	req := follow.Request{
		TaskID:         taskID,
		FromSequence:   opts.FromSequence,
		Resume:         opts.Resume,
		StopOnTerminal: opts.StopOnTerminal,
	}
	if opts.OnEvent != nil {
		req.OnEvent = func(ev model.LogEvent) { opts.OnEvent(newLogEvent(ev)) }
	}
	if opts.OnState != nil {
		req.OnStateChange = func(old, new stream.State) { opts.OnState(StreamState(old), StreamState(new)) }
	}

	err := c.followSvc.Run(ctx, req)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("could not follow task: %w", err)
	}
	return nil
}

// TaskLogs returns the locally stored events for a task, oldest first.
// fromSequence only returns events after it, limit 0 means no limit.
func (c *Client) TaskLogs(ctx context.Context, taskID string, fromSequence int64, limit int) ([]LogEvent, error) {
	events, err := c.logsSvc.Run(ctx, logs.Request{
		TaskID:       taskID,
		FromSequence: fromSequence,
		Limit:        limit,
	})
	if err != nil {
		return nil, fmt.Errorf("could not get task logs: %w", err)
	}

	result := make([]LogEvent, 0, len(events))
	for _, ev := range events {
		result = append(result, newLogEvent(ev))
	}
	return result, nil
}

// ListTasks returns all tasks known to the backend.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	tasks, err := c.listSvc.Run(ctx, list.Request{})
	if err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}

	result := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, newTask(t))
	}
	return result, nil
}
