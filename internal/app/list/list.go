package list

import (
	"context"
	"fmt"

	"github.com/slok/tasklog/internal/log"
	"github.com/slok/tasklog/internal/model"
)

// TaskLister lists tasks from the backend.
type TaskLister interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
}

// ServiceConfig is the configuration for the list service.
type ServiceConfig struct {
	TaskLister TaskLister
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.TaskLister == nil {
		return fmt.Errorf("task lister is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// Service lists backend tasks with optional filtering.
type Service struct {
	lister TaskLister
	logger log.Logger
}

// NewService creates a new list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		lister: cfg.TaskLister,
		logger: cfg.Logger,
	}, nil
}

// Request represents the list request parameters.
type Request struct {
	// StatusFilter is an optional filter to only show tasks with this status.
	StatusFilter *model.TaskStatus
}

// Run lists all tasks, optionally filtered by status.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Task, error) {
	s.logger.Debugf("listing tasks with filter: %v", req.StatusFilter)

	tasks, err := s.lister.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}

	if req.StatusFilter != nil {
		filtered := make([]model.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Status == *req.StatusFilter {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	s.logger.Debugf("found %d tasks", len(tasks))
	return tasks, nil
}
