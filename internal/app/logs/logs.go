package logs

import (
	"context"
	"fmt"

	"github.com/slok/tasklog/internal/log"
	"github.com/slok/tasklog/internal/model"
	"github.com/slok/tasklog/internal/storage"
)

// ServiceConfig is the configuration for the logs service.
type ServiceConfig struct {
	Repository storage.EventRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Logs"})
	return nil
}

// Service returns the stored log history of a task.
type Service struct {
	repo   storage.EventRepository
	logger log.Logger
}

// NewService creates a new logs service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request contains the parameters for retrieving stored logs.
type Request struct {
	TaskID string
	// FromSequence only returns events after this sequence.
	FromSequence int64
	// Limit bounds the number of returned events, 0 means no limit.
	Limit int
}

// Run returns the stored events for a task, oldest first.
func (s *Service) Run(ctx context.Context, req Request) ([]model.LogEvent, error) {
	if req.TaskID == "" {
		return nil, fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}

	events, err := s.repo.ListEvents(ctx, req.TaskID, req.FromSequence, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("could not list events: %w", err)
	}

	s.logger.Debugf("Found %d stored events for task %s", len(events), req.TaskID)
	return events, nil
}
