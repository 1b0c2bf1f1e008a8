package follow

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/tasklog/internal/log"
	"github.com/slok/tasklog/internal/model"
	"github.com/slok/tasklog/internal/storage"
	"github.com/slok/tasklog/internal/stream"
)

// ServiceConfig is the configuration for the follow service.
type ServiceConfig struct {
	Transport  stream.Transport
	Repository storage.EventRepository
	Logger     log.Logger

	// Stream client tuning, zero values use the stream package defaults.
	ReconnectDelay    time.Duration
	HeartbeatTimeout  time.Duration
	MaxBufferedEvents int
}

func (c *ServiceConfig) defaults() error {
	if c.Transport == nil {
		return fmt.Errorf("transport is required")
	}
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Follow"})
	return nil
}

// Service follows a task's log stream, persisting received events and
// forwarding them to the caller.
type Service struct {
	transport         stream.Transport
	repo              storage.EventRepository
	logger            log.Logger
	reconnectDelay    time.Duration
	heartbeatTimeout  time.Duration
	maxBufferedEvents int
}

// NewService creates a new follow service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		transport:         cfg.Transport,
		repo:              cfg.Repository,
		logger:            cfg.Logger,
		reconnectDelay:    cfg.ReconnectDelay,
		heartbeatTimeout:  cfg.HeartbeatTimeout,
		maxBufferedEvents: cfg.MaxBufferedEvents,
	}, nil
}

// Request contains the parameters for following a task.
type Request struct {
	TaskID string
	// FromSequence starts the stream after this sequence, 0 from the beginning.
	FromSequence int64
	// Resume starts after the last sequence already stored for the task,
	// whichever of both is higher.
	Resume bool
	// StopOnTerminal stops following once the task reports a terminal status.
	StopOnTerminal bool

	// OnEvent receives every delivered event, after it has been persisted.
	OnEvent stream.EventHandler
	// OnStateChange receives connection state transitions.
	OnStateChange stream.StateHandler
	// ReconnectNow triggers an immediate reconnection attempt on every
	// received value, bypassing the scheduled retry delay.
	ReconnectNow <-chan struct{}
}

// Run follows the task's stream until the context is cancelled or, when
// requested, the task reaches a terminal status. Transport failures are not
// errors, the stream client retries them forever.
func (s *Service) Run(ctx context.Context, req Request) error {
	if req.TaskID == "" {
		return fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}

	// Resolve the resume point.
	from := req.FromSequence
	if req.Resume {
		last, err := s.repo.LastSequence(ctx, req.TaskID)
		if err != nil {
			return fmt.Errorf("could not get last stored sequence: %w", err)
		}
		if last > from {
			from = last
		}
	}

	client, err := stream.NewClient(stream.ClientConfig{
		Transport:         s.transport,
		TaskID:            req.TaskID,
		ReconnectDelay:    s.reconnectDelay,
		HeartbeatTimeout:  s.heartbeatTimeout,
		MaxBufferedEvents: s.maxBufferedEvents,
		Logger:            s.logger,
	})
	if err != nil {
		return fmt.Errorf("could not create stream client: %w", err)
	}

	client.OnEvent(func(ev model.LogEvent) {
		if err := s.repo.StoreEvents(ctx, []model.LogEvent{ev}); err != nil {
			s.logger.Errorf("Could not store event: %s", err)
		}
		if req.OnEvent != nil {
			req.OnEvent(ev)
		}
		if req.StopOnTerminal && ev.Kind == model.EventKindStatusChange && ev.Status.Terminal() {
			s.logger.Debugf("Task reached terminal status %s, stopping", ev.Status)
			client.Disconnect()
		}
	})
	if req.OnStateChange != nil {
		client.OnStateChange(req.OnStateChange)
	}

	if err := client.Connect(ctx, from); err != nil {
		return fmt.Errorf("could not start stream: %w", err)
	}

	if req.ReconnectNow != nil {
		go func() {
			for {
				select {
				case <-client.Done():
					return
				case _, ok := <-req.ReconnectNow:
					if !ok {
						return
					}
					client.ReconnectNow()
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
		client.Disconnect()
		<-client.Done()
	case <-client.Done():
	}

	return nil
}
