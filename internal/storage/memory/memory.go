package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/slok/tasklog/internal/log"
	"github.com/slok/tasklog/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	// MaxEventsPerTask bounds the retained events per task, oldest evicted
	// first. Default 1000, negative means unbounded.
	MaxEventsPerTask int
	Logger           log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.MaxEventsPerTask == 0 {
		c.MaxEventsPerTask = 1000
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.EventRepository with a
// bounded per-task buffer.
type Repository struct {
	events    map[string][]model.LogEvent
	maxEvents int
	mu        sync.RWMutex
	logger    log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		events:    make(map[string][]model.LogEvent),
		maxEvents: cfg.MaxEventsPerTask,
		logger:    cfg.Logger,
	}, nil
}

// StoreEvents appends events to their task buffers. Events at or below the
// last stored sequence and unsequenced events are ignored.
func (r *Repository) StoreEvents(ctx context.Context, events []model.LogEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ev := range events {
		if !ev.Sequenced() {
			continue
		}
		if ev.TaskID == "" {
			return fmt.Errorf("event without task id: %w", model.ErrNotValid)
		}

		stored := r.events[ev.TaskID]
		if len(stored) > 0 && ev.Sequence <= stored[len(stored)-1].Sequence {
			continue
		}
		stored = append(stored, ev)
		if r.maxEvents > 0 && len(stored) > r.maxEvents {
			stored = append([]model.LogEvent(nil), stored[len(stored)-r.maxEvents:]...)
		}
		r.events[ev.TaskID] = stored
	}

	return nil
}

// ListEvents returns stored events for a task with sequence greater than
// fromSequence, oldest first, at most limit (0 means no limit).
func (r *Repository) ListEvents(ctx context.Context, taskID string, fromSequence int64, limit int) ([]model.LogEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []model.LogEvent
	for _, ev := range r.events[taskID] {
		if ev.Sequence <= fromSequence {
			continue
		}
		result = append(result, ev)
		if limit > 0 && len(result) == limit {
			break
		}
	}

	return result, nil
}

// LastSequence returns the highest stored sequence for a task, 0 when none.
func (r *Repository) LastSequence(ctx context.Context, taskID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.events[taskID]
	if len(stored) == 0 {
		return 0, nil
	}
	return stored[len(stored)-1].Sequence, nil
}

// DeleteEvents removes all stored events for a task.
func (r *Repository) DeleteEvents(ctx context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.events, taskID)
	r.logger.Debugf("Deleted stored events for task %s", taskID)

	return nil
}
