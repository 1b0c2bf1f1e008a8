package storage

import (
	"context"

	"github.com/slok/tasklog/internal/model"
)

// EventRepository is the interface for log event persistence. Implementations
// must keep events for a task ordered by sequence and ignore events whose
// sequence is already stored.
type EventRepository interface {
	StoreEvents(ctx context.Context, events []model.LogEvent) error
	ListEvents(ctx context.Context, taskID string, fromSequence int64, limit int) ([]model.LogEvent, error)
	LastSequence(ctx context.Context, taskID string) (int64, error)
	DeleteEvents(ctx context.Context, taskID string) error
}
