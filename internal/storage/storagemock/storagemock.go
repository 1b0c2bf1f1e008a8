// Package storagemock provides testify mocks for the storage interfaces.
package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/tasklog/internal/model"
)

// MockEventRepository is a mock of storage.EventRepository.
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) StoreEvents(ctx context.Context, events []model.LogEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockEventRepository) ListEvents(ctx context.Context, taskID string, fromSequence int64, limit int) ([]model.LogEvent, error) {
	args := m.Called(ctx, taskID, fromSequence, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LogEvent), args.Error(1)
}

func (m *MockEventRepository) LastSequence(ctx context.Context, taskID string) (int64, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEventRepository) DeleteEvents(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}
