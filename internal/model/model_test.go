package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/tasklog/internal/model"
)

func TestTaskStatusTerminal(t *testing.T) {
	tests := map[string]struct {
		status      model.TaskStatus
		expTerminal bool
	}{
		"pending is not terminal":   {status: model.TaskStatusPending},
		"running is not terminal":   {status: model.TaskStatusRunning},
		"completed is terminal":     {status: model.TaskStatusCompleted, expTerminal: true},
		"failed is terminal":        {status: model.TaskStatusFailed, expTerminal: true},
		"cancelled is terminal":     {status: model.TaskStatusCancelled, expTerminal: true},
		"unknown is not terminal":   {status: model.TaskStatus("bogus")},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expTerminal, test.status.Terminal())
		})
	}
}

func TestKnownEventKind(t *testing.T) {
	for _, kind := range []model.EventKind{
		model.EventKindLogLine,
		model.EventKindStatusChange,
		model.EventKindTimeoutWarning,
		model.EventKindError,
		model.EventKindHeartbeat,
	} {
		assert.True(t, model.KnownEventKind(kind), string(kind))
	}
	assert.False(t, model.KnownEventKind(model.EventKind("bogus")))
}

func TestLogEventSequenced(t *testing.T) {
	assert.True(t, model.LogEvent{Sequence: 1}.Sequenced())
	assert.False(t, model.LogEvent{}.Sequenced())
	assert.False(t, model.LogEvent{Sequence: -1}.Sequenced())
}
