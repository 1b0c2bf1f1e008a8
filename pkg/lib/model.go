package lib

import (
	"time"

	"github.com/slok/tasklog/internal/model"
	"github.com/slok/tasklog/internal/stream"
)

// TaskStatus represents the lifecycle state of a backend task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Task represents a backend task. Read-only snapshot at the time of the call.
type Task struct {
	ID        string
	Name      string
	Status    TaskStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventKind identifies the type of a streamed log event.
type EventKind string

const (
	EventKindLogLine        EventKind = "log_line"
	EventKindStatusChange   EventKind = "status_change"
	EventKindTimeoutWarning EventKind = "timeout_warning"
	EventKindError          EventKind = "error"
	EventKindHeartbeat      EventKind = "heartbeat"
)

// LogEvent is a single record from a task's event stream. The payload fields
// are kind-specific: Line for log_line, Status for status_change,
// RemainingSeconds for timeout_warning and Message for error.
type LogEvent struct {
	TaskID           string
	Sequence         int64
	Kind             EventKind
	Line             string
	Status           TaskStatus
	RemainingSeconds int
	Message          string
	ReceivedAt       time.Time
}

// StreamState represents the connection state of a followed stream.
type StreamState string

const (
	StreamStateIdle         StreamState = StreamState(stream.StateIdle)
	StreamStateConnecting   StreamState = StreamState(stream.StateConnecting)
	StreamStateOpen         StreamState = StreamState(stream.StateOpen)
	StreamStateReconnecting StreamState = StreamState(stream.StateReconnecting)
	StreamStateClosed       StreamState = StreamState(stream.StateClosed)
)

func newTask(t model.Task) Task {
	return Task{
		ID:        t.ID,
		Name:      t.Name,
		Status:    TaskStatus(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func newLogEvent(ev model.LogEvent) LogEvent {
	return LogEvent{
		TaskID:           ev.TaskID,
		Sequence:         ev.Sequence,
		Kind:             EventKind(ev.Kind),
		Line:             ev.Line,
		Status:           TaskStatus(ev.Status),
		RemainingSeconds: ev.RemainingSeconds,
		Message:          ev.Message,
		ReceivedAt:       ev.ReceivedAt,
	}
}
