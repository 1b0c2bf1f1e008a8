package model

import (
	"time"
)

// EventKind identifies the type of a streamed log event.
type EventKind string

const (
	// EventKindLogLine is a single line of task output.
	EventKindLogLine EventKind = "log_line"
	// EventKindStatusChange reports a task status transition.
	EventKindStatusChange EventKind = "status_change"
	// EventKindTimeoutWarning warns that the task is close to its deadline.
	EventKindTimeoutWarning EventKind = "timeout_warning"
	// EventKindError reports a task or transport level error.
	EventKindError EventKind = "error"
	// EventKindHeartbeat keeps the stream alive, it carries no payload.
	EventKindHeartbeat EventKind = "heartbeat"
)

// KnownEventKind reports whether the kind is one this client understands.
func KnownEventKind(k EventKind) bool {
	switch k {
	case EventKindLogLine, EventKindStatusChange, EventKindTimeoutWarning, EventKindError, EventKindHeartbeat:
		return true
	}
	return false
}

// LogEvent is a single record from a task's event stream. The payload fields
// are kind-specific: Line for log_line, Status for status_change,
// RemainingSeconds for timeout_warning and Message for error.
type LogEvent struct {
	TaskID string
	// Sequence is the server-assigned monotonically increasing position of
	// the event in the task's stream. 0 means unsequenced (heartbeats and
	// client-synthesized events), those are exempt from ordering and
	// deduplication.
	Sequence int64
	Kind     EventKind

	Line             string
	Status           TaskStatus
	RemainingSeconds int
	Message          string

	ReceivedAt time.Time
}

// Sequenced reports whether the event has a server-assigned stream position.
func (e LogEvent) Sequenced() bool { return e.Sequence > 0 }
