package model

import (
	"time"
)

// TaskStatus represents the state of a task in the backend.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is final. No more log events are
// expected for a task once it reaches a terminal status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// Task represents a task managed by the backend. The backend owns the task
// lifecycle, this client only reads it.
type Task struct {
	ID        string
	Name      string
	Status    TaskStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
