package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/tasklog/internal/model"
)

// JSONPrinter prints tasks and events in JSON format. Live events are
// printed as one JSON object per line so the output can be piped.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// taskItem represents a task in the list output.
type taskItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// eventItem represents a single log event output. Payload fields are
// omitted when empty so each kind only shows its own data.
type eventItem struct {
	TaskID           string    `json:"task_id"`
	Sequence         int64     `json:"sequence,omitempty"`
	Kind             string    `json:"kind"`
	Line             string    `json:"line,omitempty"`
	Status           string    `json:"status,omitempty"`
	RemainingSeconds int       `json:"remaining_seconds,omitempty"`
	Message          string    `json:"message,omitempty"`
	ReceivedAt       time.Time `json:"received_at"`
}

// noticeOutput represents an out-of-band message output.
type noticeOutput struct {
	Notice string `json:"notice"`
}

func newEventItem(ev model.LogEvent) eventItem {
	return eventItem{
		TaskID:           ev.TaskID,
		Sequence:         ev.Sequence,
		Kind:             string(ev.Kind),
		Line:             ev.Line,
		Status:           string(ev.Status),
		RemainingSeconds: ev.RemainingSeconds,
		Message:          ev.Message,
		ReceivedAt:       ev.ReceivedAt,
	}
}

// PrintTaskList prints tasks as a JSON object.
func (j *JSONPrinter) PrintTaskList(tasks []model.Task) error {
	items := make([]taskItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskItem{
			ID:        t.ID,
			Name:      t.Name,
			Status:    string(t.Status),
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		})
	}

	return j.encode(map[string]interface{}{"tasks": items})
}

// PrintEvents prints a batch of events as a JSON array.
func (j *JSONPrinter) PrintEvents(events []model.LogEvent) error {
	items := make([]eventItem, 0, len(events))
	for _, ev := range events {
		items = append(items, newEventItem(ev))
	}
	return j.encode(map[string]interface{}{"events": items})
}

// PrintEvent prints a single event as one compact JSON line.
func (j *JSONPrinter) PrintEvent(ev model.LogEvent) error {
	return j.encodeLine(newEventItem(ev))
}

// PrintNotice prints an out-of-band message as one compact JSON line.
func (j *JSONPrinter) PrintNotice(msg string) error {
	return j.encodeLine(noticeOutput{Notice: msg})
}

func (j *JSONPrinter) encode(v interface{}) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (j *JSONPrinter) encodeLine(v interface{}) error {
	return json.NewEncoder(j.writer).Encode(v)
}
