package printer

import "github.com/slok/tasklog/internal/model"

// Printer knows how to print tasks and log events in different formats.
type Printer interface {
	PrintTaskList(tasks []model.Task) error
	PrintEvents(events []model.LogEvent) error
	PrintEvent(ev model.LogEvent) error
	// PrintNotice prints an out-of-band message (e.g. connection state
	// changes while following a stream).
	PrintNotice(msg string) error
}
