package printer

import (
	"fmt"
	"io"

	"github.com/slok/tasklog/internal/model"
)

// RawPrinter prints log lines verbatim so the output can be piped like a
// regular log file. Non-line events and notices are prefixed with '#'.
type RawPrinter struct {
	writer io.Writer
}

// NewRawPrinter creates a new raw printer.
func NewRawPrinter(w io.Writer) *RawPrinter {
	return &RawPrinter{writer: w}
}

// PrintTaskList prints one task id per line.
func (r *RawPrinter) PrintTaskList(tasks []model.Task) error {
	for _, t := range tasks {
		if _, err := fmt.Fprintln(r.writer, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// PrintEvents prints a batch of events.
func (r *RawPrinter) PrintEvents(events []model.LogEvent) error {
	for _, ev := range events {
		if err := r.PrintEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// PrintEvent prints a log line verbatim, any other kind as a '#' comment.
func (r *RawPrinter) PrintEvent(ev model.LogEvent) error {
	if ev.Kind == model.EventKindLogLine {
		_, err := fmt.Fprintln(r.writer, ev.Line)
		return err
	}
	if ev.Kind == model.EventKindHeartbeat {
		return nil
	}
	_, err := fmt.Fprintf(r.writer, "# %s\n", EventText(ev))
	return err
}

// PrintNotice prints an out-of-band message as a '#' comment.
func (r *RawPrinter) PrintNotice(msg string) error {
	_, err := fmt.Fprintf(r.writer, "# %s\n", msg)
	return err
}
