package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/slok/tasklog/internal/model"
)

// TablePrinter prints tasks and events in a human-readable format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTaskList prints tasks in a table format.
func (t *TablePrinter) PrintTaskList(tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tCREATED")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", task.ID, task.Name, task.Status, TimeAgo(task.CreatedAt))
	}

	return nil
}

// PrintEvents prints a batch of events, one line each.
func (t *TablePrinter) PrintEvents(events []model.LogEvent) error {
	for _, ev := range events {
		if err := t.PrintEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// PrintEvent prints a single event with its timestamp and kind.
func (t *TablePrinter) PrintEvent(ev model.LogEvent) error {
	_, err := fmt.Fprintf(t.writer, "%s  %s\n", ev.ReceivedAt.UTC().Format("15:04:05"), EventText(ev))
	return err
}

// PrintNotice prints an out-of-band message.
func (t *TablePrinter) PrintNotice(msg string) error {
	_, err := fmt.Fprintf(t.writer, "-- %s\n", msg)
	return err
}

// EventText renders the kind-specific payload of an event as a single line.
func EventText(ev model.LogEvent) string {
	switch ev.Kind {
	case model.EventKindLogLine:
		return ev.Line
	case model.EventKindStatusChange:
		return fmt.Sprintf("[status] task is now %s", ev.Status)
	case model.EventKindTimeoutWarning:
		return fmt.Sprintf("[timeout warning] ~%ds remaining", ev.RemainingSeconds)
	case model.EventKindError:
		return fmt.Sprintf("[error] %s", ev.Message)
	case model.EventKindHeartbeat:
		return "[heartbeat]"
	}
	return fmt.Sprintf("[%s]", ev.Kind)
}
