package printer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tasklog/internal/model"
	"github.com/slok/tasklog/internal/printer"
)

var (
	t0 = time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	testTasks = []model.Task{
		{ID: "t1", Name: "build", Status: model.TaskStatusRunning, CreatedAt: t0},
		{ID: "t2", Name: "deploy", Status: model.TaskStatusPending, CreatedAt: t0},
	}

	testEvents = []model.LogEvent{
		{TaskID: "t1", Sequence: 1, Kind: model.EventKindLogLine, Line: "building image", ReceivedAt: t0},
		{TaskID: "t1", Sequence: 2, Kind: model.EventKindStatusChange, Status: model.TaskStatusRunning, ReceivedAt: t0},
		{TaskID: "t1", Sequence: 3, Kind: model.EventKindTimeoutWarning, RemainingSeconds: 120, ReceivedAt: t0},
		{TaskID: "t1", Kind: model.EventKindError, Message: "connection lost", ReceivedAt: t0},
		{TaskID: "t1", Kind: model.EventKindHeartbeat, ReceivedAt: t0},
	}
)

func TestTablePrinter(t *testing.T) {
	t.Run("task list should render a header and one row per task", func(t *testing.T) {
		var b bytes.Buffer
		p := printer.NewTablePrinter(&b)

		require.NoError(t, p.PrintTaskList(testTasks))

		got := b.String()
		assert.Contains(t, got, "ID")
		assert.Contains(t, got, "STATUS")
		assert.Contains(t, got, "t1")
		assert.Contains(t, got, "build")
		assert.Contains(t, got, "running")
		assert.Contains(t, got, "t2")
	})

	t.Run("empty task list should print nothing", func(t *testing.T) {
		var b bytes.Buffer
		p := printer.NewTablePrinter(&b)

		require.NoError(t, p.PrintTaskList(nil))
		assert.Empty(t, b.String())
	})

	t.Run("events should render timestamp and kind specific text", func(t *testing.T) {
		var b bytes.Buffer
		p := printer.NewTablePrinter(&b)

		require.NoError(t, p.PrintEvents(testEvents))

		lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
		require.Len(t, lines, 5)
		assert.Contains(t, lines[0], "10:30:00")
		assert.Contains(t, lines[0], "building image")
		assert.Contains(t, lines[1], "[status] task is now running")
		assert.Contains(t, lines[2], "[timeout warning] ~120s remaining")
		assert.Contains(t, lines[3], "[error] connection lost")
		assert.Contains(t, lines[4], "[heartbeat]")
	})

	t.Run("notice should be rendered with a marker", func(t *testing.T) {
		var b bytes.Buffer
		p := printer.NewTablePrinter(&b)

		require.NoError(t, p.PrintNotice("reconnecting in 3s"))
		assert.Equal(t, "-- reconnecting in 3s\n", b.String())
	})
}

func TestJSONPrinter(t *testing.T) {
	t.Run("task list should render a tasks object", func(t *testing.T) {
		var b bytes.Buffer
		p := printer.NewJSONPrinter(&b)

		require.NoError(t, p.PrintTaskList(testTasks))

		got := b.String()
		assert.Contains(t, got, `"tasks"`)
		assert.Contains(t, got, `"id": "t1"`)
		assert.Contains(t, got, `"status": "running"`)
	})

	t.Run("single event should render as one compact line", func(t *testing.T) {
		var b bytes.Buffer
		p := printer.NewJSONPrinter(&b)

		require.NoError(t, p.PrintEvent(testEvents[0]))

		got := b.String()
		assert.Equal(t, 1, strings.Count(got, "\n"))
		assert.Contains(t, got, `"sequence":1`)
		assert.Contains(t, got, `"kind":"log_line"`)
		assert.Contains(t, got, `"line":"building image"`)
	})

	t.Run("empty payload fields should be omitted", func(t *testing.T) {
		var b bytes.Buffer
		p := printer.NewJSONPrinter(&b)

		require.NoError(t, p.PrintEvent(testEvents[1]))

		got := b.String()
		assert.Contains(t, got, `"status":"running"`)
		assert.NotContains(t, got, `"line"`)
		assert.NotContains(t, got, `"message"`)
		assert.NotContains(t, got, `"remaining_seconds"`)
	})

	t.Run("notice should render as a compact notice object", func(t *testing.T) {
		var b bytes.Buffer
		p := printer.NewJSONPrinter(&b)

		require.NoError(t, p.PrintNotice("reconnecting in 3s"))
		assert.Equal(t, "{\"notice\":\"reconnecting in 3s\"}\n", b.String())
	})
}

func TestRawPrinter(t *testing.T) {
	t.Run("log lines should be printed verbatim", func(t *testing.T) {
		var b bytes.Buffer
		p := printer.NewRawPrinter(&b)

		require.NoError(t, p.PrintEvents(testEvents))

		got := b.String()
		assert.Contains(t, got, "building image\n")
		assert.Contains(t, got, "# [status] task is now running\n")
		assert.Contains(t, got, "# [error] connection lost\n")
		assert.NotContains(t, got, "heartbeat")
	})

	t.Run("task list should print one id per line", func(t *testing.T) {
		var b bytes.Buffer
		p := printer.NewRawPrinter(&b)

		require.NoError(t, p.PrintTaskList(testTasks))
		assert.Equal(t, "t1\nt2\n", b.String())
	})

	t.Run("notice should be printed as a comment", func(t *testing.T) {
		var b bytes.Buffer
		p := printer.NewRawPrinter(&b)

		require.NoError(t, p.PrintNotice("connected"))
		assert.Equal(t, "# connected\n", b.String())
	})
}
