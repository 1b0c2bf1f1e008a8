package printer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/tasklog/internal/printer"
)

func TestTimeAgo(t *testing.T) {
	now := time.Now().UTC()

	tests := map[string]struct {
		time time.Time
		exp  string
	}{
		"seconds ago": {
			time: now.Add(-30 * time.Second),
			exp:  "30 seconds ago (UTC)",
		},
		"one minute ago": {
			time: now.Add(-90 * time.Second),
			exp:  "1 minute ago (UTC)",
		},
		"minutes ago": {
			time: now.Add(-5 * time.Minute),
			exp:  "5 minutes ago (UTC)",
		},
		"hours ago": {
			time: now.Add(-3 * time.Hour),
			exp:  "3 hours ago (UTC)",
		},
		"days ago": {
			time: now.Add(-49 * time.Hour),
			exp:  "2 days ago (UTC)",
		},
		"future time": {
			time: now.Add(time.Hour),
			exp:  "in the future (UTC)",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, printer.TimeAgo(test.time))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 8, 25, 10, 30, 45, 0, time.UTC)
	assert.Equal(t, "2026-08-25 10:30:45 UTC", printer.FormatTimestamp(ts))
}
