package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// BackendTask is a task as exposed by the fake backend REST API.
type BackendTask struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SSEEvent is a single scripted server-sent event.
type SSEEvent struct {
	Seq  int64
	Kind string
	Data string
}

// LogLine builds a scripted log_line event.
func LogLine(seq int64, line string) SSEEvent {
	return SSEEvent{Seq: seq, Kind: "log_line", Data: fmt.Sprintf(`{"line":%q}`, line)}
}

// StatusChange builds a scripted status_change event.
func StatusChange(seq int64, status string) SSEEvent {
	return SSEEvent{Seq: seq, Kind: "status_change", Data: fmt.Sprintf(`{"status":%q}`, status)}
}

// Backend is a fake task backend serving the REST and SSE endpoints the
// client talks to. Stream contents are scripted per connection: each connect
// for a task consumes the next batch, writes it and closes the connection so
// the client's reconnect logic kicks in.
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	tasks    []BackendTask
	batches  map[string][][]SSEEvent
	connects map[string][]string
}

// NewBackend starts a fake backend, stopped on test cleanup.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		batches:  map[string][][]SSEEvent{},
		connects: map[string][]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks", b.handleListTasks)
	mux.HandleFunc("/api/tasks/", b.handleTask)

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)

	return b
}

// AddTask registers a task in the backend.
func (b *Backend) AddTask(task BackendTask) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append(b.tasks, task)
}

// ScriptStream appends a batch of events served by the next stream connection
// for the task.
func (b *Backend) ScriptStream(taskID string, events ...SSEEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches[taskID] = append(b.batches[taskID], events)
}

// StreamConnects returns the from_sequence query values of the recorded
// stream connections for a task, in order. Empty string means none was sent.
func (b *Backend) StreamConnects(taskID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.connects[taskID]...)
}

func (b *Backend) handleListTasks(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	tasks := append([]BackendTask(nil), b.tasks...)
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"tasks": tasks})
}

func (b *Backend) handleTask(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")

	if taskID, ok := strings.CutSuffix(rest, "/logs/stream"); ok {
		b.handleStream(w, r, taskID)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, task := range b.tasks {
		if task.ID == rest {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(task)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (b *Backend) handleStream(w http.ResponseWriter, r *http.Request, taskID string) {
	b.mu.Lock()
	b.connects[taskID] = append(b.connects[taskID], r.URL.Query().Get("from_sequence"))

	known := false
	for _, task := range b.tasks {
		if task.ID == taskID {
			known = true
			break
		}
	}
	if !known {
		b.mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var batch []SSEEvent
	if len(b.batches[taskID]) > 0 {
		batch = b.batches[taskID][0]
		b.batches[taskID] = b.batches[taskID][1:]
	}
	b.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)
	flusher.Flush()

	for _, ev := range batch {
		if ev.Seq > 0 {
			fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", ev.Kind, ev.Seq, ev.Data)
		} else {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, ev.Data)
		}
		flusher.Flush()
	}
	// Returning closes the connection, an exhausted script behaves like a
	// flaky backend dropping the stream.
}
