// Package sse implements the stream.Transport interface over HTTP
// Server-Sent Events.
package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/slok/tasklog/internal/log"
	"github.com/slok/tasklog/internal/model"
	"github.com/slok/tasklog/internal/stream"
)

const contentTypeEventStream = "text/event-stream"

// TransportConfig is the configuration for the SSE transport.
type TransportConfig struct {
	// ServerURL is the backend base URL, e.g. "http://localhost:8080".
	ServerURL string
	// Client is the HTTP client used for streaming requests. It must not
	// have a global timeout, streams are long-lived.
	Client *http.Client
	Logger log.Logger
}

func (c *TransportConfig) defaults() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server url is required")
	}
	if _, err := url.Parse(c.ServerURL); err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	if c.Client == nil {
		c.Client = &http.Client{}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "stream.SSETransport"})
	return nil
}

// Transport opens SSE streams against the backend task log endpoint.
type Transport struct {
	serverURL string
	client    *http.Client
	logger    log.Logger
}

// NewTransport creates a new SSE transport.
func NewTransport(cfg TransportConfig) (*Transport, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Transport{
		serverURL: strings.TrimSuffix(cfg.ServerURL, "/"),
		client:    cfg.Client,
		logger:    cfg.Logger,
	}, nil
}

// Connect opens a stream for a task. When fromSequence is greater than zero
// the server is asked to resume after it, through both the standard
// Last-Event-ID header and a from_sequence query parameter.
func (t *Transport) Connect(ctx context.Context, taskID string, fromSequence int64) (stream.EventStream, error) {
	endpoint := fmt.Sprintf("%s/api/tasks/%s/logs/stream", t.serverURL, url.PathEscape(taskID))
	if fromSequence > 0 {
		endpoint = fmt.Sprintf("%s?from_sequence=%d", endpoint, fromSequence)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", contentTypeEventStream)
	req.Header.Set("Cache-Control", "no-cache")
	if fromSequence > 0 {
		req.Header.Set("Last-Event-ID", strconv.FormatInt(fromSequence, 10))
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not connect: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected handshake status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, contentTypeEventStream) {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}

	t.logger.Debugf("Stream connected for task %s from sequence %d", taskID, fromSequence)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &eventStream{
		body:    resp.Body,
		scanner: scanner,
		logger:  t.logger,
	}, nil
}

// eventStream parses the SSE wire format into log events.
type eventStream struct {
	body      io.ReadCloser
	scanner   *bufio.Scanner
	logger    log.Logger
	closeOnce sync.Once
}

// eventPayload is the JSON payload of a streamed event. Field presence
// depends on the event kind.
type eventPayload struct {
	Line             string `json:"line"`
	Status           string `json:"status"`
	RemainingSeconds int    `json:"remainingSeconds"`
	Message          string `json:"message"`
}

// Recv reads SSE fields until a blank line dispatches a complete event.
// Malformed events (bad JSON, unknown kind) are skipped without breaking the
// stream. Returns io.EOF when the server closes.
func (s *eventStream) Recv() (model.LogEvent, error) {
	var name, id string
	var data []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Blank line dispatches the accumulated event.
		if line == "" {
			if name == "" && id == "" && len(data) == 0 {
				continue
			}
			ev, err := s.decode(name, id, data)
			name, id, data = "", "", nil
			if err != nil {
				s.logger.Warningf("Skipping malformed event: %s", err)
				continue
			}
			return ev, nil
		}

		// Comment lines keep the connection warm.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "id":
			id = value
		case "data":
			data = append(data, value)
		case "retry":
			s.logger.Debugf("Server retry hint: %sms", value)
		}
	}

	if err := s.scanner.Err(); err != nil {
		return model.LogEvent{}, fmt.Errorf("stream read: %w", err)
	}
	return model.LogEvent{}, io.EOF
}

// Close terminates the underlying response body. Any blocked Recv unblocks
// with an error.
func (s *eventStream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}

func (s *eventStream) decode(name, id string, data []string) (model.LogEvent, error) {
	kind := model.EventKind(name)
	if name == "" || name == "message" {
		kind = model.EventKindLogLine
	}
	if !model.KnownEventKind(kind) {
		return model.LogEvent{}, fmt.Errorf("unknown event kind %q", name)
	}

	var sequence int64
	if id != "" {
		seq, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return model.LogEvent{}, fmt.Errorf("invalid event id %q: %w", id, err)
		}
		sequence = seq
	}

	ev := model.LogEvent{
		Sequence:   sequence,
		Kind:       kind,
		ReceivedAt: time.Now().UTC(),
	}

	raw := strings.Join(data, "\n")
	if raw == "" {
		return ev, nil
	}

	var payload eventPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		// Log lines may come as plain text instead of JSON.
		if kind == model.EventKindLogLine {
			ev.Line = raw
			return ev, nil
		}
		return model.LogEvent{}, fmt.Errorf("invalid payload for %q event: %w", kind, err)
	}

	ev.Line = payload.Line
	ev.Status = model.TaskStatus(payload.Status)
	ev.RemainingSeconds = payload.RemainingSeconds
	ev.Message = payload.Message

	return ev, nil
}
