// Package streamfake provides scripted stream.Transport and
// stream.EventStream implementations for testing without a real backend.
package streamfake

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/slok/tasklog/internal/model"
	"github.com/slok/tasklog/internal/stream"
)

// ConnectCall records one call to Transport.Connect.
type ConnectCall struct {
	TaskID       string
	FromSequence int64
}

// Transport is a scripted stream.Transport. Each Connect call consumes the
// next enqueued result, an empty queue fails the attempt so the client keeps
// retrying under test control.
type Transport struct {
	mu    sync.Mutex
	queue []connectResult
	calls []ConnectCall
}

type connectResult struct {
	stream *Stream
	err    error
}

// NewTransport creates an empty scripted transport.
func NewTransport() *Transport {
	return &Transport{}
}

// EnqueueStream scripts the next Connect call to return the given stream.
func (t *Transport) EnqueueStream(s *Stream) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, connectResult{stream: s})
}

// EnqueueError scripts the next Connect call to fail.
func (t *Transport) EnqueueError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, connectResult{err: err})
}

// Connect pops the next scripted result and records the call.
func (t *Transport) Connect(ctx context.Context, taskID string, fromSequence int64) (stream.EventStream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls = append(t.calls, ConnectCall{TaskID: taskID, FromSequence: fromSequence})

	if len(t.queue) == 0 {
		return nil, fmt.Errorf("no scripted connection")
	}
	next := t.queue[0]
	t.queue = t.queue[1:]

	if next.err != nil {
		return nil, next.err
	}
	return next.stream, nil
}

// Calls returns the recorded Connect calls in order.
func (t *Transport) Calls() []ConnectCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ConnectCall(nil), t.calls...)
}

// Stream is a channel-backed fake event stream. Emit feeds events to a
// blocked Recv, End terminates it like a server close and Fail like a
// transport drop.
type Stream struct {
	results chan recvResult
	closed  chan struct{}
	once    sync.Once
}

type recvResult struct {
	ev  model.LogEvent
	err error
}

// NewStream creates a fake stream able to hold buffer results without a
// blocked reader.
func NewStream(buffer int) *Stream {
	return &Stream{
		results: make(chan recvResult, buffer),
		closed:  make(chan struct{}),
	}
}

// Emit scripts an event delivery.
func (s *Stream) Emit(ev model.LogEvent) {
	s.results <- recvResult{ev: ev}
}

// Fail scripts a transport failure.
func (s *Stream) Fail(err error) {
	s.results <- recvResult{err: err}
}

// End scripts a clean server-side close.
func (s *Stream) End() {
	s.results <- recvResult{err: io.EOF}
}

// Recv returns the next scripted result, blocking until one is available or
// the stream is closed.
func (s *Stream) Recv() (model.LogEvent, error) {
	select {
	case r := <-s.results:
		return r.ev, r.err
	case <-s.closed:
		return model.LogEvent{}, fmt.Errorf("stream closed")
	}
}

// Close unblocks any pending Recv. Idempotent.
func (s *Stream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
