// Package stream implements the task log streaming client: it maintains a
// single connection to a task's event stream, delivers events to subscribers
// in strict sequence order and reconnects automatically on transport failure.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tasklog/internal/log"
	"github.com/slok/tasklog/internal/model"
)

// State represents the connection state of a stream client.
type State string

const (
	// StateIdle is the initial state, before Connect is called.
	StateIdle State = "idle"
	// StateConnecting means a connection attempt is in progress.
	StateConnecting State = "connecting"
	// StateOpen means the stream handshake succeeded and events are flowing.
	StateOpen State = "open"
	// StateReconnecting means the transport dropped and a retry is scheduled.
	StateReconnecting State = "reconnecting"
	// StateClosed means the user disconnected. Terminal.
	StateClosed State = "closed"
)

const (
	// DefaultReconnectDelay is the fixed delay between reconnection attempts.
	DefaultReconnectDelay = 3 * time.Second
	// DefaultHeartbeatTimeout is how long an open stream may stay silent
	// before the connection is considered dead.
	DefaultHeartbeatTimeout = 30 * time.Second
	// DefaultMaxBufferedEvents is how many delivered events the client retains.
	DefaultMaxBufferedEvents = 1000
)

// Transport opens event streams against the backend.
type Transport interface {
	// Connect opens a stream for a task. fromSequence is the last event
	// sequence already delivered, 0 means from the beginning.
	Connect(ctx context.Context, taskID string, fromSequence int64) (EventStream, error)
}

// EventStream is a single live stream of events.
type EventStream interface {
	// Recv blocks until the next event arrives. It returns io.EOF when the
	// server closes the stream and any other error on transport failure.
	Recv() (model.LogEvent, error)
	// Close terminates the stream. Safe to call concurrently with Recv,
	// which will then return an error.
	Close() error
}

// EventHandler receives delivered events. Handlers run synchronously on the
// receive loop and must not block on further network I/O.
type EventHandler func(ev model.LogEvent)

// StateHandler receives state transitions.
type StateHandler func(old, new State)

// ClientConfig is the configuration for a stream client.
type ClientConfig struct {
	Transport Transport
	TaskID    string

	// ReconnectDelay is the fixed wait between retries. Default 3s.
	ReconnectDelay time.Duration
	// HeartbeatTimeout drops an open stream that stays silent for this long.
	// Default 30s, negative disables.
	HeartbeatTimeout time.Duration
	// MaxBufferedEvents bounds the retained event buffer. Default 1000.
	MaxBufferedEvents int

	Logger log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.Transport == nil {
		return fmt.Errorf("transport is required")
	}
	if c.TaskID == "" {
		return fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.HeartbeatTimeout < 0 {
		c.HeartbeatTimeout = 0
	}
	if c.MaxBufferedEvents <= 0 {
		c.MaxBufferedEvents = DefaultMaxBufferedEvents
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// Client is a log stream client for a single task.
//
// A Client owns one transport connection at most. All event and state
// handlers are invoked from the receive loop goroutine (state handlers also
// from the goroutine calling Disconnect). Transport failures never surface as
// errors to subscribers, they become a reconnecting transition plus a
// synthetic error-kind event.
type Client struct {
	transport        Transport
	taskID           string
	sessionID        string
	reconnectDelay   time.Duration
	heartbeatTimeout time.Duration
	maxBuffered      int
	logger           log.Logger

	mu            sync.Mutex
	state         State
	lastSeq       int64
	buffer        []model.LogEvent
	eventHandlers []EventHandler
	stateHandlers []StateHandler
	cur           EventStream
	started       bool

	retryNowC chan struct{}
	closedC   chan struct{}
	closeOnce sync.Once
	doneC     chan struct{}
	doneOnce  sync.Once
}

// NewClient creates a new stream client for a task.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	sessionID := ulid.Make().String()

	return &Client{
		transport:        cfg.Transport,
		taskID:           cfg.TaskID,
		sessionID:        sessionID,
		reconnectDelay:   cfg.ReconnectDelay,
		heartbeatTimeout: cfg.HeartbeatTimeout,
		maxBuffered:      cfg.MaxBufferedEvents,
		logger:           cfg.Logger.WithValues(log.Kv{"svc": "stream.Client", "task-id": cfg.TaskID, "session": sessionID}),
		state:            StateIdle,
		retryNowC:        make(chan struct{}, 1),
		closedC:          make(chan struct{}),
		doneC:            make(chan struct{}),
	}, nil
}

// OnEvent registers a handler invoked once per delivered event, in strictly
// increasing sequence order. Events already delivered before a reconnect are
// never re-delivered.
func (c *Client) OnEvent(h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventHandlers = append(c.eventHandlers, h)
}

// OnStateChange registers a handler invoked on every state transition.
func (c *Client) OnStateChange(h StateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateHandlers = append(c.stateHandlers, h)
}

// Connect starts the streaming loop, resuming after fromSequence (0 streams
// from the beginning). It returns immediately, connection progress is
// observable through OnStateChange. Connection failures are not returned,
// they trigger the automatic retry cycle.
func (c *Client) Connect(ctx context.Context, fromSequence int64) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed: %w", model.ErrClosed)
	}
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("client already connected: %w", model.ErrNotValid)
	}
	c.started = true
	if fromSequence > 0 {
		c.lastSeq = fromSequence
	}
	c.mu.Unlock()

	go c.run(ctx)

	return nil
}

// Disconnect closes the client. Terminal and idempotent: the transport is
// terminated, any pending retry timer cancelled and no further transitions
// happen afterwards.
func (c *Client) Disconnect() {
	c.closeOnce.Do(func() {
		close(c.closedC)

		c.mu.Lock()
		cur := c.cur
		c.cur = nil
		old := c.state
		c.state = StateClosed
		handlers := append([]StateHandler(nil), c.stateHandlers...)
		started := c.started
		c.mu.Unlock()

		if cur != nil {
			_ = cur.Close()
		}
		if old != StateClosed {
			for _, h := range handlers {
				h(old, StateClosed)
			}
		}
		if !started {
			c.markDone()
		}
	})
}

// ReconnectNow forces a new connection attempt immediately, cancelling any
// pending scheduled retry. No-op on a closed client.
func (c *Client) ReconnectNow() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	cur := c.cur
	c.mu.Unlock()

	select {
	case c.retryNowC <- struct{}{}:
	default:
	}

	// Dropping the live stream makes the loop cycle right away.
	if cur != nil {
		_ = cur.Close()
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastSequence returns the sequence of the last delivered event.
func (c *Client) LastSequence() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeq
}

// Events returns a copy of the retained event buffer, oldest first.
func (c *Client) Events() []model.LogEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.LogEvent(nil), c.buffer...)
}

// TaskID returns the task this client streams.
func (c *Client) TaskID() string { return c.taskID }

// SessionID returns the unique id of this client instance.
func (c *Client) SessionID() string { return c.sessionID }

// Done returns a channel closed once the streaming loop has fully stopped.
func (c *Client) Done() <-chan struct{} { return c.doneC }

func (c *Client) run(ctx context.Context) {
	defer c.markDone()

	// Disconnect must abort an in-flight transport handshake too.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.closedC:
			cancel()
		case <-ctx.Done():
			c.Disconnect()
		}
	}()

	for {
		if c.stopping(ctx) {
			return
		}
		if !c.setState(StateConnecting) {
			return
		}

		es, err := c.transport.Connect(ctx, c.taskID, c.LastSequence())
		if err != nil {
			if c.stopping(ctx) {
				return
			}
			c.logger.Warningf("Connection failed: %s", err)
			c.emitTransportError(err)
			if !c.setState(StateReconnecting) {
				return
			}
			if !c.waitRetry(ctx) {
				return
			}
			continue
		}

		c.setCurrent(es)
		if !c.setState(StateOpen) {
			_ = es.Close()
			return
		}
		c.drainRetryNow()
		c.logger.Debugf("Stream open from sequence %d", c.LastSequence())

		rerr := c.receive(es)
		c.setCurrent(nil)
		_ = es.Close()

		if c.stopping(ctx) {
			return
		}
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			c.logger.Warningf("Stream dropped: %s", rerr)
			c.emitTransportError(rerr)
		} else {
			c.logger.Debugf("Stream closed by server")
		}
		if !c.setState(StateReconnecting) {
			return
		}
		if !c.waitRetry(ctx) {
			return
		}
	}
}

// receive pumps events from the stream until it fails or the user closes the
// client. A watchdog drops connections that stay silent past the heartbeat
// timeout.
func (c *Client) receive(es EventStream) error {
	var watchdog *time.Timer
	if c.heartbeatTimeout > 0 {
		watchdog = time.AfterFunc(c.heartbeatTimeout, func() {
			c.logger.Warningf("No events for %s, dropping connection", c.heartbeatTimeout)
			_ = es.Close()
		})
		defer watchdog.Stop()
	}

	for {
		ev, err := es.Recv()
		if err != nil {
			return err
		}
		if watchdog != nil {
			watchdog.Reset(c.heartbeatTimeout)
		}

		c.dispatch(ev)

		select {
		case <-c.closedC:
			return nil
		default:
		}
	}
}

// dispatch delivers an event to subscribers. Sequenced events are deduped
// against the last delivered sequence and buffered, unsequenced events
// (heartbeats, synthetic errors) pass through.
func (c *Client) dispatch(ev model.LogEvent) {
	ev.TaskID = c.taskID
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}

	c.mu.Lock()
	if ev.Sequenced() {
		if ev.Sequence <= c.lastSeq {
			c.mu.Unlock()
			c.logger.Debugf("Dropped duplicate event with sequence %d", ev.Sequence)
			return
		}
		c.lastSeq = ev.Sequence
		c.buffer = append(c.buffer, ev)
		if len(c.buffer) > c.maxBuffered {
			c.buffer = append([]model.LogEvent(nil), c.buffer[len(c.buffer)-c.maxBuffered:]...)
		}
	}
	handlers := append([]EventHandler(nil), c.eventHandlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// waitRetry waits the fixed reconnect delay. Returns false when the client
// stopped while waiting. Exactly one timer is pending at any time and it is
// cancelled on disconnect or manual reconnect.
func (c *Client) waitRetry(ctx context.Context) bool {
	t := time.NewTimer(c.reconnectDelay)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-c.retryNowC:
		c.logger.Debugf("Manual reconnect, skipping retry delay")
		return true
	case <-c.closedC:
		return false
	case <-ctx.Done():
		c.Disconnect()
		return false
	}
}

func (c *Client) emitTransportError(err error) {
	c.dispatch(model.LogEvent{
		Kind:    model.EventKindError,
		Message: fmt.Sprintf("connection lost: %s", err),
	})
}

// setState transitions the state and notifies handlers. Returns false when
// the client is already closed, closed is terminal.
func (c *Client) setState(next State) bool {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return false
	}
	if c.state == next {
		c.mu.Unlock()
		return true
	}
	old := c.state
	c.state = next
	handlers := append([]StateHandler(nil), c.stateHandlers...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(old, next)
	}
	return true
}

func (c *Client) setCurrent(es EventStream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = es
}

// stopping reports whether the client should stop, closing it first when the
// context was cancelled.
func (c *Client) stopping(ctx context.Context) bool {
	select {
	case <-c.closedC:
		return true
	default:
	}
	if ctx.Err() != nil {
		c.Disconnect()
		return true
	}
	return false
}

func (c *Client) drainRetryNow() {
	select {
	case <-c.retryNowC:
	default:
	}
}

func (c *Client) markDone() {
	c.doneOnce.Do(func() { close(c.doneC) })
}
