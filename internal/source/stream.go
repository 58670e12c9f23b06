package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"fraud-monitor/internal/record"
)

// State is the lifecycle of a live subscription.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further events can follow.
func (s State) Terminal() bool {
	return s == StateError || s == StateClosed
}

// EventKind distinguishes what a stream Event carries.
type EventKind int

const (
	EventOpen EventKind = iota + 1
	EventRecord
	EventError
)

// Event is one item on a subscription channel: the handshake completing, a decoded
// record, or the terminal fault.
type Event struct {
	Kind   EventKind
	Record record.FraudRecord
	Err    error
}

// Connector opens live subscriptions against the record stream endpoint.
type Connector struct {
	opts   Options
	client *http.Client
	logger zerolog.Logger
}

// NewConnector builds a connector. The HTTP client has no overall timeout because the
// response body stays open for the session; only the handshake is bounded.
func NewConnector(opts Options, logger zerolog.Logger) *Connector {
	opts = opts.withDefaults()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = opts.HandshakeTimeout

	return &Connector{
		opts:   opts,
		client: &http.Client{Transport: transport},
		logger: logger.With().Str("component", "stream_connector").Logger(),
	}
}

// Open returns a subscription in the Connecting state. Nothing is dialled until a
// consumer calls Events.
func (c *Connector) Open() *Subscription {
	return &Subscription{
		connector: c,
		url:       c.opts.endpoint(c.opts.StreamPath),
		state:     StateConnecting,
		events:    make(chan Event),
		done:      make(chan struct{}),
	}
}

// Subscription is one logical live session with the record stream.
type Subscription struct {
	connector *Connector
	url       string
	events    chan Event
	done      chan struct{}

	startOnce   sync.Once
	closeOnce   sync.Once
	releaseOnce sync.Once

	mu     sync.Mutex
	state  State
	err    error
	cancel context.CancelFunc
	body   io.ReadCloser
}

// Events attaches the consumer and starts the producer on first call. The channel is
// unbuffered, preserves transport order and is closed once the subscription reaches a
// terminal state. Later calls return the same channel.
func (s *Subscription) Events(ctx context.Context) <-chan Event {
	s.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.cancel = cancel
		s.mu.Unlock()
		go s.run(runCtx)
	})
	return s.events
}

// State returns the current lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the *StreamTransportError that ended the subscription, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close tears the subscription down and waits for the producer to exit. It is safe
// to call in any state and more than once; the connection is released exactly once.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.startOnce.Do(func() {
			close(s.events)
			close(s.done)
		})

		s.mu.Lock()
		if !s.state.Terminal() {
			s.state = StateClosed
		}
		cancel := s.cancel
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		<-s.done
		s.release()
	})
	return nil
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)
	defer s.release()

	logger := s.connector.logger

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		s.fail(ctx, &StreamTransportError{Op: "build request", Err: err})
		return
	}
	setCommonHeaders(req, s.connector.opts.UserAgent, "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.connector.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.fail(ctx, &StreamTransportError{Op: "handshake", Err: err})
		return
	}

	s.mu.Lock()
	s.body = resp.Body
	s.mu.Unlock()

	if !statusOK(resp.StatusCode) {
		s.fail(ctx, &StreamTransportError{Op: "handshake", Err: parseHTTPError(resp.StatusCode, readErrorBody(resp.Body))})
		return
	}
	if err := checkEventStream(resp.Header); err != nil {
		s.fail(ctx, &StreamTransportError{Op: "handshake", Err: err})
		return
	}

	if !s.transition(StateOpen) {
		return
	}
	logger.Info().Str("url", s.url).Msg("live stream open")
	if !s.emit(ctx, Event{Kind: EventOpen}) {
		return
	}

	reader := newEventReader(resp.Body)
	for {
		payload, err := reader.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = errors.New("closed by server")
			}
			s.fail(ctx, &StreamTransportError{Op: "read", Err: err})
			return
		}

		rec, err := record.Decode(payload)
		if err != nil {
			s.fail(ctx, &StreamTransportError{Op: "decode", Err: err})
			return
		}
		if !s.emit(ctx, Event{Kind: EventRecord, Record: rec}) {
			return
		}
	}
}

// transition moves a non-terminal subscription to next; it reports false once the
// subscription has already been closed or failed.
func (s *Subscription) transition(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return false
	}
	s.state = next
	return true
}

func (s *Subscription) fail(ctx context.Context, err error) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateError
	s.err = err
	s.mu.Unlock()

	s.connector.logger.Warn().Err(err).Str("url", s.url).Msg("live stream failed")
	s.emit(ctx, Event{Kind: EventError, Err: err})
}

func (s *Subscription) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Subscription) release() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		body := s.body
		s.mu.Unlock()
		if body != nil {
			_ = body.Close()
		}
	})
}
