package session

import (
	"sync"
	"time"

	"fraud-monitor/internal/projection"
	"fraud-monitor/internal/record"
	"fraud-monitor/internal/source"
)

// Cause names the mutation or status change behind a Frame.
type Cause string

const (
	CauseInitial Cause = "initial"
	CauseSeed    Cause = "seed"
	CauseAdmit   Cause = "admit"
	CauseFeed    Cause = "feed"
)

// Frame is what presentation adapters receive after every projection refresh.
// Seq starts at 1 and grows by one per frame within a session.
type Frame struct {
	Seq      uint64              `json:"seq"`
	Cause    Cause               `json:"cause"`
	View     projection.View     `json:"view"`
	Feed     source.State        `json:"feed"`
	Admitted *record.FraudRecord `json:"admitted,omitempty"`
	At       time.Time           `json:"at"`
}

// Publisher receives frames on the session goroutine and must not block.
type Publisher interface {
	Publish(frame Frame)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(frame Frame)

// Publish calls f(frame).
func (f PublisherFunc) Publish(frame Frame) { f(frame) }

// Fanout publishes each frame to every non-nil publisher in order.
type Fanout []Publisher

// Publish implements Publisher.
func (f Fanout) Publish(frame Frame) {
	for _, p := range f {
		if p != nil {
			p.Publish(frame)
		}
	}
}

// Latest keeps the most recent frame for readers on other goroutines.
type Latest struct {
	mu    sync.RWMutex
	frame Frame
	ok    bool
}

// Publish implements Publisher.
func (l *Latest) Publish(frame Frame) {
	l.mu.Lock()
	l.frame = frame
	l.ok = true
	l.mu.Unlock()
}

// Frame returns the last published frame, if any.
func (l *Latest) Frame() (Frame, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frame, l.ok
}

var (
	_ Publisher = Fanout(nil)
	_ Publisher = (*Latest)(nil)
	_ Publisher = PublisherFunc(nil)
)
