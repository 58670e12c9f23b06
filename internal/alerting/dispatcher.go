package alerting

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"fraud-monitor/internal/session"
)

const defaultQueueSize = 32

// DispatcherOptions tune which admitted records raise alerts.
type DispatcherOptions struct {
	MinScore    float64
	Cooldown    time.Duration
	QueueSize   int
	Channels    []string
	SendTimeout time.Duration
	Now         func() time.Time
}

// Dispatcher turns admitted HIGH records into notifications. Publish runs on the
// session goroutine and only enqueues; delivery happens in Run.
type Dispatcher struct {
	notifier Notifier
	opts     DispatcherOptions
	queue    chan Notification
	dropped  atomic.Int64
	logger   zerolog.Logger

	lastSent time.Time
}

// NewDispatcher wires a notifier behind a bounded queue.
func NewDispatcher(notifier Notifier, opts DispatcherOptions, logger zerolog.Logger) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		notifier: notifier,
		opts:     opts,
		queue:    make(chan Notification, opts.QueueSize),
		logger:   logger.With().Str("component", "alert_dispatcher").Logger(),
	}
}

// Publish implements session.Publisher. Snapshot records never alert; only live
// admissions do. A full queue drops the alert.
func (d *Dispatcher) Publish(frame session.Frame) {
	if frame.Cause != session.CauseAdmit || frame.Admitted == nil {
		return
	}
	rec := *frame.Admitted
	if !rec.IsHigh() || rec.Score < d.opts.MinScore {
		return
	}

	note := NewNotification(rec, frame.View.HighRisk, frame.View.Total, frame.At, d.opts.Channels)
	select {
	case d.queue <- note:
	default:
		dropped := d.dropped.Add(1)
		d.logger.Warn().Int64("dropped", dropped).Msg("alert queue full; dropping alert")
	}
}

// Dropped reports how many alerts were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run delivers queued notifications until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case note := <-d.queue:
			d.deliver(ctx, note)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, note Notification) {
	now := d.opts.Now()
	if d.opts.Cooldown > 0 && !d.lastSent.IsZero() && now.Sub(d.lastSent) < d.opts.Cooldown {
		d.logger.Debug().Float64("score", note.Score).
			Dur("cooldown", d.opts.Cooldown).
			Msg("alert suppressed by cooldown")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()
	if err := d.notifier.Notify(sendCtx, note); err != nil {
		d.logger.Error().Err(err).Float64("score", note.Score).Msg("failed to dispatch alert")
		return
	}
	d.lastSent = now
}

var _ session.Publisher = (*Dispatcher)(nil)
