package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"fraud-monitor/internal/aggregator"
	"fraud-monitor/internal/projection"
	"fraud-monitor/internal/record"
	"fraud-monitor/internal/source"
)

// Stream is the live half of the record source as seen by a session.
type Stream interface {
	Events(ctx context.Context) <-chan source.Event
	Close() error
}

// OpenFunc creates a fresh, not yet started stream.
type OpenFunc func() Stream

// ConnectorOpener adapts a source.Connector to an OpenFunc.
func ConnectorOpener(c *source.Connector) OpenFunc {
	return func() Stream { return c.Open() }
}

// Options wire a Controller.
type Options struct {
	Capacity   int
	Loader     source.SnapshotLoader
	OpenStream OpenFunc
	Publisher  Publisher
	Now        func() time.Time
}

// Controller runs one monitoring session: snapshot, then live stream, until torn down.
type Controller struct {
	capacity   int
	loader     source.SnapshotLoader
	openStream OpenFunc
	publisher  Publisher
	now        func() time.Time
	logger     zerolog.Logger
}

// New constructs a session controller.
func New(opts Options, logger zerolog.Logger) *Controller {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = Fanout(nil)
	}
	return &Controller{
		capacity:   opts.Capacity,
		loader:     opts.Loader,
		openStream: opts.OpenStream,
		publisher:  publisher,
		now:        now,
		logger:     logger.With().Str("component", "session").Logger(),
	}
}

// Run blocks until ctx is cancelled. All aggregate mutation happens on the calling
// goroutine. Snapshot and stream failures are logged and published, never returned;
// the only error is a missing stream opener.
func (c *Controller) Run(ctx context.Context) error {
	if c.openStream == nil {
		return errors.New("session: stream opener not configured")
	}

	agg := aggregator.New(c.capacity)
	feed := source.StateConnecting
	var seq uint64
	publish := func(cause Cause, admitted *record.FraudRecord) {
		seq++
		c.publisher.Publish(Frame{
			Seq:      seq,
			Cause:    cause,
			View:     projection.Project(agg.State()),
			Feed:     feed,
			Admitted: admitted,
			At:       c.now(),
		})
	}

	publish(CauseInitial, nil)

	if c.loader != nil {
		records, err := c.loader.LoadSnapshot(ctx)
		switch {
		case err == nil:
			if seedErr := agg.Seed(records); seedErr != nil {
				c.logger.Error().Err(seedErr).Msg("seed rejected")
			} else {
				state := agg.State()
				c.logger.Info().Int("records", len(records)).
					Int("high_risk", state.HighRisk).
					Int("low_risk", state.LowRisk).
					Msg("snapshot loaded")
				publish(CauseSeed, nil)
			}
		case ctx.Err() != nil:
			c.logger.Info().Msg("session torn down during snapshot load")
			return nil
		default:
			c.logger.Error().Err(err).Msg("snapshot load failed; continuing with live stream")
		}
	}

	stream := c.openStream()
	defer func() {
		if err := stream.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("close live stream")
		}
		c.logger.Info().Msg("live stream released")
	}()

	events := stream.Events(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				// Producer finished; keep the session (and its last view) alive until teardown.
				events = nil
				continue
			}
			switch ev.Kind {
			case source.EventOpen:
				feed = source.StateOpen
				publish(CauseFeed, nil)
			case source.EventRecord:
				rec := ev.Record
				agg.Admit(rec)
				c.logger.Debug().Str("risk", string(rec.Risk)).
					Float64("score", rec.Score).
					Msg("record admitted")
				publish(CauseAdmit, &rec)
			case source.EventError:
				feed = source.StateError
				c.logger.Error().Err(ev.Err).Msg("live stream stopped; feed is stalled")
				publish(CauseFeed, nil)
			}
		}
	}
}
