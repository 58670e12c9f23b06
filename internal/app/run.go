package app

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"fraud-monitor/internal/alerting"
	"fraud-monitor/internal/dashboard"
	"fraud-monitor/internal/report"
	"fraud-monitor/internal/scheduler"
	"fraud-monitor/internal/session"
	"fraud-monitor/internal/source"
)

// Run executes the live monitoring session until interrupted.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loader, closeLoader, err := a.snapshotLoader(ctx)
	if err != nil {
		return err
	}
	defer closeLoader()

	latest := &session.Latest{}
	publishers := session.Fanout{latest}
	if !opts.Quiet {
		publishers = append(publishers, newFeedPrinter(a.Out))
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.Config.Alerting.Enabled {
		if notifier := a.newNotifier(); notifier != nil {
			dispatcher := alerting.NewDispatcher(notifier, alerting.DispatcherOptions{
				MinScore:  a.Config.Alerting.MinScore,
				Cooldown:  a.Config.Alerting.Cooldown,
				QueueSize: a.Config.Alerting.QueueSize,
				Channels:  a.Config.Alerting.Channels,
			}, a.Logger)
			publishers = append(publishers, dispatcher)
			g.Go(func() error { return dispatcher.Run(gctx) })
		} else {
			a.Logger.Warn().Msg("alerting enabled but no channel configured; alerts disabled")
		}
	}

	if a.Config.Dashboard.Enabled {
		if a.Config.Logging.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		dash := dashboard.New(dashboard.Options{
			Listen:      a.Config.Dashboard.Listen,
			WSPath:      a.Config.Dashboard.WSPath,
			ChartWidth:  a.Config.Export.ChartWidth,
			ChartHeight: a.Config.Export.ChartHeight,
		}, a.Logger)
		publishers = append(publishers, dash)
		// Dashboard failures are logged only; the session keeps running.
		g.Go(func() error {
			if err := dash.Run(gctx); err != nil {
				a.Logger.Error().Err(err).Str("listen", a.Config.Dashboard.Listen).
					Msg("dashboard stopped; monitoring continues without it")
			}
			return nil
		})
	}

	if a.Config.Export.Interval > 0 {
		sched, err := scheduler.New(scheduler.Options{
			Interval: a.Config.Export.Interval,
			Align:    a.Config.Export.AlignToInterval,
			Name:     "export",
		}, a.Logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return sched.Run(gctx, a.exportLatest(latest)) })
	}

	ctrl := session.New(session.Options{
		Capacity:   a.Config.ResolveCapacity(opts.Capacity),
		Loader:     loader,
		OpenStream: session.ConnectorOpener(source.NewConnector(a.sourceOptions(), a.Logger)),
		Publisher:  publishers,
	}, a.Logger)

	a.Logger.Info().Str("source", a.Config.Source.BaseURL).
		Str("snapshot_source", a.Config.Monitor.SnapshotSource).
		Msg("starting monitoring session")
	g.Go(func() error {
		defer cancel()
		return ctrl.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		a.Logger.Error().Err(err).Msg("monitoring session terminated with error")
		return err
	}
	a.Logger.Info().Msg("monitoring session stopped")
	return nil
}

// exportLatest writes the most recent view on every scheduler tick.
func (a *App) exportLatest(latest *session.Latest) scheduler.TickFunc {
	return func(ctx context.Context, slot time.Time) error {
		frame, ok := latest.Frame()
		if !ok {
			return nil
		}
		return a.writeExports(frame.View.Records, frame.View.Series, a.Config.Export.CSVPath, a.Config.Export.PNGPath)
	}
}

// feedPrinter renders frames as console lines.
type feedPrinter struct {
	out io.Writer
}

func newFeedPrinter(out io.Writer) *feedPrinter {
	return &feedPrinter{out: out}
}

func (p *feedPrinter) Publish(frame session.Frame) {
	view := frame.View
	switch frame.Cause {
	case session.CauseSeed:
		fmt.Fprintf(p.out, "snapshot: %d records (high=%d low=%d)\n", view.Visible, view.HighRisk, view.LowRisk)
	case session.CauseFeed:
		if frame.Feed == source.StateError {
			fmt.Fprintln(p.out, "feed: error; live updates stalled")
			return
		}
		fmt.Fprintf(p.out, "feed: %s\n", frame.Feed)
	case session.CauseAdmit:
		if frame.Admitted == nil {
			return
		}
		fmt.Fprintf(p.out, "%s  [high=%d low=%d]\n", report.FormatLine(*frame.Admitted), view.HighRisk, view.LowRisk)
	}
}

var _ session.Publisher = (*feedPrinter)(nil)
