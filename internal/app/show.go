package app

import (
	"context"
	"errors"
	"fmt"

	"fraud-monitor/internal/aggregator"
	"fraud-monitor/internal/projection"
	"fraud-monitor/internal/report"
)

// Show prints the snapshot view once, optionally narrowed by a search term.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	view, err := a.snapshotView(ctx, opts.Limit)
	if err != nil {
		return err
	}

	records := report.Search(view.Records, opts.Search)
	fmt.Fprintf(a.Out, "records: %d shown of %d visible (high=%d low=%d)\n",
		len(records), view.Visible, view.HighRisk, view.LowRisk)
	if len(records) == 0 {
		fmt.Fprintln(a.Out, "no records found")
		return nil
	}
	return report.WriteTable(a.Out, records)
}

// snapshotView loads the snapshot through the configured source and projects it the
// same way a live session would right after seeding.
func (a *App) snapshotView(ctx context.Context, capacity int) (projection.View, error) {
	loader, closeLoader, err := a.snapshotLoader(ctx)
	if err != nil {
		return projection.View{}, err
	}
	defer closeLoader()
	if loader == nil {
		return projection.View{}, errors.New("monitor.snapshot_source is none; nothing to show")
	}

	records, err := loader.LoadSnapshot(ctx)
	if err != nil {
		return projection.View{}, err
	}

	agg := aggregator.New(a.Config.ResolveCapacity(capacity))
	if err := agg.Seed(records); err != nil {
		return projection.View{}, err
	}
	return projection.Project(agg.State()), nil
}
