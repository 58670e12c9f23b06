package app

import (
	"context"
	"fmt"
	"text/tabwriter"
)

// Stats prints lifetime statistics from the configured source.
func (a *App) Stats(ctx context.Context) error {
	fetcher, closeFetcher, err := a.statsFetcher(ctx)
	if err != nil {
		return err
	}
	defer closeFetcher()

	stats, err := fetcher.FetchStats(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Total\t%d\n", stats.Total)
	fmt.Fprintf(writer, "High risk\t%d\n", stats.HighRisk)
	fmt.Fprintf(writer, "Low risk\t%d\n", stats.LowRisk)
	fmt.Fprintf(writer, "Average score\t%.4f\n", stats.AvgScore)
	return writer.Flush()
}
