package app

import (
	"context"
	"errors"

	"fraud-monitor/internal/projection"
	"fraud-monitor/internal/record"
	"fraud-monitor/internal/report"
)

// Export renders the snapshot view as CSV and/or PNG. Empty paths fall back to the
// configured export paths.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	csvPath, pngPath := opts.CSVPath, opts.PNGPath
	if csvPath == "" && pngPath == "" {
		csvPath, pngPath = a.Config.Export.CSVPath, a.Config.Export.PNGPath
	}
	if csvPath == "" && pngPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	view, err := a.snapshotView(ctx, 0)
	if err != nil {
		return err
	}

	records := report.Search(view.Records, opts.Search)
	a.Logger.Info().Int("visible", view.Visible).Int("exported", len(records)).Msg("exporting records")
	return a.writeExports(records, view.Series, csvPath, pngPath)
}

func (a *App) writeExports(records []record.FraudRecord, series []projection.Point, csvPath, pngPath string) error {
	if csvPath != "" {
		if err := report.WriteCSVFile(csvPath, records); err != nil {
			return err
		}
		a.Logger.Debug().Str("path", csvPath).Msg("csv written")
	}
	if pngPath != "" {
		opts := report.ChartOptions{Width: a.Config.Export.ChartWidth, Height: a.Config.Export.ChartHeight}
		if err := report.WriteChartFile(pngPath, series, opts); err != nil {
			return err
		}
		a.Logger.Debug().Str("path", pngPath).Msg("chart written")
	}
	return nil
}
