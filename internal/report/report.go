package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	chart "github.com/wcharczuk/go-chart/v2"

	"fraud-monitor/internal/projection"
	"fraud-monitor/internal/record"
)

var csvHeader = []string{"ID", "Amount", "Score", "Risk", "Date"}

// ChartOptions size the rendered risk chart.
type ChartOptions struct {
	Width  int
	Height int
	Title  string
}

// Search keeps records whose id or amount contains query. An empty query keeps all.
func Search(records []record.FraudRecord, query string) []record.FraudRecord {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}
	out := make([]record.FraudRecord, 0, len(records))
	for _, rec := range records {
		if strings.Contains(formatID(rec.ID), query) || strings.Contains(rec.Amount.String(), query) {
			out = append(out, rec)
		}
	}
	return out
}

// WriteCSV writes records in display order under the ID,Amount,Score,Risk,Date header.
func WriteCSV(w io.Writer, records []record.FraudRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			formatID(rec.ID),
			rec.Amount.String(),
			formatScore(rec.Score),
			string(rec.Risk),
			rec.CreatedAt,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes the CSV export to path, creating parent directories.
func WriteCSVFile(path string, records []record.FraudRecord) error {
	return writeFile(path, func(w io.Writer) error { return WriteCSV(w, records) })
}

// WriteChartPNG renders the series as a bar chart.
func WriteChartPNG(w io.Writer, series []projection.Point, opts ChartOptions) error {
	if len(series) == 0 {
		return fmt.Errorf("render chart: no series")
	}
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 480
	}
	if opts.Title == "" {
		opts.Title = "Fraud risk distribution"
	}

	bars := make([]chart.Value, 0, len(series))
	highest := 0
	for _, point := range series {
		bars = append(bars, chart.Value{Label: point.Label, Value: float64(point.Value)})
		if point.Value > highest {
			highest = point.Value
		}
	}

	graph := chart.BarChart{
		Title:      opts.Title,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Width:      opts.Width,
		Height:     opts.Height,
		BarWidth:   opts.Width / (len(bars) * 3),
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: math.Max(1, float64(highest)*1.1)},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Bars: bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// WriteChartFile renders the chart to path, creating parent directories.
func WriteChartFile(path string, series []projection.Point, opts ChartOptions) error {
	return writeFile(path, func(w io.Writer) error { return WriteChartPNG(w, series, opts) })
}

// WriteTable prints records as an aligned text table.
func WriteTable(w io.Writer, records []record.FraudRecord) error {
	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tAmount\tScore\tRisk\tCreated")
	for _, rec := range records {
		fmt.Fprintf(writer, "%s\t%s\t%.4f\t%s\t%s\n",
			formatID(rec.ID),
			rec.Amount.StringFixed(2),
			rec.Score,
			rec.Risk,
			sanitizeInline(rec.CreatedAt),
		)
	}
	return writer.Flush()
}

// FormatLine renders one admitted record for the console feed.
func FormatLine(rec record.FraudRecord) string {
	id := formatID(rec.ID)
	if id == "" {
		id = "-"
	}
	return fmt.Sprintf("%-4s id=%s amount=%s score=%.4f %s",
		rec.Risk, id, rec.Amount.StringFixed(2), rec.Score, sanitizeInline(rec.CreatedAt))
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	return strings.ReplaceAll(cleaned, "\r", " ")
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()
	return write(file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
