package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// HTTPStatsFetcher reads the record source statistics endpoint.
type HTTPStatsFetcher struct {
	opts   Options
	client *http.Client
	logger zerolog.Logger
}

// NewStatsFetcher constructs the statistics client.
func NewStatsFetcher(opts Options, logger zerolog.Logger) *HTTPStatsFetcher {
	opts = opts.withDefaults()
	return &HTTPStatsFetcher{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger.With().Str("component", "stats_fetcher").Logger(),
	}
}

// FetchStats issues GET {base}/records/stats.
func (f *HTTPStatsFetcher) FetchStats(ctx context.Context) (Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.opts.endpoint(f.opts.StatsPath), nil)
	if err != nil {
		return Stats{}, fmt.Errorf("create stats request: %w", err)
	}
	setCommonHeaders(req, f.opts.UserAgent, "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Stats{}, fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if !statusOK(resp.StatusCode) {
		return Stats{}, parseHTTPError(resp.StatusCode, readErrorBody(resp.Body))
	}

	var stats Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return Stats{}, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

var _ StatsFetcher = (*HTTPStatsFetcher)(nil)
