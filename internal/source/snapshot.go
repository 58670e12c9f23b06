package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"fraud-monitor/internal/record"
)

// HTTPSnapshotLoader fetches the most recent records from the record source.
type HTTPSnapshotLoader struct {
	opts   Options
	client *http.Client
	logger zerolog.Logger
}

// NewSnapshotLoader constructs the HTTP snapshot loader.
func NewSnapshotLoader(opts Options, logger zerolog.Logger) *HTTPSnapshotLoader {
	opts = opts.withDefaults()
	return &HTTPSnapshotLoader{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger.With().Str("component", "snapshot_loader").Logger(),
	}
}

// LoadSnapshot issues GET {base}/records. Every failure is a *SnapshotLoadError.
func (l *HTTPSnapshotLoader) LoadSnapshot(ctx context.Context) ([]record.FraudRecord, error) {
	url := l.opts.endpoint(l.opts.RecordsPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &SnapshotLoadError{Op: "build request", Err: err}
	}
	setCommonHeaders(req, l.opts.UserAgent, "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &SnapshotLoadError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if !statusOK(resp.StatusCode) {
		return nil, &SnapshotLoadError{Op: "request", Err: parseHTTPError(resp.StatusCode, readErrorBody(resp.Body))}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SnapshotLoadError{Op: "read body", Err: err}
	}

	records, err := record.DecodeList(payload)
	if err != nil {
		return nil, &SnapshotLoadError{Op: "decode", Err: err}
	}

	l.logger.Debug().Int("records", len(records)).Str("url", url).Msg("snapshot fetched")
	return records, nil
}

// String identifies the loader in logs.
func (l *HTTPSnapshotLoader) String() string {
	return fmt.Sprintf("http(%s)", l.opts.endpoint(l.opts.RecordsPath))
}

var _ SnapshotLoader = (*HTTPSnapshotLoader)(nil)
