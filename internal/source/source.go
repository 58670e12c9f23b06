package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"fraud-monitor/internal/record"
)

const (
	defaultBaseURL   = "http://localhost:8088/api/v1"
	defaultUserAgent = "fraudwatch/1.0"
	maxErrorBody     = 4 << 10
)

// Options parameterise the HTTP record source and command sink.
type Options struct {
	BaseURL          string
	RecordsPath      string
	StreamPath       string
	CheckPath        string
	StatsPath        string
	Timeout          time.Duration
	HandshakeTimeout time.Duration
	UserAgent        string
}

func (o Options) withDefaults() Options {
	o.BaseURL = strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if o.BaseURL == "" {
		o.BaseURL = defaultBaseURL
	}
	if o.RecordsPath == "" {
		o.RecordsPath = "/records"
	}
	if o.StreamPath == "" {
		o.StreamPath = "/records/stream"
	}
	if o.CheckPath == "" {
		o.CheckPath = "/fraud/check"
	}
	if o.StatsPath == "" {
		o.StatsPath = "/records/stats"
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = o.Timeout
	}
	if strings.TrimSpace(o.UserAgent) == "" {
		o.UserAgent = defaultUserAgent
	}
	return o
}

func (o Options) endpoint(path string) string {
	return o.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// SnapshotLoader performs the one-shot historical fetch.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) ([]record.FraudRecord, error)
}

// CommandSink accepts evaluation requests. Results only ever arrive on the live stream.
type CommandSink interface {
	Submit(ctx context.Context, req EvaluationRequest) (Acknowledgement, error)
}

// StatsFetcher retrieves server-side lifetime statistics.
type StatsFetcher interface {
	FetchStats(ctx context.Context) (Stats, error)
}

// Stats mirrors the record source statistics endpoint.
type Stats struct {
	Total    int64   `json:"total"`
	HighRisk int64   `json:"highRisk"`
	LowRisk  int64   `json:"lowRisk"`
	AvgScore float64 `json:"avgScore"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("record source error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("record source error (%d): %s", status, apiErr.Error)
		}
	}
	if trimmed := strings.TrimSpace(string(payload)); trimmed != "" {
		return fmt.Errorf("record source error (%d): %s", status, trimmed)
	}
	return fmt.Errorf("record source error (%d)", status)
}

func readErrorBody(r io.Reader) []byte {
	payload, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return payload
}

func statusOK(status int) bool {
	return status >= 200 && status < 300
}

// checkEventStream accepts only a text/event-stream response, parameters aside.
func checkEventStream(header http.Header) error {
	contentType := header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "text/event-stream" {
		return fmt.Errorf("unexpected content type %q", contentType)
	}
	return nil
}

func setCommonHeaders(req *http.Request, userAgent, accept string) {
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)
}
