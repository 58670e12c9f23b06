package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// EvaluationRequest is the command body accepted by the fraud check endpoint.
type EvaluationRequest struct {
	Amount           decimal.Decimal
	OldBalanceOrigin decimal.Decimal
	NewBalanceOrigin decimal.Decimal
	Type             int
	OldBalanceDest   decimal.Decimal
	NewBalanceDest   decimal.Decimal
	IP               string
	Email            string
}

// MarshalJSON uses the field names the check endpoint expects, including its
// "oldBalanceOrgin" spelling.
func (r EvaluationRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount           json.Number `json:"amount"`
		OldBalanceOrigin json.Number `json:"oldBalanceOrgin"`
		NewBalanceOrigin json.Number `json:"newBalanceOrig"`
		Type             int         `json:"type"`
		OldBalanceDest   json.Number `json:"oldBalanceDest"`
		NewBalanceDest   json.Number `json:"newBalanceDest"`
		IP               string      `json:"ip"`
		Email            string      `json:"email"`
	}{
		Amount:           json.Number(r.Amount.String()),
		OldBalanceOrigin: json.Number(r.OldBalanceOrigin.String()),
		NewBalanceOrigin: json.Number(r.NewBalanceOrigin.String()),
		Type:             r.Type,
		OldBalanceDest:   json.Number(r.OldBalanceDest.String()),
		NewBalanceDest:   json.Number(r.NewBalanceDest.String()),
		IP:               r.IP,
		Email:            r.Email,
	})
}

// Validate rejects requests the server could never evaluate.
func (r EvaluationRequest) Validate() error {
	if r.Amount.IsNegative() {
		return errors.New("amount cannot be negative")
	}
	if r.Type < 0 {
		return errors.New("type cannot be negative")
	}
	return nil
}

// Acknowledgement is the opaque reply to a submitted evaluation. Score and Risk are
// filled when the reply carries them.
type Acknowledgement struct {
	Raw   json.RawMessage
	Score *float64
	Risk  string
}

// HTTPCommandSink posts evaluation requests to the record source.
type HTTPCommandSink struct {
	opts   Options
	client *http.Client
	logger zerolog.Logger
}

// NewCommandSink constructs the HTTP command sink.
func NewCommandSink(opts Options, logger zerolog.Logger) *HTTPCommandSink {
	opts = opts.withDefaults()
	return &HTTPCommandSink{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger.With().Str("component", "command_sink").Logger(),
	}
}

// Submit posts the request. Failures are returned as *CommandSubmissionError.
func (s *HTTPCommandSink) Submit(ctx context.Context, evalReq EvaluationRequest) (Acknowledgement, error) {
	if err := evalReq.Validate(); err != nil {
		return Acknowledgement{}, &CommandSubmissionError{Err: err}
	}

	body, err := json.Marshal(evalReq)
	if err != nil {
		return Acknowledgement{}, &CommandSubmissionError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := s.opts.endpoint(s.opts.CheckPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Acknowledgement{}, &CommandSubmissionError{Err: fmt.Errorf("create request: %w", err)}
	}
	setCommonHeaders(req, s.opts.UserAgent, "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Acknowledgement{}, &CommandSubmissionError{Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if !statusOK(resp.StatusCode) {
		return Acknowledgement{}, &CommandSubmissionError{Status: resp.StatusCode, Err: parseHTTPError(resp.StatusCode, readErrorBody(resp.Body))}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Acknowledgement{}, &CommandSubmissionError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	ack := Acknowledgement{Raw: json.RawMessage(payload)}
	var reply struct {
		Score *float64 `json:"score"`
		Risk  string   `json:"risk"`
	}
	if err := json.Unmarshal(payload, &reply); err == nil {
		ack.Score = reply.Score
		ack.Risk = reply.Risk
	}

	s.logger.Info().Str("amount", evalReq.Amount.String()).
		Int("type", evalReq.Type).
		Str("risk", ack.Risk).
		Msg("evaluation request accepted")
	return ack, nil
}

var _ CommandSink = (*HTTPCommandSink)(nil)
