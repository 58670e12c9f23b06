package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func sampleRequest() EvaluationRequest {
	return EvaluationRequest{
		Amount:           decimal.NewFromInt(500),
		OldBalanceOrigin: decimal.NewFromInt(1000),
		NewBalanceOrigin: decimal.NewFromInt(500),
		Type:             1,
		OldBalanceDest:   decimal.Zero,
		NewBalanceDest:   decimal.NewFromInt(500),
		IP:               "1.2.3.4",
		Email:            "test@demo.com",
	}
}

func TestCommandSinkSuccess(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/fraud/check" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"score":0.8,"risk":"HIGH"}`))
	}))
	defer srv.Close()

	sink := NewCommandSink(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	ack, err := sink.Submit(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ack.Risk != "HIGH" || ack.Score == nil || *ack.Score != 0.8 {
		t.Fatalf("unexpected acknowledgement %+v", ack)
	}
	if len(ack.Raw) == 0 {
		t.Fatal("raw acknowledgement should be kept")
	}

	for _, key := range []string{"amount", "oldBalanceOrgin", "newBalanceOrig", "type", "oldBalanceDest", "newBalanceDest", "ip", "email"} {
		if _, ok := received[key]; !ok {
			t.Fatalf("request body missing %q: %v", key, received)
		}
	}
	if received["amount"] != float64(500) {
		t.Fatalf("amount should be sent as a number, got %#v", received["amount"])
	}
}

func TestCommandSinkOpaqueAcknowledgement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"queued"`))
	}))
	defer srv.Close()

	sink := NewCommandSink(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	ack, err := sink.Submit(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("non-object acknowledgement should still succeed: %v", err)
	}
	if string(ack.Raw) != `"queued"` || ack.Score != nil {
		t.Fatalf("unexpected acknowledgement %+v", ack)
	}
}

func TestCommandSinkHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"amount required"}`))
	}))
	defer srv.Close()

	sink := NewCommandSink(Options{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	_, err := sink.Submit(context.Background(), sampleRequest())

	var subErr *CommandSubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected *CommandSubmissionError, got %T %v", err, err)
	}
	if subErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", subErr.Status)
	}
}

func TestCommandSinkRejectsNegativeAmount(t *testing.T) {
	sink := NewCommandSink(Options{BaseURL: "http://127.0.0.1:1"}, noopLogger())
	req := sampleRequest()
	req.Amount = decimal.NewFromInt(-5)

	var subErr *CommandSubmissionError
	if _, err := sink.Submit(context.Background(), req); !errors.As(err, &subErr) {
		t.Fatalf("expected *CommandSubmissionError, got %v", err)
	}
}
