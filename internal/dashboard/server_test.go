package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fraud-monitor/internal/aggregator"
	"fraud-monitor/internal/projection"
	"fraud-monitor/internal/record"
	"fraud-monitor/internal/session"
	"fraud-monitor/internal/source"
)

type wireMessage struct {
	Type  string `json:"type"`
	Frame struct {
		Seq      uint64              `json:"seq"`
		Cause    string              `json:"cause"`
		Feed     string              `json:"feed"`
		Admitted *record.FraudRecord `json:"admitted"`
		View     projection.View     `json:"view"`
	} `json:"frame"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func frameWith(seq uint64, cause session.Cause, ids ...int64) session.Frame {
	agg := aggregator.New(10)
	var last *record.FraudRecord
	for _, id := range ids {
		id := id
		rec := record.FraudRecord{ID: &id, Amount: decimal.NewFromInt(id * 100), Score: 0.9, Risk: record.RiskHigh}
		agg.Admit(rec)
		last = &rec
	}
	return session.Frame{
		Seq:      seq,
		Cause:    cause,
		View:     projection.Project(agg.State()),
		Feed:     source.StateOpen,
		Admitted: last,
		At:       time.Now(),
	}
}

func startServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Options{WSPath: "/ws"}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go s.runHub(ctx)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return s, srv
}

func TestViewEndpoint(t *testing.T) {
	s, srv := startServer(t)

	resp, err := http.Get(srv.URL + "/api/view")
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status before first frame = %d, want 503", resp.StatusCode)
	}

	s.Publish(frameWith(1, session.CauseAdmit, 1, 22))

	resp, err = http.Get(srv.URL + "/api/view?q=22")
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Feed string          `json:"feed"`
		View projection.View `json:"view"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Feed != "open" {
		t.Fatalf("feed = %q", body.Feed)
	}
	if body.View.Visible != 1 || *body.View.Records[0].ID != 22 {
		t.Fatalf("search should filter the records: %+v", body.View)
	}
	if body.View.HighRisk != 2 || body.View.Series[0].Label != projection.LabelHighRisk {
		t.Fatalf("counters must not be filtered: %+v", body.View)
	}
}

func TestRecordsCSVAndChart(t *testing.T) {
	s, srv := startServer(t)
	s.Publish(frameWith(1, session.CauseAdmit, 5))

	resp, err := http.Get(srv.URL + "/api/records.csv")
	if err != nil {
		t.Fatalf("get csv: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.HasPrefix(string(data), "ID,Amount,Score,Risk,Date\n5,500,0.9,HIGH,") {
		t.Fatalf("unexpected csv %q", data)
	}

	resp, err = http.Get(srv.URL + "/api/chart.png")
	if err != nil {
		t.Fatalf("get chart: %v", err)
	}
	data, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.Header.Get("Content-Type") != "image/png" || !strings.HasPrefix(string(data), "\x89PNG") {
		t.Fatalf("chart endpoint should serve a png, got %q", resp.Header.Get("Content-Type"))
	}
}

func TestWebSocketPushesFrames(t *testing.T) {
	s, srv := startServer(t)
	s.Publish(frameWith(1, session.CauseSeed, 1))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first wireMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if first.Type != MessageInitial || first.Frame.View.Visible != 1 {
		t.Fatalf("unexpected initial message %+v", first)
	}

	s.Publish(frameWith(2, session.CauseAdmit, 1, 2))
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read update: %v", err)
		}
		if msg.Type != MessageUpdate || msg.Frame.Admitted == nil || *msg.Frame.Admitted.ID != 2 {
			continue
		}
		if msg.Frame.Cause != "admit" || msg.Frame.View.Total != 2 {
			t.Fatalf("unexpected update %+v", msg)
		}
		break
	}
}

func TestHealth(t *testing.T) {
	_, srv := startServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["ready"] != false {
		t.Fatalf("unexpected health %v", body)
	}
}

func TestWebSocketNeverRewindsPastInitial(t *testing.T) {
	s := New(Options{WSPath: "/ws"}, zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	// Frames queue up while the hub is not yet running.
	s.Publish(frameWith(1, session.CauseAdmit, 1))
	s.Publish(frameWith(2, session.CauseAdmit, 1, 2))
	s.Publish(frameWith(3, session.CauseAdmit, 1, 2, 3))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	go s.runHub(ctx)
	s.Publish(frameWith(4, session.CauseAdmit, 1, 2, 3, 4))

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var lastSeq uint64
	var lastVisible int
	for lastSeq < 4 {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v (last seq %d)", err, lastSeq)
		}
		if msg.Frame.Seq <= lastSeq {
			t.Fatalf("%s frame seq %d after already seeing %d", msg.Type, msg.Frame.Seq, lastSeq)
		}
		if msg.Frame.View.Visible < lastVisible {
			t.Fatalf("view went from %d to %d records", lastVisible, msg.Frame.View.Visible)
		}
		lastSeq, lastVisible = msg.Frame.Seq, msg.Frame.View.Visible
	}
	if lastVisible != 4 {
		t.Fatalf("final view has %d records, want 4", lastVisible)
	}
}

func TestPublishAfterStopDoesNotQueue(t *testing.T) {
	s := New(Options{Listen: "127.0.0.1:-1"}, zerolog.Nop())
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("invalid listen address should fail")
	}
	for i := uint64(1); i <= broadcastQueue+10; i++ {
		s.Publish(frameWith(i, session.CauseAdmit, 1))
	}
	if len(s.broadcast) != 0 {
		t.Fatalf("stopped server queued %d frames", len(s.broadcast))
	}
	if frame, ok := s.latest.Frame(); !ok || frame.Seq != broadcastQueue+10 {
		t.Fatalf("latest frame not kept: %+v ok=%v", frame, ok)
	}
}

func TestNewLeavesGinModeAlone(t *testing.T) {
	New(Options{}, zerolog.Nop())
	if mode := gin.Mode(); mode != gin.TestMode {
		t.Fatalf("gin mode = %q, want %q", mode, gin.TestMode)
	}
}
