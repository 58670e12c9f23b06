package aggregator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"fraud-monitor/internal/record"
)

func newRecord(id int64, risk record.Risk) record.FraudRecord {
	return record.FraudRecord{ID: &id, Amount: decimal.NewFromInt(id), Score: 0.5, Risk: risk}
}

func ids(records []record.FraudRecord) []int64 {
	out := make([]int64, len(records))
	for i, rec := range records {
		out[i] = *rec.ID
	}
	return out
}

func TestAdmitNeverExceedsCapacity(t *testing.T) {
	agg := New(DefaultCapacity)
	for i := int64(1); i <= 500; i++ {
		risk := record.RiskLow
		if i%3 == 0 {
			risk = record.RiskHigh
		}
		agg.Admit(newRecord(i, risk))
		if n := len(agg.State().Records); n > DefaultCapacity {
			t.Fatalf("after %d admits the window holds %d records", i, n)
		}
	}
}

func TestSeedRecountsAndCaps(t *testing.T) {
	snapshot := make([]record.FraudRecord, 0, 60)
	wantHigh := 0
	for i := int64(1); i <= 60; i++ {
		risk := record.RiskLow
		if i%4 == 0 {
			risk = record.RiskHigh
			wantHigh++
		}
		snapshot = append(snapshot, newRecord(i, risk))
	}

	agg := New(DefaultCapacity)
	if err := agg.Seed(snapshot); err != nil {
		t.Fatalf("seed: %v", err)
	}

	state := agg.State()
	if state.HighRisk != wantHigh || state.LowRisk != 60-wantHigh {
		t.Fatalf("counters = %d/%d, want %d/%d", state.HighRisk, state.LowRisk, wantHigh, 60-wantHigh)
	}
	if len(state.Records) != DefaultCapacity {
		t.Fatalf("window = %d, want %d", len(state.Records), DefaultCapacity)
	}
	for i, rec := range state.Records {
		if *rec.ID != int64(i+1) {
			t.Fatalf("order not preserved at %d: got id %d", i, *rec.ID)
		}
	}
}

func TestSeedEmptyThenAdmitHigh(t *testing.T) {
	agg := New(DefaultCapacity)
	if err := agg.Seed(nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	agg.Admit(newRecord(7, record.RiskHigh))

	state := agg.State()
	if got := ids(state.Records); len(got) != 1 || got[0] != 7 {
		t.Fatalf("records = %v, want [7]", got)
	}
	if state.HighRisk != 1 || state.LowRisk != 0 {
		t.Fatalf("counters = %d/%d, want 1/0", state.HighRisk, state.LowRisk)
	}
}

func TestEvictionKeepsLifetimeCounters(t *testing.T) {
	agg := New(DefaultCapacity)
	for i := int64(1); i <= 51; i++ {
		agg.Admit(newRecord(i, record.RiskHigh))
	}

	state := agg.State()
	got := ids(state.Records)
	if len(got) != 50 {
		t.Fatalf("window = %d, want 50", len(got))
	}
	if got[0] != 51 || got[49] != 2 {
		t.Fatalf("window should run r51..r2, got head %d tail %d", got[0], got[49])
	}
	for i := 1; i < len(got); i++ {
		if got[i] != got[i-1]-1 {
			t.Fatalf("window not newest-first at %d: %v", i, got)
		}
	}
	if state.HighRisk != 51 || state.LowRisk != 0 {
		t.Fatalf("counters = %d/%d, want 51/0", state.HighRisk, state.LowRisk)
	}
}

func TestSeedOnlyOnce(t *testing.T) {
	agg := New(DefaultCapacity)
	if err := agg.Seed([]record.FraudRecord{newRecord(1, record.RiskLow)}); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	agg.Admit(newRecord(2, record.RiskHigh))

	err := agg.Seed([]record.FraudRecord{newRecord(9, record.RiskHigh)})
	if !errors.Is(err, ErrAlreadySeeded) {
		t.Fatalf("second seed should fail with ErrAlreadySeeded, got %v", err)
	}
	if got := ids(agg.State().Records); len(got) != 2 || got[0] != 2 {
		t.Fatalf("second seed must not replace state, got %v", got)
	}
}

func TestStateIsACopy(t *testing.T) {
	agg := New(3)
	agg.Admit(newRecord(1, record.RiskLow))

	state := agg.State()
	state.Records[0] = newRecord(99, record.RiskHigh)

	if *agg.State().Records[0].ID != 1 {
		t.Fatal("mutating a State copy leaked into the aggregator")
	}
}

func TestNonPositiveCapacityFallsBack(t *testing.T) {
	if got := New(0).Capacity(); got != DefaultCapacity {
		t.Fatalf("capacity = %d, want %d", got, DefaultCapacity)
	}
}
