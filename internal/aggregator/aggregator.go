package aggregator

import (
	"errors"

	"fraud-monitor/internal/record"
)

// DefaultCapacity is the number of records kept visible.
const DefaultCapacity = 50

// ErrAlreadySeeded is returned when Seed is called more than once.
var ErrAlreadySeeded = errors.New("aggregator: already seeded")

// State is a point-in-time copy of the aggregate.
type State struct {
	Records  []record.FraudRecord
	HighRisk int
	LowRisk  int
}

// Aggregator owns the bounded, newest-first record window and the lifetime risk
// counters. It is not safe for concurrent use; a single session goroutine drives it.
type Aggregator struct {
	capacity int
	records  []record.FraudRecord
	high     int
	low      int
	seeded   bool
}

// New returns an empty aggregator. Non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Aggregator{
		capacity: capacity,
		records:  make([]record.FraudRecord, 0, capacity+1),
	}
}

// Capacity returns the maximum number of visible records.
func (a *Aggregator) Capacity() int {
	return a.capacity
}

// Seed replaces the window with the snapshot and recounts the counters over every
// snapshot record, including those beyond capacity.
func (a *Aggregator) Seed(records []record.FraudRecord) error {
	if a.seeded {
		return ErrAlreadySeeded
	}
	a.seeded = true

	visible := records
	if len(visible) > a.capacity {
		visible = visible[:a.capacity]
	}
	a.records = append(a.records[:0], visible...)

	a.high, a.low = 0, 0
	for _, rec := range records {
		switch rec.Risk {
		case record.RiskHigh:
			a.high++
		case record.RiskLow:
			a.low++
		}
	}
	return nil
}

// Admit prepends a live record, evicting the oldest one past capacity. Counters are
// never decremented on eviction.
func (a *Aggregator) Admit(rec record.FraudRecord) {
	a.records = append(a.records, record.FraudRecord{})
	copy(a.records[1:], a.records)
	a.records[0] = rec
	if len(a.records) > a.capacity {
		a.records[len(a.records)-1] = record.FraudRecord{}
		a.records = a.records[:a.capacity]
	}

	if rec.IsHigh() {
		a.high++
	} else {
		a.low++
	}
}

// Seeded reports whether Seed has run.
func (a *Aggregator) Seeded() bool {
	return a.seeded
}

// State copies the current aggregate.
func (a *Aggregator) State() State {
	records := make([]record.FraudRecord, len(a.records))
	copy(records, a.records)
	return State{
		Records:  records,
		HighRisk: a.high,
		LowRisk:  a.low,
	}
}
