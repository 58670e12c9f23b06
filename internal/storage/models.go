package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fraud-monitor/internal/record"
)

// createdAtLayout matches how the record source serialises created_at.
const createdAtLayout = "2006-01-02T15:04:05"

// FraudCheckRow mirrors one row of the fraud_checks table.
type FraudCheckRow struct {
	ID              int64
	Amount          float64
	Score           float32
	Risk            string
	TransactionType sql.NullInt32
	OldBalance      sql.NullFloat64
	NewBalance      sql.NullFloat64
	OldBalanceDest  sql.NullFloat64
	NewBalanceDest  sql.NullFloat64
	IPAddress       sql.NullString
	Email           sql.NullString
	CreatedAt       time.Time
}

// Record converts the row into the domain record, applying the same validation as
// the HTTP decoder.
func (r FraudCheckRow) Record() (record.FraudRecord, error) {
	risk, err := record.ParseRisk(r.Risk)
	if err != nil {
		return record.FraudRecord{}, fmt.Errorf("fraud_checks row %d: %w", r.ID, err)
	}
	if r.Amount < 0 {
		return record.FraudRecord{}, fmt.Errorf("fraud_checks row %d: %w", r.ID, errors.New("amount must not be negative"))
	}

	id := r.ID
	rec := record.FraudRecord{
		ID:             &id,
		Amount:         decimal.NewFromFloat(r.Amount),
		Score:          float64(r.Score),
		Risk:           risk,
		OldBalance:     nullDecimal(r.OldBalance),
		NewBalance:     nullDecimal(r.NewBalance),
		OldBalanceDest: nullDecimal(r.OldBalanceDest),
		NewBalanceDest: nullDecimal(r.NewBalanceDest),
	}
	if !r.CreatedAt.IsZero() {
		rec.CreatedAt = r.CreatedAt.Format(createdAtLayout)
	}
	if r.TransactionType.Valid {
		value := int(r.TransactionType.Int32)
		rec.TransactionType = &value
	}
	if r.IPAddress.Valid {
		rec.IPAddress = r.IPAddress.String
	}
	if r.Email.Valid {
		rec.Email = r.Email.String
	}
	return rec, nil
}

func nullDecimal(v sql.NullFloat64) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := decimal.NewFromFloat(v.Float64)
	return &d
}
