package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"fraud-monitor/internal/config"
	"fraud-monitor/internal/source"
)

type fakeRow struct {
	values []any
}

func (f fakeRow) Scan(dest ...any) error {
	if len(dest) != len(f.values) {
		return fmt.Errorf("scan: got %d destinations for %d values", len(dest), len(f.values))
	}
	for i, d := range dest {
		switch target := d.(type) {
		case *int64:
			*target = f.values[i].(int64)
		case *float64:
			*target = f.values[i].(float64)
		case *float32:
			*target = f.values[i].(float32)
		case *string:
			*target = f.values[i].(string)
		case *time.Time:
			*target = f.values[i].(time.Time)
		case *sql.NullInt32:
			*target = f.values[i].(sql.NullInt32)
		case *sql.NullFloat64:
			*target = f.values[i].(sql.NullFloat64)
		case *sql.NullString:
			*target = f.values[i].(sql.NullString)
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

func TestScanFraudCheckToRecord(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	row := fakeRow{values: []any{
		int64(42),
		float64(1250.5),
		float32(0.875),
		"high",
		sql.NullInt32{Int32: 1, Valid: true},
		sql.NullFloat64{Float64: 2000, Valid: true},
		sql.NullFloat64{Float64: 749.5, Valid: true},
		sql.NullFloat64{},
		sql.NullFloat64{},
		sql.NullString{String: "10.0.0.1", Valid: true},
		sql.NullString{},
		created,
	}}

	scanned, err := scanFraudCheck(row)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	rec, err := scanned.Record()
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if rec.ID == nil || *rec.ID != 42 {
		t.Fatalf("id = %v", rec.ID)
	}
	if rec.Amount.String() != "1250.5" {
		t.Fatalf("amount = %s", rec.Amount)
	}
	if !rec.IsHigh() || rec.Score != 0.875 {
		t.Fatalf("unexpected risk/score %s %v", rec.Risk, rec.Score)
	}
	if rec.CreatedAt != "2025-03-14T09:26:53" {
		t.Fatalf("created at = %q", rec.CreatedAt)
	}
	if rec.TransactionType == nil || *rec.TransactionType != 1 {
		t.Fatalf("transaction type = %v", rec.TransactionType)
	}
	if rec.OldBalance == nil || rec.NewBalanceDest != nil {
		t.Fatal("nullable balances should map to nil only when NULL")
	}
	if rec.IPAddress != "10.0.0.1" || rec.Email != "" {
		t.Fatalf("unexpected ip/email %q %q", rec.IPAddress, rec.Email)
	}
}

func TestRecordRejectsInvalidRows(t *testing.T) {
	if _, err := (FraudCheckRow{ID: 1, Amount: 10, Risk: "MEDIUM"}).Record(); err == nil {
		t.Fatal("unknown risk should be rejected")
	}
	if _, err := (FraudCheckRow{ID: 1, Amount: -1, Risk: "LOW"}).Record(); err == nil {
		t.Fatal("negative amount should be rejected")
	}
}

func TestStoreWithoutPool(t *testing.T) {
	var store *Store
	_, err := store.LoadSnapshot(context.Background())

	var loadErr *source.SnapshotLoadError
	if !errors.As(err, &loadErr) || !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected SnapshotLoadError wrapping ErrNotConfigured, got %v", err)
	}
	if _, err := NewStore(nil, 10).FetchStats(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	store.Close()
}

func TestNewPoolRequiresDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), config.DatabaseConfig{}, "fraudwatch"); err == nil {
		t.Fatal("empty dsn should be rejected")
	}
}
