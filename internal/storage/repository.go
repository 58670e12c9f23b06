package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fraud-monitor/internal/record"
	"fraud-monitor/internal/source"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	listRecentChecksSQL = `SELECT
        id,
        amount,
        score,
        risk,
        transaction_type,
        old_balance,
        new_balance,
        old_balance_dest,
        new_balance_dest,
        ip_address,
        email,
        created_at
    FROM fraud_checks
    ORDER BY created_at DESC, id DESC
    LIMIT $1;`

	statsSQL = `SELECT
        COUNT(*),
        COUNT(*) FILTER (WHERE risk = 'HIGH'),
        COUNT(*) FILTER (WHERE risk = 'LOW'),
        COALESCE(AVG(score), 0)
    FROM fraud_checks;`
)

// Store reads the record source's PostgreSQL table directly. It satisfies the same
// snapshot and statistics contracts as the HTTP client.
type Store struct {
	pool  *pgxpool.Pool
	limit int
}

// NewStore wires a pgx pool into a Store returning at most limit snapshot rows.
func NewStore(pool *pgxpool.Pool, limit int) *Store {
	return &Store{pool: pool, limit: limit}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// LoadSnapshot lists the newest checks, newest first. Failures are reported as
// *source.SnapshotLoadError so the session treats both loaders alike.
func (s *Store) LoadSnapshot(ctx context.Context) ([]record.FraudRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, &source.SnapshotLoadError{Op: "connect", Err: err}
	}

	rows, queryErr := pool.Query(ctx, listRecentChecksSQL, s.limit)
	if queryErr != nil {
		return nil, &source.SnapshotLoadError{Op: "query", Err: fmt.Errorf("list recent checks: %w", queryErr)}
	}
	defer rows.Close()

	records := make([]record.FraudRecord, 0, s.limit)
	for rows.Next() {
		row, scanErr := scanFraudCheck(rows)
		if scanErr != nil {
			return nil, &source.SnapshotLoadError{Op: "scan", Err: scanErr}
		}
		rec, convErr := row.Record()
		if convErr != nil {
			return nil, &source.SnapshotLoadError{Op: "decode", Err: convErr}
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, &source.SnapshotLoadError{Op: "query", Err: rows.Err()}
	}
	return records, nil
}

// FetchStats computes lifetime statistics over the whole table.
func (s *Store) FetchStats(ctx context.Context) (source.Stats, error) {
	pool, err := s.getPool()
	if err != nil {
		return source.Stats{}, err
	}

	var stats source.Stats
	if scanErr := pool.QueryRow(ctx, statsSQL).Scan(
		&stats.Total,
		&stats.HighRisk,
		&stats.LowRisk,
		&stats.AvgScore,
	); scanErr != nil {
		return source.Stats{}, fmt.Errorf("query stats: %w", scanErr)
	}
	return stats, nil
}

func scanFraudCheck(row pgx.Row) (FraudCheckRow, error) {
	var r FraudCheckRow
	if err := row.Scan(
		&r.ID,
		&r.Amount,
		&r.Score,
		&r.Risk,
		&r.TransactionType,
		&r.OldBalance,
		&r.NewBalance,
		&r.OldBalanceDest,
		&r.NewBalanceDest,
		&r.IPAddress,
		&r.Email,
		&r.CreatedAt,
	); err != nil {
		return FraudCheckRow{}, fmt.Errorf("scan fraud check: %w", err)
	}
	return r, nil
}

var (
	_ source.SnapshotLoader = (*Store)(nil)
	_ source.StatsFetcher   = (*Store)(nil)
)
