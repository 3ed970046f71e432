package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neonflash/neonflash/internal/domain"
)

// LoanStore implements domain.LoanStore on PostgreSQL. Record is an upsert
// keyed on the transaction hash (or the attempt ID when no transaction was
// ever submitted), matching the file store's semantics.
type LoanStore struct {
	pool *pgxpool.Pool

	subMu   sync.Mutex
	subs    map[int]func(domain.LoanRecord)
	nextSub int

	logger *slog.Logger
}

// NewLoanStore creates a LoanStore on the given pool.
func NewLoanStore(pool *pgxpool.Pool, logger *slog.Logger) *LoanStore {
	return &LoanStore{
		pool:   pool,
		subs:   make(map[int]func(domain.LoanRecord)),
		logger: logger.With(slog.String("component", "loan_store")),
	}
}

func dedupeKey(rec domain.LoanRecord) string {
	if rec.TxHash != "" {
		return rec.TxHash
	}
	return rec.ID
}

// Record upserts rec and notifies subscribers.
func (s *LoanStore) Record(ctx context.Context, rec domain.LoanRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO loan_records (dedupe_key, id, tx_hash, strategy, amount, profit, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (dedupe_key) DO UPDATE SET
			tx_hash = EXCLUDED.tx_hash,
			profit = EXCLUDED.profit,
			status = EXCLUDED.status,
			error = EXCLUDED.error`,
		dedupeKey(rec), rec.ID, rec.TxHash, rec.Strategy, rec.Amount,
		rec.Profit, string(rec.Status), rec.Error, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: record loan: %w", err)
	}

	s.notify(rec)
	return nil
}

// Aggregate recomputes the summary statistics over the full table.
func (s *LoanStore) Aggregate(ctx context.Context) (domain.LoanStats, error) {
	var stats domain.LoanStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(profit) FILTER (WHERE status = 'success'), 0),
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM loan_records`,
	).Scan(&stats.TotalProfit, &stats.SuccessCount, &stats.FailCount)
	if err != nil {
		return domain.LoanStats{}, fmt.Errorf("postgres: aggregate loans: %w", err)
	}

	recent, err := s.List(ctx, domain.RecentLoanCount)
	if err != nil {
		return domain.LoanStats{}, err
	}
	stats.Recent = recent
	return stats, nil
}

// List returns up to limit records, newest first.
func (s *LoanStore) List(ctx context.Context, limit int) ([]domain.LoanRecord, error) {
	query := `
		SELECT id, tx_hash, strategy, amount, profit, status, error, created_at
		FROM loan_records ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list loans: %w", err)
	}
	defer rows.Close()

	var records []domain.LoanRecord
	for rows.Next() {
		var rec domain.LoanRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.TxHash, &rec.Strategy, &rec.Amount,
			&rec.Profit, &status, &rec.Error, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan loan: %w", err)
		}
		rec.Status = domain.LoanStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("postgres: list loans: %w", err)
	}
	return records, nil
}

// Subscribe registers a listener invoked synchronously after every Record.
func (s *LoanStore) Subscribe(fn func(domain.LoanRecord)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *LoanStore) notify(rec domain.LoanRecord) {
	s.subMu.Lock()
	listeners := make([]func(domain.LoanRecord), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("loan subscriber panicked", slog.Any("panic", r))
				}
			}()
			fn(rec)
		}()
	}
}

var _ domain.LoanStore = (*LoanStore)(nil)
