// Package file implements domain.LoanStore on a single local JSON file, the
// daemon's equivalent of the per-browser storage used by the original
// deployment. A missing or unwritable storage path is not an error: reads
// return an empty log and writes are silently skipped.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/neonflash/neonflash/internal/domain"
)

// Store is a file-backed append-only loan log. All operations are safe for
// concurrent use; the full log is re-read and re-aggregated on every query,
// which is fine at the volumes a single operator produces.
type Store struct {
	path      string
	available bool
	mu        sync.Mutex

	subMu   sync.Mutex
	subs    map[int]func(domain.LoanRecord)
	nextSub int

	logger *slog.Logger
}

// New creates a Store writing to path. An empty path, or a parent directory
// that cannot be created, yields a no-op store rather than an error.
func New(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:   path,
		subs:   make(map[int]func(domain.LoanRecord)),
		logger: logger.With(slog.String("component", "loan_store")),
	}

	if path == "" {
		s.logger.Debug("no storage path configured, loan log disabled")
		return s
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Warn("loan log directory unavailable, metrics will not persist",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return s
	}
	s.available = true
	return s
}

// Record upserts rec into the log, keyed on TxHash (falling back to ID for
// attempts that never produced a transaction), then notifies subscribers.
func (s *Store) Record(ctx context.Context, rec domain.LoanRecord) error {
	s.mu.Lock()
	if s.available {
		records := s.load()
		records = upsert(records, rec)
		if err := s.save(records); err != nil {
			s.logger.Warn("loan log write failed", slog.String("error", err.Error()))
		}
	}
	s.mu.Unlock()

	s.notify(rec)
	return nil
}

// Aggregate recomputes the summary statistics from the full persisted log.
func (s *Store) Aggregate(ctx context.Context) (domain.LoanStats, error) {
	s.mu.Lock()
	records := s.load()
	s.mu.Unlock()

	return aggregate(records), nil
}

// List returns up to limit records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]domain.LoanRecord, error) {
	s.mu.Lock()
	records := s.load()
	s.mu.Unlock()

	return recentFirst(records, limit), nil
}

// Subscribe registers a listener invoked synchronously after every Record.
func (s *Store) Subscribe(fn func(domain.LoanRecord)) func() {
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

func (s *Store) notify(rec domain.LoanRecord) {
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

// load reads the persisted log. Any read or parse failure degrades to an
// empty log.
func (s *Store) load() []domain.LoanRecord {
	if !s.available {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("loan log read failed", slog.String("error", err.Error()))
		}
		return nil
	}
	var records []domain.LoanRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("loan log corrupt, starting empty", slog.String("error", err.Error()))
		return nil
	}
	return records
}

// save writes the log atomically (temp file + rename).
func (s *Store) save(records []domain.LoanRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func recordKey(rec domain.LoanRecord) string {
	if rec.TxHash != "" {
		return rec.TxHash
	}
	return rec.ID
}

// upsert replaces an existing entry with the same key in place, otherwise
// appends. Insertion order is the log order.
func upsert(records []domain.LoanRecord, rec domain.LoanRecord) []domain.LoanRecord {
	key := recordKey(rec)
	for i := range records {
		if recordKey(records[i]) == key {
			records[i] = rec
			return records
		}
	}
	return append(records, rec)
}

func aggregate(records []domain.LoanRecord) domain.LoanStats {
	stats := domain.LoanStats{Recent: recentFirst(records, domain.RecentLoanCount)}
	for _, rec := range records {
		switch rec.Status {
		case domain.LoanSuccess:
			stats.SuccessCount++
			stats.TotalProfit += rec.Profit
		case domain.LoanFailed:
			stats.FailCount++
		}
	}
	return stats
}

// recentFirst returns the last-appended records in reverse insertion order.
func recentFirst(records []domain.LoanRecord, limit int) []domain.LoanRecord {
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	out := make([]domain.LoanRecord, 0, limit)
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, records[i])
	}
	return out
}

var _ domain.LoanStore = (*Store)(nil)
