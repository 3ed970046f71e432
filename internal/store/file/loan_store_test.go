package file

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonflash/neonflash/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loans.json")
	return New(path, slog.New(slog.DiscardHandler))
}

func record(tx string, profit float64, status domain.LoanStatus) domain.LoanRecord {
	return domain.LoanRecord{
		ID:        "id-" + tx,
		TxHash:    tx,
		Strategy:  "usdc-sol-orca",
		Amount:    "1000000000",
		Profit:    profit,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

func TestAggregateIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Record(ctx, record("0xa", 12.5, domain.LoanSuccess)))
	require.NoError(t, s.Record(ctx, record("0xb", 3.0, domain.LoanFailed)))

	first, err := s.Aggregate(ctx)
	require.NoError(t, err)
	second, err := s.Aggregate(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregateExcludesFailedProfit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Record(ctx, record("0xa", 10, domain.LoanSuccess)))
	require.NoError(t, s.Record(ctx, record("0xb", 999, domain.LoanFailed)))
	require.NoError(t, s.Record(ctx, record("0xc", 2.5, domain.LoanSuccess)))

	stats, err := s.Aggregate(ctx)
	require.NoError(t, err)

	assert.Equal(t, 12.5, stats.TotalProfit)
	assert.Equal(t, 2, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailCount)
}

func TestAggregateRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	hashes := []string{"0x1", "0x2", "0x3", "0x4", "0x5", "0x6", "0x7"}
	for _, h := range hashes {
		require.NoError(t, s.Record(ctx, record(h, 1, domain.LoanSuccess)))
	}

	stats, err := s.Aggregate(ctx)
	require.NoError(t, err)

	require.Len(t, stats.Recent, domain.RecentLoanCount)
	assert.Equal(t, "0x7", stats.Recent[0].TxHash)
	assert.Equal(t, "0x3", stats.Recent[len(stats.Recent)-1].TxHash)
}

func TestRecordUpsertsByTxHash(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Record(ctx, record("0xa", 1, domain.LoanFailed)))
	require.NoError(t, s.Record(ctx, record("0xa", 5, domain.LoanSuccess)))

	stats, err := s.Aggregate(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 0, stats.FailCount)
	assert.Equal(t, 5.0, stats.TotalProfit)

	records, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecordPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "loans.json")
	logger := slog.New(slog.DiscardHandler)

	s := New(path, logger)
	require.NoError(t, s.Record(ctx, record("0xa", 7, domain.LoanSuccess)))

	reopened := New(path, logger)
	stats, err := reopened.Aggregate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7.0, stats.TotalProfit)
}

func TestUnavailableMediumIsSilentNoop(t *testing.T) {
	ctx := context.Background()
	s := New("", slog.New(slog.DiscardHandler))

	require.NoError(t, s.Record(ctx, record("0xa", 7, domain.LoanSuccess)))

	stats, err := s.Aggregate(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.SuccessCount)
	assert.Empty(t, stats.Recent)
}

func TestSubscribeNotifiedOnRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var got []domain.LoanRecord
	unsub := s.Subscribe(func(rec domain.LoanRecord) { got = append(got, rec) })

	require.NoError(t, s.Record(ctx, record("0xa", 1, domain.LoanSuccess)))
	require.Len(t, got, 1)
	assert.Equal(t, "0xa", got[0].TxHash)

	unsub()
	require.NoError(t, s.Record(ctx, record("0xb", 1, domain.LoanSuccess)))
	assert.Len(t, got, 1)
}

func TestSubscriberPanicDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var reached bool
	s.Subscribe(func(domain.LoanRecord) { panic("bad listener") })
	s.Subscribe(func(domain.LoanRecord) { reached = true })

	require.NoError(t, s.Record(ctx, record("0xa", 1, domain.LoanSuccess)))
	assert.True(t, reached)
}
