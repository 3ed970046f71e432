package pricefeed

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonflash/neonflash/internal/domain"
)

type fakeNeonSource struct {
	prices map[string]float64
	err    error
	calls  int
}

func (f *fakeNeonSource) SimplePrices(_ context.Context, _ []string) (map[string]float64, error) {
	f.calls++
	return f.prices, f.err
}

type fakeSolanaSource struct {
	prices map[string]float64
	err    error
	calls  int
}

func (f *fakeSolanaSource) Prices(_ context.Context, _ []string) (map[string]float64, error) {
	f.calls++
	return f.prices, f.err
}

type memCache struct {
	spreads []domain.TokenSpread
	has     bool
	setErr  error
}

func (m *memCache) SetSpreads(_ context.Context, spreads []domain.TokenSpread, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.spreads = spreads
	m.has = true
	return nil
}

func (m *memCache) GetSpreads(_ context.Context) ([]domain.TokenSpread, error) {
	if !m.has {
		return nil, domain.ErrNotFound
	}
	return m.spreads, nil
}

var testTokens = []TokenPair{
	{Symbol: "SOL", CoingeckoID: "solana", SolanaMint: "So11111111111111111111111111111111111111112"},
	{Symbol: "USDC", CoingeckoID: "usd-coin", SolanaMint: "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"},
}

func newTestService(neon *fakeNeonSource, sol *fakeSolanaSource, cache *memCache) *Service {
	return New(neon, sol, cache, nil, Config{Tokens: testTokens}, slog.New(slog.DiscardHandler))
}

func TestRefreshComputesSpreads(t *testing.T) {
	neon := &fakeNeonSource{prices: map[string]float64{"solana": 100.0, "usd-coin": 1.0}}
	sol := &fakeSolanaSource{prices: map[string]float64{
		"So11111111111111111111111111111111111111112":  101.0,
		"4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU": 1.0,
	}}
	cache := &memCache{}

	spreads, err := newTestService(neon, sol, cache).Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, spreads, 2)

	assert.Equal(t, "SOL", spreads[0].Token)
	assert.InDelta(t, 100.0, spreads[0].SpreadBps, 1e-9)
	assert.Equal(t, "USDC", spreads[1].Token)
	assert.Zero(t, spreads[1].SpreadBps)
	assert.True(t, cache.has)
}

func TestSpreadsServedFromCache(t *testing.T) {
	neon := &fakeNeonSource{prices: map[string]float64{"solana": 100.0}}
	sol := &fakeSolanaSource{prices: map[string]float64{}}
	cache := &memCache{has: true, spreads: []domain.TokenSpread{{Token: "SOL"}}}

	spreads, err := newTestService(neon, sol, cache).Spreads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SOL", spreads[0].Token)
	assert.Zero(t, neon.calls)
	assert.Zero(t, sol.calls)
}

func TestSpreadsFetchesOnCacheMiss(t *testing.T) {
	neon := &fakeNeonSource{prices: map[string]float64{"solana": 100.0, "usd-coin": 1.0}}
	sol := &fakeSolanaSource{prices: map[string]float64{
		"So11111111111111111111111111111111111111112":  99.0,
		"4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU": 1.0,
	}}
	cache := &memCache{}

	spreads, err := newTestService(neon, sol, cache).Spreads(context.Background())
	require.NoError(t, err)
	assert.Len(t, spreads, 2)
	assert.Equal(t, 1, neon.calls)
	assert.Equal(t, 1, sol.calls)
}

func TestRefreshFailsWhenEitherSourceFails(t *testing.T) {
	sol := &fakeSolanaSource{prices: map[string]float64{}}
	neon := &fakeNeonSource{err: errors.New("upstream down")}

	_, err := newTestService(neon, sol, &memCache{}).Refresh(context.Background())
	require.Error(t, err)

	neon = &fakeNeonSource{prices: map[string]float64{"solana": 100.0}}
	sol = &fakeSolanaSource{err: errors.New("upstream down")}
	_, err = newTestService(neon, sol, &memCache{}).Refresh(context.Background())
	require.Error(t, err)
}

func TestRefreshSkipsTokensMissingFromASource(t *testing.T) {
	neon := &fakeNeonSource{prices: map[string]float64{"solana": 100.0}}
	sol := &fakeSolanaSource{prices: map[string]float64{
		"So11111111111111111111111111111111111111112": 101.0,
	}}

	spreads, err := newTestService(neon, sol, &memCache{}).Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, spreads, 1)
	assert.Equal(t, "SOL", spreads[0].Token)
}

func TestSpreadBps(t *testing.T) {
	assert.InDelta(t, 100.0, spreadBps(100, 101), 1e-9)
	assert.InDelta(t, 100.0, spreadBps(101, 100), 1e-9)
	assert.Zero(t, spreadBps(0, 100))
	assert.Zero(t, spreadBps(5, 5))
}
