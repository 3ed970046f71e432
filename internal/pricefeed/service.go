// Package pricefeed aggregates token prices from both chains into
// cross-venue spreads.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neonflash/neonflash/internal/domain"
)

// ChannelPrices is the signal bus channel spread updates are published on.
const ChannelPrices = "prices"

// TokenPair maps one tracked token symbol to its identifiers on each
// price source.
type TokenPair struct {
	Symbol      string
	CoingeckoID string
	SolanaMint  string
}

// NeonSource provides USD prices for the EVM side, keyed by CoinGecko ID.
type NeonSource interface {
	SimplePrices(ctx context.Context, ids []string) (map[string]float64, error)
}

// SolanaSource provides USD prices for the Solana side, keyed by mint.
type SolanaSource interface {
	Prices(ctx context.Context, mints []string) (map[string]float64, error)
}

// Config holds tuning for the aggregation service.
type Config struct {
	Tokens   []TokenPair
	CacheTTL time.Duration
	Interval time.Duration
}

// Service fetches prices from both sources, computes spreads, and keeps a
// short-lived cache so the HTTP surface never fans out to the upstreams on
// every request.
type Service struct {
	neon   NeonSource
	solana SolanaSource
	cache  domain.PriceCache
	bus    domain.SignalBus
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

func New(neon NeonSource, solana SolanaSource, cache domain.PriceCache, bus domain.SignalBus, cfg Config, logger *slog.Logger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Service{
		neon:   neon,
		solana: solana,
		cache:  cache,
		bus:    bus,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With("component", "pricefeed"),
	}
}

// Spreads returns the current spread table, served from cache when fresh.
func (s *Service) Spreads(ctx context.Context) ([]domain.TokenSpread, error) {
	cached, err := s.cache.GetSpreads(ctx)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("price cache read failed", "error", err)
	}
	return s.Refresh(ctx)
}

// Refresh fetches both sources, recomputes every spread, caches the result
// and announces it on the bus. Both upstream fetches must succeed; a spread
// computed from one stale side would be worse than no spread at all.
func (s *Service) Refresh(ctx context.Context) ([]domain.TokenSpread, error) {
	ids := make([]string, 0, len(s.cfg.Tokens))
	mints := make([]string, 0, len(s.cfg.Tokens))
	for _, tok := range s.cfg.Tokens {
		ids = append(ids, tok.CoingeckoID)
		mints = append(mints, tok.SolanaMint)
	}

	neonPrices, err := s.neon.SimplePrices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("pricefeed: neon side: %w", err)
	}
	solanaPrices, err := s.solana.Prices(ctx, mints)
	if err != nil {
		return nil, fmt.Errorf("pricefeed: solana side: %w", err)
	}

	now := s.now()
	spreads := make([]domain.TokenSpread, 0, len(s.cfg.Tokens))
	for _, tok := range s.cfg.Tokens {
		neonPrice, okNeon := neonPrices[tok.CoingeckoID]
		solanaPrice, okSolana := solanaPrices[tok.SolanaMint]
		if !okNeon || !okSolana {
			s.logger.Warn("token missing from a price source", "token", tok.Symbol)
			continue
		}
		spreads = append(spreads, domain.TokenSpread{
			Token:       tok.Symbol,
			NeonPrice:   neonPrice,
			SolanaPrice: solanaPrice,
			SpreadBps:   spreadBps(neonPrice, solanaPrice),
			UpdatedAt:   now,
		})
	}

	if err := s.cache.SetSpreads(ctx, spreads, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("price cache write failed", "error", err)
	}
	if s.bus != nil {
		if err := s.bus.Publish(ctx, ChannelPrices, spreads); err != nil {
			s.logger.Warn("publishing spreads failed", "error", err)
		}
	}
	return spreads, nil
}

// Run refreshes spreads on a fixed interval until the context is cancelled.
// Upstream failures are logged and retried on the next tick.
func (s *Service) Run(ctx context.Context) error {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Warn("initial price refresh failed", "error", err)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Warn("price refresh failed", "error", err)
			}
		}
	}
}

// spreadBps returns the absolute gap between the venues in basis points,
// relative to the cheaper venue.
func spreadBps(neonPrice, solanaPrice float64) float64 {
	low := neonPrice
	if solanaPrice < low {
		low = solanaPrice
	}
	if low <= 0 {
		return 0
	}
	diff := neonPrice - solanaPrice
	if diff < 0 {
		diff = -diff
	}
	return diff / low * 10_000
}
