package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neonflash/neonflash/internal/domain"
)

// spreadKey is the single key the aggregated cross-chain spread snapshot is
// cached under.
const spreadKey = "prices:spreads"

// SpreadCache implements domain.PriceCache using a single Redis string key
// holding the JSON-encoded snapshot with a short TTL.
type SpreadCache struct {
	rdb *redis.Client
}

// NewSpreadCache creates a SpreadCache backed by the given Client.
func NewSpreadCache(c *Client) *SpreadCache {
	return &SpreadCache{rdb: c.Underlying()}
}

// SetSpreads stores the snapshot with the given TTL.
func (sc *SpreadCache) SetSpreads(ctx context.Context, spreads []domain.TokenSpread, ttl time.Duration) error {
	data, err := json.Marshal(spreads)
	if err != nil {
		return fmt.Errorf("redis: marshal spreads: %w", err)
	}
	if err := sc.rdb.Set(ctx, spreadKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set spreads: %w", err)
	}
	return nil
}

// GetSpreads returns the cached snapshot, or domain.ErrNotFound after the
// TTL has elapsed or before the first SetSpreads.
func (sc *SpreadCache) GetSpreads(ctx context.Context) ([]domain.TokenSpread, error) {
	data, err := sc.rdb.Get(ctx, spreadKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get spreads: %w", err)
	}

	var spreads []domain.TokenSpread
	if err := json.Unmarshal(data, &spreads); err != nil {
		return nil, fmt.Errorf("redis: decode spreads: %w", err)
	}
	return spreads, nil
}

var _ domain.PriceCache = (*SpreadCache)(nil)
