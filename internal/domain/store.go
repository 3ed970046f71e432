package domain

import (
	"context"
	"time"
)

// LoanStore is the append-only loan metrics log. Record is an upsert keyed
// on the record's TxHash; entries are never mutated or deleted afterwards.
// Implementations notify subscribers synchronously after every successful
// write, passing a snapshot of the appended record.
type LoanStore interface {
	Record(ctx context.Context, rec LoanRecord) error
	Aggregate(ctx context.Context) (LoanStats, error)
	List(ctx context.Context, limit int) ([]LoanRecord, error)
	Subscribe(fn func(LoanRecord)) (unsubscribe func())
}

// PriceCache caches aggregated token spreads with a short TTL so the HTTP
// surface does not hammer the upstream price sources.
type PriceCache interface {
	SetSpreads(ctx context.Context, spreads []TokenSpread, ttl time.Duration) error
	GetSpreads(ctx context.Context) ([]TokenSpread, error)
}

// SignalBus is a lightweight pub/sub fabric used to fan events (price
// updates, session changes, loan outcomes) out to the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channels ...string) (<-chan BusMessage, func(), error)
}

// BusMessage is one message delivered by a SignalBus subscription.
type BusMessage struct {
	Channel string
	Payload []byte
}
