package domain

import "time"

// TokenSpread is the aggregated cross-chain price view for one token: the
// EVM-side (Neon) price, the Solana-side price, and the resulting spread in
// basis points relative to the cheaper venue.
type TokenSpread struct {
	Token       string    `json:"token"`
	NeonPrice   float64   `json:"neonPrice"`
	SolanaPrice float64   `json:"solanaPrice"`
	SpreadBps   float64   `json:"spreadBps"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
