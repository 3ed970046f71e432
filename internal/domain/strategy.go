package domain

import (
	"encoding/json"
	"math/big"
)

// RiskTier is a coarse risk classification for display and filtering.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Strategy is a static catalog entry describing one flash-loan arbitrage
// route. Amounts are fixed-point integers in the loan token's base units;
// Decimals gives the scale. Catalog entries are read-only at runtime.
type Strategy struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	SourceToken    string   `json:"sourceToken"`
	TargetToken    string   `json:"targetToken"`
	Protocol       string   `json:"protocol"`
	Risk           RiskTier `json:"risk"`
	Decimals       int32    `json:"decimals"` // loan (source) token decimals
	TargetDecimals int32    `json:"targetDecimals"`
	MinAmount      *big.Int `json:"-"` // serialized as a decimal string, see MarshalJSON
	MaxAmount      *big.Int `json:"-"`
	EstProfitBps   int      `json:"estProfitBps"`
	SourceMint     string   `json:"sourceMint"` // base58 SPL mint of the source token
	TargetMint     string   `json:"targetMint"` // base58 SPL mint of the target token
}

// MarshalJSON emits the base-unit bounds as decimal strings so API clients
// see the limits their amounts are validated against without JSON number
// precision loss.
func (s Strategy) MarshalJSON() ([]byte, error) {
	type alias Strategy
	aux := struct {
		alias
		MinAmount string `json:"minAmount,omitempty"`
		MaxAmount string `json:"maxAmount,omitempty"`
	}{alias: alias(s)}
	if s.MinAmount != nil {
		aux.MinAmount = s.MinAmount.String()
	}
	if s.MaxAmount != nil {
		aux.MaxAmount = s.MaxAmount.String()
	}
	return json.Marshal(aux)
}
