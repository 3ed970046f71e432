// Package flashloan orchestrates cross-chain flash-loan arbitrage: the
// strategy catalog, amount validation, instruction assembly, and the
// single-flight execution pipeline.
package flashloan

import (
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/neonflash/neonflash/internal/domain"
)

// PoolAccounts are the fixed accounts of one token-swap pool, in the order
// the pool program expects them.
type PoolAccounts struct {
	SwapProgram   solana.PublicKey
	Pool          solana.PublicKey
	PoolAuthority solana.PublicKey
	SourceVault   solana.PublicKey
	DestVault     solana.PublicKey
	PoolMint      solana.PublicKey
	FeeAccount    solana.PublicKey
}

// Route is one executable catalog entry: the strategy metadata plus the two
// pools the round trip swaps through.
type Route struct {
	Strategy domain.Strategy
	Forward  PoolAccounts // source token -> target token
	Reverse  PoolAccounts // target token -> source token
}

// Catalog is the read-only strategy registry. Entries keep their insertion
// order for listing.
type Catalog struct {
	routes map[string]Route
	order  []string
}

func NewCatalog(routes []Route) *Catalog {
	c := &Catalog{routes: make(map[string]Route, len(routes))}
	for _, r := range routes {
		if _, dup := c.routes[r.Strategy.ID]; dup {
			continue
		}
		c.routes[r.Strategy.ID] = r
		c.order = append(c.order, r.Strategy.ID)
	}
	return c
}

// Get returns the route for a strategy ID.
func (c *Catalog) Get(id string) (Route, error) {
	r, ok := c.routes[id]
	if !ok {
		return Route{}, fmt.Errorf("strategy %q: %w", id, domain.ErrUnknownStrategy)
	}
	return r, nil
}

// Strategies lists catalog entries in registration order.
func (c *Catalog) Strategies() []domain.Strategy {
	out := make([]domain.Strategy, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.routes[id].Strategy)
	}
	return out
}

func pk(s string) solana.PublicKey { return solana.MustPublicKeyFromBase58(s) }

// Devnet mints for the tokens the default catalog trades.
const (
	mintUSDC = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
	mintWSOL = "So11111111111111111111111111111111111111112"
	mintSAMO = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
)

// DefaultCatalog returns the routes wired to the devnet token-swap pool
// deployments. Loan bounds are 10 to 10,000 USDC.
func DefaultCatalog() *Catalog {
	minAmount := big.NewInt(10_000_000)
	maxAmount := big.NewInt(10_000_000_000)
	swapProgram := pk("SwaPpA9LAaLfeLi3a68M4DjnLqgtticKg6CnyNwgAC8")

	usdcWsol := Route{
		Strategy: domain.Strategy{
			ID:             "usdc-wsol",
			Name:           "USDC / wSOL round trip",
			SourceToken:    "USDC",
			TargetToken:    "SOL",
			Protocol:       "token-swap",
			Risk:           domain.RiskLow,
			Decimals:       6,
			TargetDecimals: 9,
			MinAmount:      minAmount,
			MaxAmount:      maxAmount,
			EstProfitBps:   12,
			SourceMint:     mintUSDC,
			TargetMint:     mintWSOL,
		},
		Forward: PoolAccounts{
			SwapProgram:   swapProgram,
			Pool:          pk("RHfLcLP3LxxfPRkr96s2gG6NvXHgqAGZ4e5rBUSi7TQ"),
			PoolAuthority: pk("BhaqtfuJxxRqxWNGnbC2uv2FcoRAJ969qGqUeyaHGkme"),
			SourceVault:   pk("FpKCVnd9917k1DTkNrn9jYzyFJxBaphesvoRXqGdhk9B"),
			DestVault:     pk("7ub7iUQ59HcVZgqcsJxgkqZPpKgtuq69UVxLJieCXhim"),
			PoolMint:      pk("6H8WefmaMhYYoqhdrPqNi59QkmpnkBqf8y9wMU7Bfcgt"),
			FeeAccount:    pk("8Aek4DLbumDE9GhmWLLdxw1XxotZRpg22T1p38i67Euh"),
		},
		Reverse: PoolAccounts{
			SwapProgram:   swapProgram,
			Pool:          pk("RHfLcLP3LxxfPRkr96s2gG6NvXHgqAGZ4e5rBUSi7TQ"),
			PoolAuthority: pk("BhaqtfuJxxRqxWNGnbC2uv2FcoRAJ969qGqUeyaHGkme"),
			SourceVault:   pk("7ub7iUQ59HcVZgqcsJxgkqZPpKgtuq69UVxLJieCXhim"),
			DestVault:     pk("FpKCVnd9917k1DTkNrn9jYzyFJxBaphesvoRXqGdhk9B"),
			PoolMint:      pk("6H8WefmaMhYYoqhdrPqNi59QkmpnkBqf8y9wMU7Bfcgt"),
			FeeAccount:    pk("8Aek4DLbumDE9GhmWLLdxw1XxotZRpg22T1p38i67Euh"),
		},
	}

	usdcSamo := Route{
		Strategy: domain.Strategy{
			ID:             "usdc-samo",
			Name:           "USDC / SAMO round trip",
			SourceToken:    "USDC",
			TargetToken:    "SAMO",
			Protocol:       "token-swap",
			Risk:           domain.RiskMedium,
			Decimals:       6,
			TargetDecimals: 9,
			MinAmount:      minAmount,
			MaxAmount:      maxAmount,
			EstProfitBps:   35,
			SourceMint:     mintUSDC,
			TargetMint:     mintSAMO,
		},
		Forward: PoolAccounts{
			SwapProgram:   swapProgram,
			Pool:          pk("9E1yDcbdB5erPuDqEBxEjn7YqcvyZN58ZrYTGzUfYCQN"),
			PoolAuthority: pk("3di3eC8ceq1okRwMV4tQ6hrM5MVhGfZfPKuWw7FPitJ5"),
			SourceVault:   pk("4qusDn6XrK8DBYbB9xPs4BzhonfJ42sv4Vy2F6CS33WD"),
			DestVault:     pk("BVYZPkJ556KeQUuSaDcREAGTVCT9rqzX8TD6BqZTAos8"),
			PoolMint:      pk("5awuSLdcuSHC4xsYofVW59SUcuCYHfURANCaWY96djUD"),
			FeeAccount:    pk("8guzM3M1VQPWzBkUBrB9zWfz4hZ5APdS2vLouV4oi1Gv"),
		},
		Reverse: PoolAccounts{
			SwapProgram:   swapProgram,
			Pool:          pk("9E1yDcbdB5erPuDqEBxEjn7YqcvyZN58ZrYTGzUfYCQN"),
			PoolAuthority: pk("3di3eC8ceq1okRwMV4tQ6hrM5MVhGfZfPKuWw7FPitJ5"),
			SourceVault:   pk("BVYZPkJ556KeQUuSaDcREAGTVCT9rqzX8TD6BqZTAos8"),
			DestVault:     pk("4qusDn6XrK8DBYbB9xPs4BzhonfJ42sv4Vy2F6CS33WD"),
			PoolMint:      pk("5awuSLdcuSHC4xsYofVW59SUcuCYHfURANCaWY96djUD"),
			FeeAccount:    pk("8guzM3M1VQPWzBkUBrB9zWfz4hZ5APdS2vLouV4oi1Gv"),
		},
	}

	return NewCatalog([]Route{usdcWsol, usdcSamo})
}
