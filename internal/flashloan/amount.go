package flashloan

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/neonflash/neonflash/internal/domain"
)

// ParseAmount converts a human-readable token amount into base units and
// validates it against the strategy's loan bounds. The bounds are inclusive;
// anything below the minimum or above the maximum, by even one base unit,
// is rejected. Fractions finer than the token's decimals are rejected
// rather than rounded.
func ParseAmount(value string, strat domain.Strategy) (*big.Int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", value, domain.ErrInvalidAmount)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidAmount)
	}

	base := d.Shift(strat.Decimals)
	if !base.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places: %w", value, strat.Decimals, domain.ErrInvalidAmount)
	}

	units := base.BigInt()
	if strat.MinAmount != nil && units.Cmp(strat.MinAmount) < 0 {
		return nil, fmt.Errorf("amount %q below strategy minimum: %w", value, domain.ErrInvalidAmount)
	}
	if strat.MaxAmount != nil && units.Cmp(strat.MaxAmount) > 0 {
		return nil, fmt.Errorf("amount %q above strategy maximum: %w", value, domain.ErrInvalidAmount)
	}
	return units, nil
}

// unitsToFloat converts a base-unit amount to a float in whole-token terms.
// Display precision only.
func unitsToFloat(units *big.Int, decimals int32) float64 {
	return decimal.NewFromBigInt(units, -decimals).InexactFloat64()
}
