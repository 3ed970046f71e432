package flashloan

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonflash/neonflash/internal/domain"
)

var boundedStrategy = domain.Strategy{
	ID:        "usdc-wsol",
	Decimals:  6,
	MinAmount: big.NewInt(10_000_000),
	MaxAmount: big.NewInt(10_000_000_000),
}

func TestParseAmountBounds(t *testing.T) {
	cases := []struct {
		value string
		want  int64
		ok    bool
	}{
		{"10", 10_000_000, true},
		{"10000", 10_000_000_000, true},
		{"500.25", 500_250_000, true},
		{"9.999999", 0, false},
		{"10000.000001", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			got, err := ParseAmount(tc.value, boundedStrategy)
			if !tc.ok {
				require.ErrorIs(t, err, domain.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Int64())
		})
	}
}

func TestParseAmountRejectsMalformed(t *testing.T) {
	for _, value := range []string{"", "abc", "0", "-5", "1e", "10..5"} {
		t.Run(value, func(t *testing.T) {
			_, err := ParseAmount(value, boundedStrategy)
			assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		})
	}
}

func TestParseAmountRejectsSubUnitDust(t *testing.T) {
	_, err := ParseAmount("10.0000001", boundedStrategy)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestParseAmountUnboundedStrategy(t *testing.T) {
	got, err := ParseAmount("0.000001", domain.Strategy{Decimals: 6})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Int64())
}
