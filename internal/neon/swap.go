package neon

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// splTokenProgram is the SPL token program every swap leg delegates
// transfers to.
var splTokenProgram = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

// swapDiscriminator selects the Swap entry point on token-swap style pool
// programs, followed by amount_in and minimum_amount_out as little-endian
// u64 (Solana program convention).
const swapDiscriminator = 1

// SwapLeg describes one arbitrage leg against a token-swap pool. The
// account ordering below is fixed by the pool program.
type SwapLeg struct {
	SwapProgram   solana.PublicKey
	Pool          solana.PublicKey
	PoolAuthority solana.PublicKey
	UserAuthority solana.PublicKey // contract-derived transfer authority, signer
	UserSource    solana.PublicKey
	PoolSource    solana.PublicKey
	PoolDest      solana.PublicKey
	UserDest      solana.PublicKey
	PoolMint      solana.PublicKey
	PoolFee       solana.PublicKey
	AmountIn      uint64
	MinAmountOut  uint64
}

// EncodeSwapLeg serializes one swap leg into the precompile wire format
// produced by EncodeInstruction.
func EncodeSwapLeg(leg SwapLeg) ([]byte, error) {
	if leg.AmountIn == 0 {
		return nil, fmt.Errorf("neon: swap leg amount must be positive")
	}

	data := make([]byte, 17)
	data[0] = swapDiscriminator
	binary.LittleEndian.PutUint64(data[1:], leg.AmountIn)
	binary.LittleEndian.PutUint64(data[9:], leg.MinAmountOut)

	accounts := []AccountMeta{
		{Address: leg.Pool},
		{Address: leg.PoolAuthority},
		{Address: leg.UserAuthority, Signer: true},
		{Address: leg.UserSource, Writable: true},
		{Address: leg.PoolSource, Writable: true},
		{Address: leg.PoolDest, Writable: true},
		{Address: leg.UserDest, Writable: true},
		{Address: leg.PoolMint, Writable: true},
		{Address: leg.PoolFee, Writable: true},
		{Address: splTokenProgram},
	}

	return EncodeInstruction(leg.SwapProgram.String(), accounts, data)
}
