package neon

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/neonflash/neonflash/internal/domain"
)

// accountSeedVersion is the discriminant byte the Neon EVM program prepends
// to every seed list. It must match the on-chain value or the derived
// address will not line up with the accounts the program actually owns.
const accountSeedVersion = 0x03

// Common seed prefixes used by the Neon EVM program for per-contract
// accounts.
const (
	SeedContractData = "ContractData"
	SeedAuthority    = "AUTH"
)

// DerivePDA reproduces, off-chain, the deterministic address derivation the
// Neon EVM program uses for per-contract token and state accounts. The seed
// list is: the version discriminant, the UTF-8 prefix tag, the raw 20-byte
// owner address, and the salt left-zero-padded to 32 bytes. The returned
// bump is the first value (searching down from 255) whose derived address
// is not a valid curve point.
func DerivePDA(prefix, ownerEVMAddress, salt string, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	owner, err := decodeHex(ownerEVMAddress)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("neon: owner address: %w", err)
	}
	if len(owner) != 20 {
		return solana.PublicKey{}, 0, fmt.Errorf("neon: owner address is %d bytes, want 20: %w", len(owner), domain.ErrEncodingFailed)
	}

	saltRaw, err := decodeHex(salt)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("neon: salt: %w", err)
	}
	if len(saltRaw) > 32 {
		return solana.PublicKey{}, 0, fmt.Errorf("neon: salt is %d bytes, max 32: %w", len(saltRaw), domain.ErrEncodingFailed)
	}
	salt32 := make([]byte, 32)
	copy(salt32[32-len(saltRaw):], saltRaw)

	seeds := [][]byte{
		{accountSeedVersion},
		[]byte(prefix),
		owner,
		salt32,
	}

	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("neon: find program address: %w", err)
	}
	return addr, bump, nil
}

func decodeHex(s string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%q is not valid hex: %w", s, domain.ErrEncodingFailed)
	}
	return raw, nil
}
