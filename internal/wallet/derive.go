package wallet

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"

	"github.com/neonflash/neonflash/internal/domain"
)

// deriveSolanaAddress maps a signature over SessionMessage to a Solana-side
// address: the keccak256 hash of the signature used directly as a 32-byte
// public key. The resulting account has no known private key; it only
// serves as a deterministic identity on the counterpart chain.
func deriveSolanaAddress(signature []byte) (string, error) {
	if len(signature) == 0 {
		return "", fmt.Errorf("wallet: empty signature: %w", domain.ErrDerivationFailed)
	}
	hash := ethcrypto.Keccak256(signature)
	pk := solana.PublicKeyFromBytes(hash)
	return pk.String(), nil
}

// deriveNeonAddress maps a signature over SessionMessage to an EVM-side
// address: the low 20 bytes of the keccak256 hash, the same truncation used
// for deriving addresses from public keys.
func deriveNeonAddress(signature []byte) (string, error) {
	if len(signature) == 0 {
		return "", fmt.Errorf("wallet: empty signature: %w", domain.ErrDerivationFailed)
	}
	hash := ethcrypto.Keccak256(signature)
	return common.BytesToAddress(hash[12:]).Hex(), nil
}
