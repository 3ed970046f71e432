// Package neon builds the binary payloads consumed by the Neon EVM
// composability precompile: serialized Solana instructions and the
// program-derived addresses they reference. The wire format is fixed by the
// on-chain precompile; any deviation makes the bridged call revert.
package neon

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/neonflash/neonflash/internal/domain"
)

// AccountMeta describes one account referenced by a serialized instruction.
// Order is semantically significant: the receiving program addresses
// accounts by position, so swapping two entries produces a different call.
type AccountMeta struct {
	Address  solana.PublicKey
	Signer   bool
	Writable bool
}

const (
	// accountMetaSize is the serialized size of one AccountMeta:
	// 32-byte address + signer flag + writable flag.
	accountMetaSize = 34

	// countPrefixSize is the big-endian length prefix used for both the
	// account count and the data length.
	countPrefixSize = 8
)

// EncodeAddress normalises an address into the 32-byte form used on the
// Solana side. Hex input (with or without the 0x prefix) is left-zero-padded
// to 32 bytes; anything else must decode as a base58 public key.
func EncodeAddress(id string) ([32]byte, error) {
	var out [32]byte

	trimmed := strings.TrimPrefix(id, "0x")
	if raw, err := hex.DecodeString(trimmed); err == nil {
		if len(raw) > 32 {
			return out, fmt.Errorf("neon: address %q is %d bytes, max 32: %w", id, len(raw), domain.ErrEncodingFailed)
		}
		copy(out[32-len(raw):], raw)
		return out, nil
	}

	pk, err := solana.PublicKeyFromBase58(id)
	if err != nil {
		return out, fmt.Errorf("neon: address %q is neither hex nor base58: %w", id, domain.ErrEncodingFailed)
	}
	copy(out[:], pk.Bytes())
	return out, nil
}

// EncodeAccountList serializes an ordered account list: an 8-byte big-endian
// count followed by 34 bytes per account (address, signer flag, writable
// flag), preserving input order.
func EncodeAccountList(accounts []AccountMeta) []byte {
	buf := make([]byte, countPrefixSize, countPrefixSize+len(accounts)*accountMetaSize)
	binary.BigEndian.PutUint64(buf, uint64(len(accounts)))

	for _, acc := range accounts {
		buf = append(buf, acc.Address.Bytes()...)
		buf = append(buf, boolByte(acc.Signer), boolByte(acc.Writable))
	}
	return buf
}

// EncodeInstruction serializes a full instruction descriptor:
//
//	programID(32) || accountList || dataLen(8, big-endian) || data
//
// The total length is always 32 + 8 + 34*len(accounts) + 8 + len(data).
func EncodeInstruction(programID string, accounts []AccountMeta, data []byte) ([]byte, error) {
	prog, err := EncodeAddress(programID)
	if err != nil {
		return nil, fmt.Errorf("neon: program id: %w", err)
	}

	accountBytes := EncodeAccountList(accounts)

	buf := make([]byte, 0, 32+len(accountBytes)+countPrefixSize+len(data))
	buf = append(buf, prog[:]...)
	buf = append(buf, accountBytes...)

	var lenPrefix [countPrefixSize]byte
	binary.BigEndian.PutUint64(lenPrefix[:], uint64(len(data)))
	buf = append(buf, lenPrefix[:]...)
	buf = append(buf, data...)

	return buf, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
