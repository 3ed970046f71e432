// Package wallet owns the wallet session: which provider backend the
// operator is connected through, the addresses on both chains, and the
// subscriber fan-out that keeps the rest of the process in sync.
package wallet

import (
	"context"

	"github.com/neonflash/neonflash/internal/domain"
)

// SessionMessage is the fixed, human-readable message a provider signs
// during connect. The signature is hashed into the operator's address on
// the counterpart chain, so changing this string changes every derived
// address.
const SessionMessage = "NeonFlash session key derivation v1"

// Provider is a wallet backend: something that can expose an account on its
// native chain and sign arbitrary messages with it.
type Provider interface {
	// Kind identifies the backend and therefore which chain the address
	// returned by RequestAccounts lives on.
	Kind() domain.ProviderKind

	// RequestAccounts unlocks the wallet and returns the primary account
	// address in its chain-native string form.
	RequestAccounts(ctx context.Context) (string, error)

	// SignMessage signs a human-readable message, returning the raw
	// signature bytes.
	SignMessage(ctx context.Context, message []byte) ([]byte, error)

	// Authorized reports whether the provider can connect without operator
	// interaction. Used by the silent auto-connect path.
	Authorized(ctx context.Context) bool

	// Watch registers callbacks for provider-side account changes and
	// disconnects. The returned function unregisters both.
	Watch(onAccountChanged func(addr string), onDisconnect func()) (unwatch func())
}

// ChainParams describes a network for NetworkSwitcher.AddChain, mirroring
// the metadata a browser wallet would need to register an unknown chain.
type ChainParams struct {
	ChainID     uint64
	Name        string
	RPCURL      string
	Currency    string
	ExplorerURL string
}

// NetworkSwitcher is implemented by EVM-side providers that can repoint
// themselves at a different chain.
type NetworkSwitcher interface {
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	AddChain(ctx context.Context, params ChainParams) error
}
