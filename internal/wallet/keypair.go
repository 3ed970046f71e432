package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/neonflash/neonflash/internal/domain"
)

// KeypairProvider is the Solana-side wallet backend: an ed25519 keypair held
// in process, the server-side stand-in for a browser Solana wallet.
type KeypairProvider struct {
	key solana.PrivateKey

	watchMu   sync.Mutex
	onAccount func(string)
	onDrop    func()
}

// NewKeypairProvider creates the provider from a base58-encoded private key.
func NewKeypairProvider(privateKeyBase58 string) (*KeypairProvider, error) {
	key, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid solana private key: %w", err)
	}
	return &KeypairProvider{key: key}, nil
}

// Kind implements Provider.
func (p *KeypairProvider) Kind() domain.ProviderKind { return domain.ProviderSolana }

// RequestAccounts implements Provider.
func (p *KeypairProvider) RequestAccounts(ctx context.Context) (string, error) {
	return p.key.PublicKey().String(), nil
}

// SignMessage signs message with the ed25519 key, returning the 64-byte
// signature.
func (p *KeypairProvider) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	sig, err := p.key.Sign(message)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign message: %w", err)
	}
	return sig[:], nil
}

// Authorized implements Provider.
func (p *KeypairProvider) Authorized(ctx context.Context) bool { return true }

// Watch implements Provider.
func (p *KeypairProvider) Watch(onAccountChanged func(string), onDisconnect func()) func() {
	p.watchMu.Lock()
	p.onAccount = onAccountChanged
	p.onDrop = onDisconnect
	p.watchMu.Unlock()
	return func() {
		p.watchMu.Lock()
		p.onAccount = nil
		p.onDrop = nil
		p.watchMu.Unlock()
	}
}

// PublicKey returns the operator's Solana public key.
func (p *KeypairProvider) PublicKey() solana.PublicKey { return p.key.PublicKey() }

var _ Provider = (*KeypairProvider)(nil)
