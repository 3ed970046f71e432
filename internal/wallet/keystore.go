package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/neonflash/neonflash/internal/domain"
)

// KeystoreProvider is the EVM-side wallet backend: a secp256k1 key held in
// process, dialing the Neon EVM RPC directly. It stands in for the
// browser-injected wallet of the original deployment.
type KeystoreProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address

	mu       sync.Mutex
	client   *ethclient.Client
	chainID  uint64
	networks map[uint64]string // chainID -> RPC URL

	watchMu   sync.Mutex
	onAccount func(string)
	onDrop    func()
}

// NewKeystoreProvider creates the provider from a hex private key and dials
// the RPC for the given chain.
func NewKeystoreProvider(privateKeyHex, rpcURL string, chainID uint64) (*KeystoreProvider, error) {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid private key: %w", err)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("wallet: dial %s: %w", rpcURL, err)
	}

	return &KeystoreProvider{
		key:      key,
		address:  ethcrypto.PubkeyToAddress(key.PublicKey),
		client:   client,
		chainID:  chainID,
		networks: map[uint64]string{chainID: rpcURL},
	}, nil
}

// Kind implements Provider.
func (p *KeystoreProvider) Kind() domain.ProviderKind { return domain.ProviderNeon }

// RequestAccounts implements Provider. A keystore wallet has no approval
// prompt; the configured account is always available.
func (p *KeystoreProvider) RequestAccounts(ctx context.Context) (string, error) {
	return p.address.Hex(), nil
}

// SignMessage signs message in the personal-message format ("\x19Ethereum
// Signed Message:\n" prefix) and returns the 65-byte signature.
func (p *KeystoreProvider) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	digest := ethcrypto.Keccak256(
		[]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))),
		message,
	)
	sig, err := ethcrypto.Sign(digest, p.key)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign message: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// Authorized implements Provider. The keystore needs no prior approval.
func (p *KeystoreProvider) Authorized(ctx context.Context) bool { return true }

// Watch implements Provider. A keystore account never changes from the
// provider side, so the callbacks are held only for interface parity.
func (p *KeystoreProvider) Watch(onAccountChanged func(string), onDisconnect func()) func() {
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

// ChainID implements NetworkSwitcher by asking the connected RPC node.
func (p *KeystoreProvider) ChainID(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()

	id, err := client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("wallet: chain id: %w", err)
	}
	return id.Uint64(), nil
}

// SwitchChain implements NetworkSwitcher by redialing the RPC registered
// for chainID. Unknown chains fail with ErrWrongNetwork; use AddChain first.
func (p *KeystoreProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rpcURL, ok := p.networks[chainID]
	if !ok {
		return fmt.Errorf("wallet: chain %d not registered: %w", chainID, domain.ErrWrongNetwork)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return fmt.Errorf("wallet: dial chain %d: %w", chainID, err)
	}
	p.client.Close()
	p.client = client
	p.chainID = chainID
	return nil
}

// AddChain implements NetworkSwitcher by registering the network metadata
// and switching to it.
func (p *KeystoreProvider) AddChain(ctx context.Context, params ChainParams) error {
	if params.ChainID == 0 || params.RPCURL == "" {
		return fmt.Errorf("wallet: add chain: chain id and rpc url are required")
	}
	p.mu.Lock()
	p.networks[params.ChainID] = params.RPCURL
	p.mu.Unlock()
	return p.SwitchChain(ctx, params.ChainID)
}

// Address returns the operator's EVM address.
func (p *KeystoreProvider) Address() common.Address { return p.address }

// Client returns the live RPC client for the currently selected chain.
func (p *KeystoreProvider) Client() *ethclient.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// SignTx signs an EVM transaction with the keystore key for the given chain.
func (p *KeystoreProvider) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), p.key)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign tx: %w", err)
	}
	return signed, nil
}

// Close releases the underlying RPC connection.
func (p *KeystoreProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client.Close()
}

var _ Provider = (*KeystoreProvider)(nil)
var _ NetworkSwitcher = (*KeystoreProvider)(nil)
