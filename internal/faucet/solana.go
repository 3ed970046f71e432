package faucet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaClient requests SOL airdrops from a devnet RPC node.
type SolanaClient struct {
	rpc    *rpc.Client
	logger *slog.Logger
}

// NewSolanaClient creates an airdrop client against the given RPC endpoint.
func NewSolanaClient(rpcURL string, logger *slog.Logger) *SolanaClient {
	return &SolanaClient{
		rpc:    rpc.New(rpcURL),
		logger: logger.With("component", "faucet"),
	}
}

// RequestSOL airdrops the given number of lamports to the address.
func (c *SolanaClient) RequestSOL(ctx context.Context, address string, lamports uint64) (string, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return "", fmt.Errorf("faucet: invalid solana address %q: %w", address, err)
	}

	sig, err := c.rpc.RequestAirdrop(ctx, pubkey, lamports, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("faucet: airdrop: %w", err)
	}

	c.logger.Info("airdrop requested", "address", address, "lamports", lamports, "signature", sig.String())
	return sig.String(), nil
}

// Balance reads the SOL balance of an address in lamports.
func (c *SolanaClient) Balance(ctx context.Context, address string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("faucet: invalid solana address %q: %w", address, err)
	}
	out, err := c.rpc.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("faucet: get balance: %w", err)
	}
	return out.Value, nil
}
