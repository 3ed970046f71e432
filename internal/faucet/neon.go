// Package faucet requests devnet test funds on both chains.
package faucet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/neonflash/neonflash/internal/domain"
)

const (
	maxAttempts    = 4
	baseRetryDelay = 2 * time.Second
)

// Sleeper abstracts the backoff delay so tests run without waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NeonClient talks to the Neon devnet faucet and reads native balances for
// the before/after snapshots the airdrop endpoint reports.
type NeonClient struct {
	faucetURL  string
	httpClient *http.Client
	evm        *ethclient.Client
	sleep      Sleeper
	logger     *slog.Logger
}

// NewNeonClient creates a faucet client for the Neon devnet. rpcURL may be
// empty; balance snapshots are then unavailable.
func NewNeonClient(faucetURL, rpcURL string, logger *slog.Logger) (*NeonClient, error) {
	var evm *ethclient.Client
	if rpcURL != "" {
		var err error
		evm, err = ethclient.Dial(rpcURL)
		if err != nil {
			return nil, fmt.Errorf("faucet: dialing neon rpc: %w", err)
		}
	}
	return &NeonClient{
		faucetURL: faucetURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		evm:    evm,
		sleep:  realSleep,
		logger: logger.With("component", "faucet"),
	}, nil
}

// Balance reads the wallet's native NEON balance in wei.
func (c *NeonClient) Balance(ctx context.Context, wallet string) (*big.Int, error) {
	if c.evm == nil {
		return nil, errors.New("faucet: no neon rpc configured")
	}
	if !common.IsHexAddress(wallet) {
		return nil, fmt.Errorf("faucet: invalid address %q", wallet)
	}
	return c.evm.BalanceAt(ctx, common.HexToAddress(wallet), nil)
}

type neonRequest struct {
	Wallet string `json:"wallet"`
	Amount int64  `json:"amount"`
}

// RequestNeon asks the faucet to credit the wallet with test NEON. The
// faucet rate-limits aggressively; 429 responses are retried with doubling
// delays, any other failure is returned immediately.
func (c *NeonClient) RequestNeon(ctx context.Context, wallet string, amount int64) error {
	payload, err := json.Marshal(neonRequest{Wallet: wallet, Amount: amount})
	if err != nil {
		return fmt.Errorf("faucet: encode request: %w", err)
	}

	delay := baseRetryDelay
	for attempt := 1; ; attempt++ {
		status, body, err := c.post(ctx, payload)
		if err != nil {
			return fmt.Errorf("faucet: request: %w", err)
		}
		switch {
		case status >= 200 && status < 300:
			return nil
		case status == http.StatusTooManyRequests:
			if attempt == maxAttempts {
				return fmt.Errorf("faucet: %w after %d attempts", domain.ErrRateLimited, attempt)
			}
			c.logger.Warn("faucet rate limited, retrying", "attempt", attempt, "delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		default:
			return fmt.Errorf("faucet: unexpected status %d: %s", status, string(body))
		}
	}
}

func (c *NeonClient) post(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.faucetURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
