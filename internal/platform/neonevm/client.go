// Package neonevm wraps the flash-loan contract and its ERC-20-for-SPL
// loan token on the Neon EVM chain.
package neonevm

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gagliardetto/solana-go"
)

const receiptPollInterval = 2 * time.Second

// Signer signs transactions for a single EVM account.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Config identifies the chain and the deployed contracts.
type Config struct {
	RPCURL          string
	ChainID         uint64
	ContractAddress string
	TokenAddress    string
}

// Client issues calls and transactions against the flash-loan contract.
type Client struct {
	eth      *ethclient.Client
	chainID  *big.Int
	contract common.Address
	token    common.Address
	flashABI abi.ABI
	erc20ABI abi.ABI
	signer   Signer
	logger   *slog.Logger
}

func New(cfg Config, signer Signer, logger *slog.Logger) (*Client, error) {
	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing neon rpc: %w", err)
	}
	flashABI, err := abi.JSON(strings.NewReader(flashLoanABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing flash loan abi: %w", err)
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing erc20 abi: %w", err)
	}
	return &Client{
		eth:      eth,
		chainID:  new(big.Int).SetUint64(cfg.ChainID),
		contract: common.HexToAddress(cfg.ContractAddress),
		token:    common.HexToAddress(cfg.TokenAddress),
		flashABI: flashABI,
		erc20ABI: erc20ABI,
		signer:   signer,
		logger:   logger.With("component", "neonevm"),
	}, nil
}

// ContractAddress returns the flash-loan contract address.
func (c *Client) ContractAddress() common.Address { return c.contract }

// TokenAddress returns the loan token address.
func (c *Client) TokenAddress() common.Address { return c.token }

// Close releases the underlying RPC connection.
func (c *Client) Close() { c.eth.Close() }

// GetNeonAddress resolves the Solana account backing an EVM address,
// as reported by the contract.
func (c *Client) GetNeonAddress(ctx context.Context, account common.Address) (solana.PublicKey, error) {
	out, err := c.call(ctx, c.contract, c.flashABI, "getNeonAddress", account)
	if err != nil {
		return solana.PublicKey{}, err
	}
	raw, ok := out[0].([32]byte)
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("getNeonAddress: unexpected return type %T", out[0])
	}
	return solana.PublicKeyFromBytes(raw[:]), nil
}

// LastLoan reads the amount of the most recent loan taken through the contract.
func (c *Client) LastLoan(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, c.contract, c.flashABI, "lastLoan")
}

// LastLoanFee reads the fee charged for the most recent loan.
func (c *Client) LastLoanFee(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, c.contract, c.flashABI, "lastLoanFee")
}

// TokenBalance reads the loan-token balance of an account.
func (c *Client) TokenBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return c.callUint(ctx, c.token, c.erc20ABI, "balanceOf", owner)
}

// TokenTotalSupply reads the loan token's total supply.
func (c *Client) TokenTotalSupply(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, c.token, c.erc20ABI, "totalSupply")
}

// TransferToken sends loan tokens from the signer's account and waits for
// the transfer to be mined.
func (c *Client) TransferToken(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	data, err := c.erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return "", fmt.Errorf("packing transfer: %w", err)
	}
	return c.send(ctx, c.token, data)
}

// FlashLoanSimple submits a flash loan carrying two encoded Solana
// instructions and waits for the transaction to be mined. The returned hash
// is valid even when the transaction reverted.
func (c *Client) FlashLoanSimple(ctx context.Context, amount *big.Int, instr1, instr2 []byte) (string, error) {
	data, err := c.flashABI.Pack("flashLoanSimple", c.token, amount, instr1, instr2)
	if err != nil {
		return "", fmt.Errorf("packing flashLoanSimple: %w", err)
	}
	return c.send(ctx, c.contract, data)
}

func (c *Client) call(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	return out, nil
}

func (c *Client) callUint(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...any) (*big.Int, error) {
	out, err := c.call(ctx, to, contractABI, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected return type %T", method, out[0])
	}
	return v, nil
}

// send builds, signs and submits a legacy transaction, then blocks until a
// receipt is available. A reverted receipt is reported as an error that still
// carries the transaction hash.
func (c *Client) send(ctx context.Context, to common.Address, data []byte) (string, error) {
	from := c.signer.Address()

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("fetching nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching gas price: %w", err)
	}
	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return "", fmt.Errorf("estimating gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit + gasLimit/5,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := c.signer.SignTx(tx, c.chainID)
	if err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("sending transaction: %w", err)
	}

	hash := signed.Hash()
	c.logger.Info("transaction submitted", "tx_hash", hash.Hex(), "to", to.Hex(), "nonce", nonce)

	receipt, err := c.waitMined(ctx, hash)
	if err != nil {
		return hash.Hex(), err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return hash.Hex(), fmt.Errorf("transaction %s reverted", hash.Hex())
	}
	return hash.Hex(), nil
}

func (c *Client) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt of %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
