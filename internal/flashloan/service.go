package flashloan

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/neonflash/neonflash/internal/domain"
	"github.com/neonflash/neonflash/internal/neon"
	"github.com/neonflash/neonflash/internal/wallet"
)

// ChannelLoans is the signal bus channel loan outcomes are published on.
const ChannelLoans = "loans"

// ContractClient is the slice of the Neon EVM client the orchestrator needs.
type ContractClient interface {
	ContractAddress() common.Address
	GetNeonAddress(ctx context.Context, account common.Address) (solana.PublicKey, error)
	TokenBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	TransferToken(ctx context.Context, to common.Address, amount *big.Int) (string, error)
	FlashLoanSimple(ctx context.Context, amount *big.Int, instr1, instr2 []byte) (string, error)
	LastLoan(ctx context.Context) (*big.Int, error)
	LastLoanFee(ctx context.Context) (*big.Int, error)
}

// SessionSource exposes the current wallet session snapshot.
type SessionSource interface {
	State() domain.SessionState
}

// PriceSource provides the spread table used to size the swap legs.
type PriceSource interface {
	Spreads(ctx context.Context) ([]domain.TokenSpread, error)
}

// Config tunes the orchestrator.
type Config struct {
	// ChainID is the Neon EVM chain the contract is deployed on.
	ChainID uint64
	// ChainParams registers the chain with the wallet when it is unknown.
	ChainParams wallet.ChainParams
	// NeonProgramID is the base58 Neon EVM program used for account derivation.
	NeonProgramID string
	// SlippageBps widens the forward leg's minimum-out bound.
	SlippageBps int
	// AllowUnderfunded proceeds even when the contract's token balance
	// cannot cover the loan and a top-up from the operator failed. The
	// transaction then reverts on-chain instead of failing locally.
	AllowUnderfunded bool
}

// Service runs flash-loan attempts one at a time. Every attempt that
// reaches the chain interaction phase leaves a loan record, successful or
// not; input validation failures do not.
type Service struct {
	catalog   *Catalog
	contract  ContractClient
	session   SessionSource
	network   wallet.NetworkSwitcher
	prices    PriceSource
	store     domain.LoanStore
	bus       domain.SignalBus
	cfg       Config
	programID solana.PublicKey
	busy      atomic.Bool
	newID     func() string
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(
	catalog *Catalog,
	contract ContractClient,
	session SessionSource,
	network wallet.NetworkSwitcher,
	prices PriceSource,
	store domain.LoanStore,
	bus domain.SignalBus,
	cfg Config,
	logger *slog.Logger,
) (*Service, error) {
	programID, err := solana.PublicKeyFromBase58(cfg.NeonProgramID)
	if err != nil {
		return nil, fmt.Errorf("flashloan: neon program id: %w", err)
	}
	return &Service{
		catalog:   catalog,
		contract:  contract,
		session:   session,
		network:   network,
		prices:    prices,
		store:     store,
		bus:       bus,
		cfg:       cfg,
		programID: programID,
		newID:     uuid.NewString,
		now:       time.Now,
		logger:    logger.With("component", "flashloan"),
	}, nil
}

// Strategies lists the executable strategy catalog.
func (s *Service) Strategies() []domain.Strategy {
	return s.catalog.Strategies()
}

// Busy reports whether an execution is currently in flight.
func (s *Service) Busy() bool { return s.busy.Load() }

// Execute runs one flash-loan attempt end to end: validate, verify the
// wallet network, check contract funding, assemble both swap instructions,
// submit, and record the outcome. Only one execution runs at a time;
// concurrent calls fail fast with ErrBusy.
func (s *Service) Execute(ctx context.Context, strategyID, amount string) (domain.LoanResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return domain.LoanResult{}, domain.ErrBusy
	}
	defer s.busy.Store(false)

	route, err := s.catalog.Get(strategyID)
	if err != nil {
		return domain.LoanResult{}, err
	}
	units, err := ParseAmount(amount, route.Strategy)
	if err != nil {
		return domain.LoanResult{}, err
	}
	if !units.IsUint64() {
		return domain.LoanResult{}, fmt.Errorf("amount exceeds u64: %w", domain.ErrInvalidAmount)
	}

	state := s.session.State()
	if !state.Connected || state.NeonAddress == "" {
		return domain.LoanResult{}, domain.ErrNotConnected
	}

	if err := s.ensureNetwork(ctx); err != nil {
		return s.recordFailure(ctx, route, units, "", err)
	}

	if err := s.ensureFunded(ctx, state.NeonAddress, units); err != nil {
		return s.recordFailure(ctx, route, units, "", err)
	}

	instr1, instr2, err := s.buildInstructions(ctx, route, units.Uint64())
	if err != nil {
		return s.recordFailure(ctx, route, units, "", err)
	}

	before, err := s.contract.TokenBalance(ctx, s.contract.ContractAddress())
	if err != nil {
		return s.recordFailure(ctx, route, units, "", fmt.Errorf("reading balance: %w", err))
	}

	txHash, err := s.contract.FlashLoanSimple(ctx, units, instr1, instr2)
	if err != nil {
		return s.recordFailure(ctx, route, units, txHash, err)
	}

	return s.recordSuccess(ctx, route, units, txHash, before)
}

// ensureNetwork verifies the wallet points at the configured chain,
// switching or registering it as needed.
func (s *Service) ensureNetwork(ctx context.Context) error {
	if s.network == nil {
		return nil
	}
	chainID, err := s.network.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("reading chain id: %w", err)
	}
	if chainID == s.cfg.ChainID {
		return nil
	}
	err = s.network.SwitchChain(ctx, s.cfg.ChainID)
	if errors.Is(err, domain.ErrWrongNetwork) {
		return s.network.AddChain(ctx, s.cfg.ChainParams)
	}
	return err
}

// ensureFunded checks the contract's token balance covers the loan, topping
// it up from the operator's own balance when short. A remaining shortfall
// fails the attempt unless AllowUnderfunded is set, in which case the
// transaction is left to revert on-chain.
func (s *Service) ensureFunded(ctx context.Context, operator string, units *big.Int) error {
	balance, err := s.contract.TokenBalance(ctx, s.contract.ContractAddress())
	if err != nil {
		return fmt.Errorf("funding check: %w", err)
	}
	if balance.Cmp(units) >= 0 {
		return nil
	}

	shortfall := new(big.Int).Sub(units, balance)
	var topupErr error
	opBalance, err := s.contract.TokenBalance(ctx, common.HexToAddress(operator))
	switch {
	case err != nil:
		topupErr = fmt.Errorf("reading operator balance: %w", err)
	case opBalance.Cmp(shortfall) < 0:
		topupErr = fmt.Errorf("operator holds %s of %s base units needed", opBalance, shortfall)
	default:
		txHash, err := s.contract.TransferToken(ctx, s.contract.ContractAddress(), shortfall)
		if err == nil {
			s.logger.Info("topped up contract reserve",
				"amount", shortfall.String(), "tx", txHash)
			return nil
		}
		topupErr = fmt.Errorf("top-up transfer: %w", err)
	}

	if s.cfg.AllowUnderfunded {
		s.logger.Warn("contract underfunded, proceeding anyway",
			"balance", balance.String(),
			"loan", units.String(),
			"error", topupErr.Error(),
		)
		return nil
	}
	return fmt.Errorf("contract holds %s base units, loan needs %s: %w", balance, units, topupErr)
}

// buildInstructions assembles the two encoded swap legs the contract relays
// to Solana. The reverse leg's minimum-out is pinned to the principal so a
// round trip that cannot repay the loan fails at the pool instead of inside
// the repayment transfer.
func (s *Service) buildInstructions(ctx context.Context, route Route, borrow uint64) ([]byte, []byte, error) {
	contractAddr := s.contract.ContractAddress()

	authority, err := s.contract.GetNeonAddress(ctx, contractAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving transfer authority: %w", err)
	}
	sourceAccount, err := s.deriveTokenAccount(route.Strategy.SourceMint, contractAddr)
	if err != nil {
		return nil, nil, err
	}
	targetAccount, err := s.deriveTokenAccount(route.Strategy.TargetMint, contractAddr)
	if err != nil {
		return nil, nil, err
	}

	estOut, err := s.estimateOut(ctx, route.Strategy, borrow)
	if err != nil {
		return nil, nil, err
	}
	minOut := applySlippage(estOut, s.cfg.SlippageBps)

	instr1, err := neon.EncodeSwapLeg(neon.SwapLeg{
		SwapProgram:   route.Forward.SwapProgram,
		Pool:          route.Forward.Pool,
		PoolAuthority: route.Forward.PoolAuthority,
		UserAuthority: authority,
		UserSource:    sourceAccount,
		PoolSource:    route.Forward.SourceVault,
		PoolDest:      route.Forward.DestVault,
		UserDest:      targetAccount,
		PoolMint:      route.Forward.PoolMint,
		PoolFee:       route.Forward.FeeAccount,
		AmountIn:      borrow,
		MinAmountOut:  minOut,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encoding forward leg: %w", err)
	}

	instr2, err := neon.EncodeSwapLeg(neon.SwapLeg{
		SwapProgram:   route.Reverse.SwapProgram,
		Pool:          route.Reverse.Pool,
		PoolAuthority: route.Reverse.PoolAuthority,
		UserAuthority: authority,
		UserSource:    targetAccount,
		PoolSource:    route.Reverse.SourceVault,
		PoolDest:      route.Reverse.DestVault,
		UserDest:      sourceAccount,
		PoolMint:      route.Reverse.PoolMint,
		PoolFee:       route.Reverse.FeeAccount,
		AmountIn:      estOut,
		MinAmountOut:  borrow,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encoding reverse leg: %w", err)
	}
	return instr1, instr2, nil
}

// applySlippage lowers an estimated output by the configured tolerance.
// Computed in big.Int; estOut near the u64 ceiling would overflow the
// intermediate product otherwise.
func applySlippage(estOut uint64, bps int) uint64 {
	out := new(big.Int).SetUint64(estOut)
	out.Mul(out, big.NewInt(int64(10_000-bps)))
	out.Div(out, big.NewInt(10_000))
	return out.Uint64()
}

// deriveTokenAccount computes the contract-owned token account for a mint.
func (s *Service) deriveTokenAccount(mint string, owner common.Address) (solana.PublicKey, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("mint %q: %w", mint, err)
	}
	salt := hex.EncodeToString(mintKey.Bytes())
	account, _, err := neon.DerivePDA(neon.SeedContractData, owner.Hex(), salt, s.programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("deriving token account for %s: %w", mint, err)
	}
	return account, nil
}

// estimateOut sizes the forward leg's output in target base units from the
// current Solana-side prices.
func (s *Service) estimateOut(ctx context.Context, strat domain.Strategy, borrow uint64) (uint64, error) {
	spreads, err := s.prices.Spreads(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching prices: %w", err)
	}
	var srcPrice, tgtPrice float64
	for _, sp := range spreads {
		switch sp.Token {
		case strat.SourceToken:
			srcPrice = sp.SolanaPrice
		case strat.TargetToken:
			tgtPrice = sp.SolanaPrice
		}
	}
	if srcPrice <= 0 || tgtPrice <= 0 {
		return 0, fmt.Errorf("no price for %s/%s pair", strat.SourceToken, strat.TargetToken)
	}

	out := decimal.NewFromBigInt(new(big.Int).SetUint64(borrow), 0).
		Shift(-strat.Decimals).
		Mul(decimal.NewFromFloat(srcPrice)).
		Div(decimal.NewFromFloat(tgtPrice)).
		Shift(strat.TargetDecimals)
	units := out.BigInt()
	if !units.IsUint64() || units.Sign() <= 0 {
		return 0, fmt.Errorf("estimated output %s out of range: %w", out, domain.ErrInvalidAmount)
	}
	return units.Uint64(), nil
}

func (s *Service) recordSuccess(ctx context.Context, route Route, units *big.Int, txHash string, before *big.Int) (domain.LoanResult, error) {
	loan, err := s.contract.LastLoan(ctx)
	if err != nil {
		s.logger.Warn("reading last loan failed", "error", err)
		loan = units
	}
	fee, err := s.contract.LastLoanFee(ctx)
	if err != nil {
		s.logger.Warn("reading last loan fee failed", "error", err)
		fee = big.NewInt(0)
	}

	profit := 0.0
	if after, err := s.contract.TokenBalance(ctx, s.contract.ContractAddress()); err == nil {
		profit = unitsToFloat(new(big.Int).Sub(after, before), route.Strategy.Decimals)
	} else {
		s.logger.Warn("reading post-loan balance failed", "error", err)
	}

	rec := domain.LoanRecord{
		ID:        s.newID(),
		TxHash:    txHash,
		Strategy:  route.Strategy.ID,
		Amount:    units.String(),
		Profit:    profit,
		Status:    domain.LoanSuccess,
		Timestamp: s.now(),
	}
	result := domain.LoanResult{
		Record:  rec,
		Borrow:  domain.LegSuccess,
		Swap:    domain.LegSuccess,
		Repay:   domain.LegSuccess,
		Derived: true,
	}

	s.logger.Info("loan succeeded",
		"strategy", route.Strategy.ID, "tx_hash", txHash,
		"borrowed", loan.String(), "fee", fee.String(), "profit", profit)
	s.persist(ctx, result)
	return result, nil
}

func (s *Service) recordFailure(ctx context.Context, route Route, units *big.Int, txHash string, cause error) (domain.LoanResult, error) {
	rec := domain.LoanRecord{
		ID:        s.newID(),
		TxHash:    txHash,
		Strategy:  route.Strategy.ID,
		Amount:    units.String(),
		Status:    domain.LoanFailed,
		Error:     cause.Error(),
		Timestamp: s.now(),
	}
	result := domain.LoanResult{
		Record:  rec,
		Borrow:  domain.LegFailed,
		Swap:    domain.LegFailed,
		Repay:   domain.LegFailed,
		Derived: true,
	}

	s.logger.Warn("loan failed", "strategy", route.Strategy.ID, "tx_hash", txHash, "error", cause)
	s.persist(ctx, result)
	return result, fmt.Errorf("flashloan: %w", cause)
}

func (s *Service) persist(ctx context.Context, result domain.LoanResult) {
	if err := s.store.Record(ctx, result.Record); err != nil {
		s.logger.Error("recording loan failed", "error", err)
	}
	if s.bus != nil {
		if err := s.bus.Publish(ctx, ChannelLoans, result); err != nil {
			s.logger.Warn("publishing loan result failed", "error", err)
		}
	}
}
