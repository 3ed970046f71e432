package flashloan

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonflash/neonflash/internal/domain"
	"github.com/neonflash/neonflash/internal/wallet"
)

const testProgramID = "eeLSJgWzzxrqKv1UxtRVVH8FX3qCQWUs9QuAjJpETGU"

type fakeContract struct {
	mu          sync.Mutex
	balances    []*big.Int
	operatorBal *big.Int
	balanceErr  error
	transfers   []*big.Int
	transferErr error
	authority   solana.PublicKey
	txHash      string
	flashErr    error
	flashCalls  int
	instr1      []byte
	instr2      []byte
	flashGate   chan struct{}
	lastLoan    *big.Int
	lastFee     *big.Int
}

func (f *fakeContract) ContractAddress() common.Address {
	return common.HexToAddress("0x1111111111111111111111111111111111111111")
}

func (f *fakeContract) GetNeonAddress(context.Context, common.Address) (solana.PublicKey, error) {
	return f.authority, nil
}

// TokenBalance pops staged contract balances (holding the last) and serves a
// fixed operator balance for any other owner.
func (f *fakeContract) TokenBalance(_ context.Context, owner common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	if owner != f.ContractAddress() {
		if f.operatorBal == nil {
			return big.NewInt(0), nil
		}
		return f.operatorBal, nil
	}
	if len(f.balances) == 0 {
		return big.NewInt(0), nil
	}
	next := f.balances[0]
	if len(f.balances) > 1 {
		f.balances = f.balances[1:]
	}
	return next, nil
}

func (f *fakeContract) TransferToken(_ context.Context, _ common.Address, amount *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferErr != nil {
		return "", f.transferErr
	}
	f.transfers = append(f.transfers, new(big.Int).Set(amount))
	return "0x70b0b", nil
}

func (f *fakeContract) FlashLoanSimple(_ context.Context, _ *big.Int, instr1, instr2 []byte) (string, error) {
	f.mu.Lock()
	f.flashCalls++
	f.instr1, f.instr2 = instr1, instr2
	gate := f.flashGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.txHash, f.flashErr
}

func (f *fakeContract) LastLoan(context.Context) (*big.Int, error) {
	if f.lastLoan == nil {
		return big.NewInt(0), nil
	}
	return f.lastLoan, nil
}

func (f *fakeContract) LastLoanFee(context.Context) (*big.Int, error) {
	if f.lastFee == nil {
		return big.NewInt(0), nil
	}
	return f.lastFee, nil
}

type fakeNetwork struct {
	chainID     uint64
	switchErr   error
	switchCalls []uint64
	addCalls    []wallet.ChainParams
}

func (f *fakeNetwork) ChainID(context.Context) (uint64, error) { return f.chainID, nil }

func (f *fakeNetwork) SwitchChain(_ context.Context, chainID uint64) error {
	f.switchCalls = append(f.switchCalls, chainID)
	if f.switchErr != nil {
		return f.switchErr
	}
	f.chainID = chainID
	return nil
}

func (f *fakeNetwork) AddChain(_ context.Context, params wallet.ChainParams) error {
	f.addCalls = append(f.addCalls, params)
	f.chainID = params.ChainID
	return nil
}

type fakeSession struct{ state domain.SessionState }

func (f *fakeSession) State() domain.SessionState { return f.state }

type fakePrices struct {
	spreads []domain.TokenSpread
	err     error
}

func (f *fakePrices) Spreads(context.Context) ([]domain.TokenSpread, error) {
	return f.spreads, f.err
}

type memStore struct {
	mu      sync.Mutex
	records []domain.LoanRecord
}

func (m *memStore) Record(_ context.Context, rec domain.LoanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) Aggregate(context.Context) (domain.LoanStats, error) {
	return domain.LoanStats{}, nil
}

func (m *memStore) List(context.Context, int) ([]domain.LoanRecord, error) { return nil, nil }

func (m *memStore) Subscribe(func(domain.LoanRecord)) func() { return func() {} }

func (m *memStore) all() []domain.LoanRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LoanRecord(nil), m.records...)
}

type serviceFixture struct {
	svc      *Service
	contract *fakeContract
	network  *fakeNetwork
	store    *memStore
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	contract := &fakeContract{
		balances:  []*big.Int{big.NewInt(100_000_000_000)},
		authority: solana.MustPublicKeyFromBase58("7sNSSYkmWNUPMQXzFA1tt6aJ85DdMDgp1Gv8hKrU8L1z"),
		txHash:    "0xfeed",
	}
	network := &fakeNetwork{chainID: 245022926}
	store := &memStore{}
	prices := &fakePrices{spreads: []domain.TokenSpread{
		{Token: "USDC", SolanaPrice: 1.0},
		{Token: "SOL", SolanaPrice: 100.0},
	}}
	session := &fakeSession{state: domain.SessionState{
		Connected:   true,
		Provider:    domain.ProviderNeon,
		NeonAddress: "0x1234567890abcdef1234567890abcdef12345678",
	}}

	svc, err := NewService(DefaultCatalog(), contract, session, network, prices, store, nil, Config{
		ChainID:       245022926,
		ChainParams:   wallet.ChainParams{ChainID: 245022926, Name: "Neon Devnet"},
		NeonProgramID: testProgramID,
		SlippageBps:   50,
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return &serviceFixture{svc: svc, contract: contract, network: network, store: store}
}

func TestExecuteSuccessRecordsLoan(t *testing.T) {
	fx := newFixture(t)
	// funding check, pre-loan balance, post-loan balance
	fx.contract.balances = []*big.Int{
		big.NewInt(100_000_000_000),
		big.NewInt(100_000_000_000),
		big.NewInt(100_012_500_000),
	}
	fx.contract.lastLoan = big.NewInt(100_000_000)
	fx.contract.lastFee = big.NewInt(90_000)

	result, err := fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	require.NoError(t, err)

	assert.Equal(t, domain.LoanSuccess, result.Record.Status)
	assert.Equal(t, "0xfeed", result.Record.TxHash)
	assert.Equal(t, "100000000", result.Record.Amount)
	assert.InDelta(t, 12.5, result.Record.Profit, 1e-9)
	assert.Equal(t, domain.LegSuccess, result.Borrow)
	assert.Equal(t, domain.LegSuccess, result.Swap)
	assert.Equal(t, domain.LegSuccess, result.Repay)
	assert.True(t, result.Derived)

	records := fx.store.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.LoanSuccess, records[0].Status)
	assert.NotEmpty(t, records[0].ID)
}

func TestExecuteEncodesBothLegs(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	require.NoError(t, err)

	// Each leg: program(32) + count(8) + 10 accounts(34 each) + len(8) + data(17).
	assert.Len(t, fx.contract.instr1, 32+8+10*34+8+17)
	assert.Len(t, fx.contract.instr2, 32+8+10*34+8+17)
	assert.NotEqual(t, fx.contract.instr1, fx.contract.instr2)
}

func TestExecuteUnknownStrategy(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.Execute(context.Background(), "nope", "100")
	require.ErrorIs(t, err, domain.ErrUnknownStrategy)
	assert.Empty(t, fx.store.all())
	assert.Zero(t, fx.contract.flashCalls)
}

func TestExecuteInvalidAmountNotRecorded(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.Execute(context.Background(), "usdc-wsol", "9.999999")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Empty(t, fx.store.all())
}

func TestExecuteRequiresSession(t *testing.T) {
	fx := newFixture(t)
	fx.svc.session = &fakeSession{state: domain.SessionState{}}
	_, err := fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	require.ErrorIs(t, err, domain.ErrNotConnected)
	assert.Empty(t, fx.store.all())
}

func TestExecuteRejectsConcurrentRuns(t *testing.T) {
	fx := newFixture(t)
	gate := make(chan struct{})
	fx.contract.flashGate = gate

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	}()

	require.Eventually(t, fx.svc.Busy, time.Second, time.Millisecond)
	_, err := fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	assert.ErrorIs(t, err, domain.ErrBusy)

	close(gate)
	<-done
	assert.False(t, fx.svc.Busy())
}

func TestExecuteSwitchesNetwork(t *testing.T) {
	fx := newFixture(t)
	fx.network.chainID = 1

	_, err := fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	require.NoError(t, err)
	assert.Equal(t, []uint64{245022926}, fx.network.switchCalls)
	assert.Empty(t, fx.network.addCalls)
}

func TestExecuteRegistersUnknownNetwork(t *testing.T) {
	fx := newFixture(t)
	fx.network.chainID = 1
	fx.network.switchErr = domain.ErrWrongNetwork

	_, err := fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	require.NoError(t, err)
	require.Len(t, fx.network.addCalls, 1)
	assert.Equal(t, uint64(245022926), fx.network.addCalls[0].ChainID)
}

func TestExecuteTopsUpContractWhenShort(t *testing.T) {
	fx := newFixture(t)
	// funding check (short), pre-loan balance, post-loan balance
	fx.contract.balances = []*big.Int{
		big.NewInt(50_000_000),
		big.NewInt(100_000_000),
		big.NewInt(100_012_500),
	}
	fx.contract.operatorBal = big.NewInt(1_000_000_000)

	_, err := fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	require.NoError(t, err)
	require.Len(t, fx.contract.transfers, 1)
	assert.Equal(t, big.NewInt(50_000_000), fx.contract.transfers[0])
	assert.Equal(t, 1, fx.contract.flashCalls)
}

func TestExecuteTopUpFailureRecordsFailure(t *testing.T) {
	fx := newFixture(t)
	fx.contract.balances = []*big.Int{big.NewInt(50_000_000)}
	fx.contract.operatorBal = big.NewInt(1_000_000_000)
	fx.contract.transferErr = errors.New("transfer reverted")

	result, err := fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	require.Error(t, err)
	assert.Zero(t, fx.contract.flashCalls)
	assert.Equal(t, domain.LoanFailed, result.Record.Status)
}

func TestExecuteUnderfundedFailsBeforeSubmit(t *testing.T) {
	fx := newFixture(t)
	fx.contract.balances = []*big.Int{big.NewInt(50_000_000)}

	result, err := fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	require.Error(t, err)
	assert.Zero(t, fx.contract.flashCalls)
	assert.Equal(t, domain.LoanFailed, result.Record.Status)
	assert.Empty(t, result.Record.TxHash)

	records := fx.store.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.LoanFailed, records[0].Status)
	assert.NotEmpty(t, records[0].Error)
}

func TestExecuteAllowUnderfundedProceeds(t *testing.T) {
	fx := newFixture(t)
	fx.svc.cfg.AllowUnderfunded = true
	fx.contract.balances = []*big.Int{big.NewInt(0)}

	_, err := fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	require.NoError(t, err)
	assert.Equal(t, 1, fx.contract.flashCalls)
}

func TestExecuteRevertRecordsFailureWithHash(t *testing.T) {
	fx := newFixture(t)
	fx.contract.flashErr = errors.New("transaction 0xfeed reverted")

	result, err := fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	require.Error(t, err)
	assert.Equal(t, domain.LoanFailed, result.Record.Status)
	assert.Equal(t, "0xfeed", result.Record.TxHash)
	assert.Equal(t, domain.LegFailed, result.Borrow)
	assert.Equal(t, domain.LegFailed, result.Swap)
	assert.Equal(t, domain.LegFailed, result.Repay)
	assert.True(t, result.Derived)
	require.Len(t, fx.store.all(), 1)
}

func TestExecuteFailsWithoutPrices(t *testing.T) {
	fx := newFixture(t)
	fx.svc.prices = &fakePrices{err: errors.New("sources down")}

	result, err := fx.svc.Execute(context.Background(), "usdc-wsol", "100")
	require.Error(t, err)
	assert.Zero(t, fx.contract.flashCalls)
	assert.Equal(t, domain.LoanFailed, result.Record.Status)
}

func TestApplySlippage(t *testing.T) {
	assert.Equal(t, uint64(9_950), applySlippage(10_000, 50))
	assert.Equal(t, uint64(10_000), applySlippage(10_000, 0))
	// Large estimates must not overflow the intermediate product.
	assert.Equal(t, uint64(1_990_000_000_000_000_000), applySlippage(2_000_000_000_000_000_000, 50))
}

func TestStrategiesListsCatalog(t *testing.T) {
	fx := newFixture(t)
	strategies := fx.svc.Strategies()
	require.Len(t, strategies, 2)
	assert.Equal(t, "usdc-wsol", strategies[0].ID)
	assert.Equal(t, "usdc-samo", strategies[1].ID)
}

func TestCatalogGetUnknown(t *testing.T) {
	_, err := DefaultCatalog().Get("missing")
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
}
