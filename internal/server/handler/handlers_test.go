package handler

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonflash/neonflash/internal/domain"
)

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

// --- prices ---

type stubSpreads struct {
	spreads []domain.TokenSpread
	err     error
}

func (s *stubSpreads) Spreads(context.Context) ([]domain.TokenSpread, error) {
	return s.spreads, s.err
}

func TestGetPrices(t *testing.T) {
	h := NewPriceHandler(&stubSpreads{spreads: []domain.TokenSpread{
		{Token: "SOL", NeonPrice: 100, SolanaPrice: 101, SpreadBps: 100},
	}}, discard())

	rec := httptest.NewRecorder()
	h.GetPrices(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=30", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":[{"token":"SOL","neonPrice":100,"solanaPrice":101,"spreadBps":100,"updatedAt":"0001-01-01T00:00:00Z"}]}`, rec.Body.String())
}

func TestGetPricesUpstreamFailure(t *testing.T) {
	h := NewPriceHandler(&stubSpreads{err: errors.New("both sources down")}, discard())

	rec := httptest.NewRecorder()
	h.GetPrices(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"both sources down"}`, rec.Body.String())
}

// --- airdrop ---

type stubNeonFaucet struct {
	err      error
	wallet   string
	amount   int64
	balances []int64
	balErr   error
}

func (s *stubNeonFaucet) RequestNeon(_ context.Context, wallet string, amount int64) error {
	s.wallet, s.amount = wallet, amount
	return s.err
}

// Balance pops the next staged balance, holding the last one.
func (s *stubNeonFaucet) Balance(context.Context, string) (*big.Int, error) {
	if s.balErr != nil {
		return nil, s.balErr
	}
	if len(s.balances) == 0 {
		return big.NewInt(0), nil
	}
	bal := s.balances[0]
	if len(s.balances) > 1 {
		s.balances = s.balances[1:]
	}
	return big.NewInt(bal), nil
}

type stubSolanaFaucet struct {
	err     error
	address string
}

func (s *stubSolanaFaucet) RequestSOL(_ context.Context, address string, _ uint64) (string, error) {
	s.address = address
	return "5ig", s.err
}

func newAirdropHandler(neon *stubNeonFaucet, sol *stubSolanaFaucet) *AirdropHandler {
	return NewAirdropHandler(neon, sol, 100, 1_000_000_000, discard())
}

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h(rec, req)
	return rec
}

func TestAirdropNeon(t *testing.T) {
	neon := &stubNeonFaucet{balances: []int64{500, 600}}
	h := newAirdropHandler(neon, &stubSolanaFaucet{})

	rec := postJSON(t, h.RequestAirdrop, "/api/airdrop", `{"chain":"neon","address":"0xabc"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0xabc", neon.wallet)
	assert.Equal(t, int64(100), neon.amount)
	assert.JSONEq(t, `{"success":true,"before":"500","after":"600"}`, rec.Body.String())
}

func TestAirdropNeonBalanceSnapshotsBestEffort(t *testing.T) {
	neon := &stubNeonFaucet{balErr: errors.New("rpc down")}
	h := newAirdropHandler(neon, &stubSolanaFaucet{})

	rec := postJSON(t, h.RequestAirdrop, "/api/airdrop", `{"chain":"neon","address":"0xabc"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"before":"","after":""}`, rec.Body.String())
}

func TestAirdropSolana(t *testing.T) {
	sol := &stubSolanaFaucet{}
	h := newAirdropHandler(&stubNeonFaucet{}, sol)

	rec := postJSON(t, h.RequestAirdrop, "/api/airdrop", `{"chain":"solana","address":"4Nd1m"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4Nd1m", sol.address)
	assert.JSONEq(t, `{"success":true,"tx":"5ig"}`, rec.Body.String())
}

func TestAirdropUnknownChain(t *testing.T) {
	h := newAirdropHandler(&stubNeonFaucet{}, &stubSolanaFaucet{})

	rec := postJSON(t, h.RequestAirdrop, "/api/airdrop", `{"chain":"bitcoin","address":"bc1"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown chain")
}

func TestAirdropMissingAddress(t *testing.T) {
	h := newAirdropHandler(&stubNeonFaucet{}, &stubSolanaFaucet{})

	rec := postJSON(t, h.RequestAirdrop, "/api/airdrop", `{"chain":"neon"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAirdropRateLimited(t *testing.T) {
	neon := &stubNeonFaucet{err: domain.ErrRateLimited, balances: []int64{500}}
	h := newAirdropHandler(neon, &stubSolanaFaucet{})

	rec := postJSON(t, h.RequestAirdrop, "/api/airdrop", `{"chain":"neon","address":"0xabc"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"rate limited","before":"500","after":"500"}`, rec.Body.String())
}

// --- session ---

type stubSession struct {
	state       domain.SessionState
	connectErr  error
	connected   domain.ProviderKind
	disconnects int
}

func (s *stubSession) State() domain.SessionState { return s.state }

func (s *stubSession) Connect(_ context.Context, kind domain.ProviderKind) (domain.SessionState, error) {
	if s.connectErr != nil {
		return domain.SessionState{}, s.connectErr
	}
	s.connected = kind
	s.state = domain.SessionState{Connected: true, Provider: kind, NeonAddress: "0xabc"}
	return s.state, nil
}

func (s *stubSession) Disconnect() {
	s.disconnects++
	s.state = domain.SessionState{}
}

func TestSessionConnect(t *testing.T) {
	sess := &stubSession{}
	h := NewSessionHandler(sess, discard())

	rec := postJSON(t, h.Connect, "/api/session/connect", `{"provider":"neon"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ProviderNeon, sess.connected)
	assert.Contains(t, rec.Body.String(), `"connected":true`)
}

func TestSessionConnectUnknownProvider(t *testing.T) {
	h := NewSessionHandler(&stubSession{}, discard())

	rec := postJSON(t, h.Connect, "/api/session/connect", `{"provider":"ledger"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionConnectInFlight(t *testing.T) {
	h := NewSessionHandler(&stubSession{connectErr: domain.ErrConnectInFlight}, discard())

	rec := postJSON(t, h.Connect, "/api/session/connect", `{"provider":"neon"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSessionDisconnect(t *testing.T) {
	sess := &stubSession{state: domain.SessionState{Connected: true}}
	h := NewSessionHandler(sess, discard())

	rec := postJSON(t, h.Disconnect, "/api/session/disconnect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sess.disconnects)
	assert.Contains(t, rec.Body.String(), `"connected":false`)
}

// --- loans ---

type stubExecutor struct {
	result     domain.LoanResult
	err        error
	strategies []domain.Strategy
	calls      int
}

func (s *stubExecutor) Execute(context.Context, string, string) (domain.LoanResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubExecutor) Strategies() []domain.Strategy { return s.strategies }

type stubStore struct {
	records []domain.LoanRecord
	stats   domain.LoanStats
	err     error
}

func (s *stubStore) Record(context.Context, domain.LoanRecord) error { return nil }

func (s *stubStore) Aggregate(context.Context) (domain.LoanStats, error) { return s.stats, s.err }

func (s *stubStore) List(context.Context, int) ([]domain.LoanRecord, error) {
	return s.records, s.err
}

func (s *stubStore) Subscribe(func(domain.LoanRecord)) func() { return func() {} }

func TestExecuteLoanSuccess(t *testing.T) {
	exec := &stubExecutor{result: domain.LoanResult{
		Record: domain.LoanRecord{ID: "1", TxHash: "0xfeed", Status: domain.LoanSuccess},
		Borrow: domain.LegSuccess, Swap: domain.LegSuccess, Repay: domain.LegSuccess,
		Derived: true,
	}}
	h := NewLoanHandler(exec, &stubStore{}, discard())

	rec := postJSON(t, h.ExecuteLoan, "/api/loans", `{"strategy":"usdc-wsol","amount":"100"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, exec.calls)
	assert.Contains(t, rec.Body.String(), `"txHash":"0xfeed"`)
}

func TestExecuteLoanBusy(t *testing.T) {
	h := NewLoanHandler(&stubExecutor{err: domain.ErrBusy}, &stubStore{}, discard())

	rec := postJSON(t, h.ExecuteLoan, "/api/loans", `{"strategy":"usdc-wsol","amount":"100"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestExecuteLoanValidation(t *testing.T) {
	h := NewLoanHandler(&stubExecutor{err: domain.ErrInvalidAmount}, &stubStore{}, discard())

	rec := postJSON(t, h.ExecuteLoan, "/api/loans", `{"strategy":"usdc-wsol","amount":"2"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.ExecuteLoan, "/api/loans", `{"strategy":"usdc-wsol"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteLoanFailedRunReturnsRecord(t *testing.T) {
	exec := &stubExecutor{
		result: domain.LoanResult{
			Record:  domain.LoanRecord{ID: "1", Status: domain.LoanFailed, Error: "reverted"},
			Borrow:  domain.LegFailed,
			Swap:    domain.LegFailed,
			Repay:   domain.LegFailed,
			Derived: true,
		},
		err: errors.New("flashloan: transaction reverted"),
	}
	h := NewLoanHandler(exec, &stubStore{}, discard())

	rec := postJSON(t, h.ExecuteLoan, "/api/loans", `{"strategy":"usdc-wsol","amount":"100"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"failed"`)
	assert.Contains(t, rec.Body.String(), "reverted")
}

func TestListLoansEmpty(t *testing.T) {
	h := NewLoanHandler(&stubExecutor{}, &stubStore{}, discard())

	rec := httptest.NewRecorder()
	h.ListLoans(rec, httptest.NewRequest(http.MethodGet, "/api/loans", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"loans":[]}`, rec.Body.String())
}

func TestGetStats(t *testing.T) {
	h := NewLoanHandler(&stubExecutor{}, &stubStore{stats: domain.LoanStats{
		TotalProfit:  12.5,
		SuccessCount: 3,
		FailCount:    1,
	}}, discard())

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/loans/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalProfit":12.5,"successCount":3,"failCount":1,"recent":[]}`, rec.Body.String())
}

func TestListStrategies(t *testing.T) {
	exec := &stubExecutor{strategies: []domain.Strategy{{
		ID:        "usdc-wsol",
		Name:      "USDC / wSOL round trip",
		MinAmount: big.NewInt(10_000_000),
		MaxAmount: big.NewInt(10_000_000_000),
	}}}
	h := NewStrategyHandler(exec, discard())

	rec := httptest.NewRecorder()
	h.ListStrategies(rec, httptest.NewRequest(http.MethodGet, "/api/strategies", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"usdc-wsol"`)
	// Clients get the validation bounds as decimal strings.
	assert.Contains(t, rec.Body.String(), `"minAmount":"10000000"`)
	assert.Contains(t, rec.Body.String(), `"maxAmount":"10000000000"`)
}
