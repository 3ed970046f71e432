package domain

import "time"

// LoanStatus is the terminal outcome of a flash-loan attempt.
type LoanStatus string

const (
	LoanSuccess LoanStatus = "success"
	LoanFailed  LoanStatus = "failed"
)

// LegStatus tracks one logical leg (borrow, arbitrage, repay) of a loan
// attempt for display purposes. The three legs settle atomically in a single
// on-chain transaction, so leg statuses are derived from the overall outcome
// rather than observed independently.
type LegStatus string

const (
	LegPending LegStatus = "pending"
	LegSuccess LegStatus = "success"
	LegFailed  LegStatus = "failed"
)

// LoanResult is the full outcome of one orchestration run, including the
// informational per-leg breakdown.
type LoanResult struct {
	Record  LoanRecord  `json:"record"`
	Borrow  LegStatus   `json:"borrow"`
	Swap    LegStatus   `json:"swap"`
	Repay   LegStatus   `json:"repay"`
	Derived bool        `json:"legStatusDerived"` // legs mirror the single tx outcome
}

// LoanRecord is one entry in the append-only loan metrics log. Records are
// immutable once written; TxHash doubles as the idempotency key so recording
// the same loan twice collapses into one entry.
type LoanRecord struct {
	ID        string     `json:"id"`
	TxHash    string     `json:"txHash"`
	Strategy  string     `json:"strategy"`
	Amount    string     `json:"amount"` // base units, decimal string
	Profit    float64    `json:"profit"`
	Status    LoanStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// LoanStats is the aggregate view over the full loan log.
type LoanStats struct {
	TotalProfit  float64      `json:"totalProfit"` // successful entries only
	SuccessCount int          `json:"successCount"`
	FailCount    int          `json:"failCount"`
	Recent       []LoanRecord `json:"recent"` // newest first
}

// RecentLoanCount is how many entries Aggregate surfaces in LoanStats.Recent.
const RecentLoanCount = 5
