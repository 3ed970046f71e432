package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/neonflash/neonflash/internal/domain"
)

// LoanExecutor runs flash-loan attempts and exposes the strategy catalog.
type LoanExecutor interface {
	Execute(ctx context.Context, strategyID, amount string) (domain.LoanResult, error)
	Strategies() []domain.Strategy
}

// LoanHandler serves loan execution and the loan metrics log.
type LoanHandler struct {
	executor LoanExecutor
	store    domain.LoanStore
	logger   *slog.Logger
}

func NewLoanHandler(executor LoanExecutor, store domain.LoanStore, logger *slog.Logger) *LoanHandler {
	return &LoanHandler{
		executor: executor,
		store:    store,
		logger:   logHandler(logger, "loans"),
	}
}

type executeRequest struct {
	Strategy string `json:"strategy"`
	Amount   string `json:"amount"`
}

// ExecuteLoan runs one flash-loan attempt. The response carries the terminal
// loan record whether the attempt succeeded or failed on-chain; only
// validation problems and concurrency rejections come back without one.
// POST /api/loans
func (h *LoanHandler) ExecuteLoan(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Strategy == "" || req.Amount == "" {
		writeError(w, http.StatusBadRequest, "strategy and amount are required")
		return
	}

	result, err := h.executor.Execute(r.Context(), req.Strategy, req.Amount)
	if err != nil {
		if result.Record.Status == domain.LoanFailed {
			// The attempt ran and failed; report the record alongside the error.
			writeJSON(w, statusFor(err), map[string]any{
				"error":  err.Error(),
				"result": result,
			})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListLoans returns recent loan records, newest first.
// GET /api/loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	records, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing loans failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []domain.LoanRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"loans": records})
}

// GetStats returns the aggregate metrics over the loan log.
// GET /api/loans/stats
func (h *LoanHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Aggregate(r.Context())
	if err != nil {
		h.logger.Error("aggregating loans failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats.Recent == nil {
		stats.Recent = []domain.LoanRecord{}
	}
	writeJSON(w, http.StatusOK, stats)
}
