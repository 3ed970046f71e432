package handler

import (
	"log/slog"
	"net/http"
)

// StrategyHandler serves the read-only strategy catalog.
type StrategyHandler struct {
	executor LoanExecutor
	logger   *slog.Logger
}

func NewStrategyHandler(executor LoanExecutor, logger *slog.Logger) *StrategyHandler {
	return &StrategyHandler{
		executor: executor,
		logger:   logHandler(logger, "strategies"),
	}
}

// ListStrategies returns the catalog in registration order.
// GET /api/strategies
func (h *StrategyHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"strategies": h.executor.Strategies()})
}
