package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/neonflash/neonflash/internal/domain"
)

// SpreadSource provides the aggregated cross-chain spread table.
type SpreadSource interface {
	Spreads(ctx context.Context) ([]domain.TokenSpread, error)
}

// PriceHandler serves the aggregated price endpoints.
type PriceHandler struct {
	source SpreadSource
	logger *slog.Logger
}

func NewPriceHandler(source SpreadSource, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{
		source: source,
		logger: logHandler(logger, "prices"),
	}
}

// cacheHint tells clients how long the spread table stays fresh. It mirrors
// the server-side cache TTL.
const cacheHint = "public, max-age=30"

// GetPrices returns the current spread table.
// GET /api/prices
func (h *PriceHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	spreads, err := h.source.Spreads(r.Context())
	if err != nil {
		h.logger.Error("fetching spreads failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Cache-Control", cacheHint)
	writeJSON(w, http.StatusOK, map[string]any{"data": spreads})
}
