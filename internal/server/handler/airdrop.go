package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
)

// NeonFaucet requests test NEON for an EVM address and reads its native
// balance for the before/after snapshots.
type NeonFaucet interface {
	RequestNeon(ctx context.Context, wallet string, amount int64) error
	Balance(ctx context.Context, wallet string) (*big.Int, error)
}

// SolanaFaucet airdrops lamports to a Solana address.
type SolanaFaucet interface {
	RequestSOL(ctx context.Context, address string, lamports uint64) (string, error)
}

// AirdropHandler serves the devnet funding endpoint.
type AirdropHandler struct {
	neon           NeonFaucet
	solana         SolanaFaucet
	neonAmount     int64
	solanaLamports uint64
	logger         *slog.Logger
}

func NewAirdropHandler(neon NeonFaucet, solana SolanaFaucet, neonAmount int64, solanaLamports uint64, logger *slog.Logger) *AirdropHandler {
	return &AirdropHandler{
		neon:           neon,
		solana:         solana,
		neonAmount:     neonAmount,
		solanaLamports: solanaLamports,
		logger:         logHandler(logger, "airdrop"),
	}
}

type airdropRequest struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
}

// RequestAirdrop funds an address on the named chain from its devnet faucet.
// The neon response carries best-effort before/after balance snapshots in
// wei, even when the faucet call itself fails.
// POST /api/airdrop
func (h *AirdropHandler) RequestAirdrop(w http.ResponseWriter, r *http.Request) {
	var req airdropRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	switch req.Chain {
	case "neon":
		before := h.neonBalance(r.Context(), req.Address)
		err := h.neon.RequestNeon(r.Context(), req.Address, h.neonAmount)
		after := h.neonBalance(r.Context(), req.Address)
		if err != nil {
			h.logger.Warn("neon airdrop failed", "address", req.Address, "error", err)
			writeJSON(w, statusFor(err), map[string]any{
				"success": false,
				"error":   err.Error(),
				"before":  before,
				"after":   after,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"before":  before,
			"after":   after,
		})
	case "solana":
		sig, err := h.solana.RequestSOL(r.Context(), req.Address, h.solanaLamports)
		if err != nil {
			h.logger.Warn("solana airdrop failed", "address", req.Address, "error", err)
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"tx":      sig,
		})
	default:
		writeError(w, http.StatusBadRequest, "unknown chain "+req.Chain+" (valid: neon, solana)")
	}
}

// neonBalance reads the native balance as a decimal wei string. Snapshots
// are best-effort; a failed read yields an empty string.
func (h *AirdropHandler) neonBalance(ctx context.Context, address string) string {
	bal, err := h.neon.Balance(ctx, address)
	if err != nil {
		h.logger.Debug("balance snapshot failed", "address", address, "error", err)
		return ""
	}
	return bal.String()
}
