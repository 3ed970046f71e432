package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/neonflash/neonflash/internal/domain"
)

// SessionManager is the slice of the wallet session the HTTP surface uses.
type SessionManager interface {
	State() domain.SessionState
	Connect(ctx context.Context, kind domain.ProviderKind) (domain.SessionState, error)
	Disconnect()
}

// SessionHandler serves the wallet session endpoints.
type SessionHandler struct {
	session SessionManager
	logger  *slog.Logger
}

func NewSessionHandler(session SessionManager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		session: session,
		logger:  logHandler(logger, "session"),
	}
}

// GetSession returns the current session snapshot.
// GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.State())
}

type connectRequest struct {
	Provider string `json:"provider"`
}

// Connect establishes a wallet session through the named provider.
// POST /api/session/connect
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	kind := domain.ProviderKind(req.Provider)
	if kind != domain.ProviderNeon && kind != domain.ProviderSolana {
		writeError(w, http.StatusBadRequest, "unknown provider "+req.Provider+" (valid: neon, solana)")
		return
	}

	state, err := h.session.Connect(r.Context(), kind)
	if err != nil {
		h.logger.Warn("connect failed", "provider", req.Provider, "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Disconnect tears the session down. Idempotent.
// POST /api/session/disconnect
func (h *SessionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.session.Disconnect()
	writeJSON(w, http.StatusOK, h.session.State())
}
