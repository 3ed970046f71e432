// Package server is the HTTP + WebSocket API surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/neonflash/neonflash/internal/server/handler"
	"github.com/neonflash/neonflash/internal/server/middleware"
	"github.com/neonflash/neonflash/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers the server registers.
type Handlers struct {
	Health     *handler.HealthHandler
	Prices     *handler.PriceHandler
	Airdrop    *handler.AirdropHandler
	Session    *handler.SessionHandler
	Loans      *handler.LoanHandler
	Strategies *handler.StrategyHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (auth, logging, CORS) in place.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required for the rest of the chain either; the
	// auth middleware wraps everything uniformly).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Aggregated prices.
	mux.HandleFunc("GET /api/prices", handlers.Prices.GetPrices)

	// Devnet funding.
	mux.HandleFunc("POST /api/airdrop", handlers.Airdrop.RequestAirdrop)

	// Wallet session.
	mux.HandleFunc("GET /api/session", handlers.Session.GetSession)
	mux.HandleFunc("POST /api/session/connect", handlers.Session.Connect)
	mux.HandleFunc("POST /api/session/disconnect", handlers.Session.Disconnect)

	// Strategy catalog.
	mux.HandleFunc("GET /api/strategies", handlers.Strategies.ListStrategies)

	// Loan execution and metrics.
	mux.HandleFunc("POST /api/loans", handlers.Loans.ExecuteLoan)
	mux.HandleFunc("GET /api/loans", handlers.Loans.ListLoans)
	mux.HandleFunc("GET /api/loans/stats", handlers.Loans.GetStats)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
