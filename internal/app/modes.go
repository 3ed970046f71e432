package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neonflash/neonflash/internal/notify"
	"github.com/neonflash/neonflash/internal/server"
	"github.com/neonflash/neonflash/internal/server/handler"
	"github.com/neonflash/neonflash/internal/server/ws"
)

const httpShutdownTimeout = 10 * time.Second

// ServerMode exposes the REST + WebSocket API. The price loop is not
// started; spreads are refreshed on demand when the cache expires.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	deps.Session.AutoConnect(ctx)
	a.startLoanWatcher(ctx, deps)
	a.startHTTPServer(ctx, g, deps)

	return g.Wait()
}

// MonitorMode runs only the price aggregation loop, publishing spread
// updates to the cache and the signal bus.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Prices.Run(ctx)
	})

	return g.Wait()
}

// LoanMode executes a single flash loan for the configured strategy and
// amount, then exits.
func (a *App) LoanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting loan mode",
		slog.String("strategy", a.cfg.Loan.Strategy),
		slog.String("amount", a.cfg.Loan.Amount),
	)

	a.startLoanWatcher(ctx, deps)
	deps.Session.AutoConnect(ctx)

	result, err := deps.Loans.Execute(ctx, a.cfg.Loan.Strategy, a.cfg.Loan.Amount)
	if err != nil {
		a.logger.ErrorContext(ctx, "flash loan failed",
			slog.String("strategy", a.cfg.Loan.Strategy),
			slog.String("tx", result.Record.TxHash),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("app: loan mode: %w", err)
	}

	a.logger.InfoContext(ctx, "flash loan executed",
		slog.String("strategy", result.Record.Strategy),
		slog.String("tx", result.Record.TxHash),
		slog.Float64("profit", result.Record.Profit),
	)
	return nil
}

// FullMode runs everything: the price loop, the loan watcher, and the HTTP +
// WebSocket API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	deps.Session.AutoConnect(ctx)
	a.startLoanWatcher(ctx, deps)

	g.Go(func() error {
		return deps.Prices.Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps)

	return g.Wait()
}

// startLoanWatcher forwards loan records to the configured notification
// channels. The stop function is registered as a closer.
func (a *App) startLoanWatcher(ctx context.Context, deps *Dependencies) {
	watcher := notify.NewLoanWatcher(deps.Notifier, deps.LoanStore, a.logger)
	a.closers = append(a.closers, watcher.Start(ctx))
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Prices:  handler.NewPriceHandler(deps.Prices, a.logger),
		Airdrop: handler.NewAirdropHandler(
			deps.NeonFaucet,
			deps.SolanaFaucet,
			a.cfg.Faucet.NeonAmount,
			uint64(a.cfg.Faucet.SolanaLamports),
			a.logger,
		),
		Session:    handler.NewSessionHandler(deps.Session, a.logger),
		Loans:      handler.NewLoanHandler(deps.Loans, deps.LoanStore, a.logger),
		Strategies: handler.NewStrategyHandler(deps.Loans, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return srv.Start()
	})
}
