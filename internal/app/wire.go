package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neonflash/neonflash/internal/cache/redis"
	"github.com/neonflash/neonflash/internal/config"
	"github.com/neonflash/neonflash/internal/crypto"
	"github.com/neonflash/neonflash/internal/domain"
	"github.com/neonflash/neonflash/internal/faucet"
	"github.com/neonflash/neonflash/internal/flashloan"
	"github.com/neonflash/neonflash/internal/notify"
	"github.com/neonflash/neonflash/internal/platform/coingecko"
	"github.com/neonflash/neonflash/internal/platform/jupiter"
	"github.com/neonflash/neonflash/internal/platform/neonevm"
	"github.com/neonflash/neonflash/internal/pricefeed"
	filestore "github.com/neonflash/neonflash/internal/store/file"
	"github.com/neonflash/neonflash/internal/store/postgres"
	"github.com/neonflash/neonflash/internal/wallet"
)

// Dependencies bundles every domain-level dependency the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function. Wallet-bound fields (Session, NeonWallet, Neon, Loans)
// are nil in monitor mode.
type Dependencies struct {
	// Persistence and pub/sub
	LoanStore   domain.LoanStore
	SpreadCache domain.PriceCache
	SignalBus   domain.SignalBus

	// Services
	Prices *pricefeed.Service
	Loans  *flashloan.Service

	// Wallet and chain clients
	Session    *wallet.Session
	NeonWallet *wallet.KeystoreProvider
	Neon       *neonevm.Client

	// Devnet funding
	NeonFaucet   *faucet.NeonClient
	SolanaFaucet *faucet.SolanaClient

	// Notifications
	Notifier *notify.Notifier
}

// needsWallet returns true for modes that sign transactions or expose the
// session API.
func needsWallet(mode string) bool {
	switch mode {
	case "server", "loan", "full":
		return true
	default:
		return false
	}
}

// needsLoanStore returns true for modes that record or serve loan history.
func needsLoanStore(mode string) bool {
	return needsWallet(mode)
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis (cache + signal bus, all modes) ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.SpreadCache = redis.NewSpreadCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Loan store (modes that record or serve loan history) ---
	if needsLoanStore(cfg.Mode) {
		switch cfg.Store.Backend {
		case "postgres":
			pgClient, err := postgres.New(ctx, postgres.ClientConfig{
				DSN:      cfg.Store.Postgres.DSN,
				Host:     cfg.Store.Postgres.Host,
				Port:     cfg.Store.Postgres.Port,
				Database: cfg.Store.Postgres.Database,
				User:     cfg.Store.Postgres.User,
				Password: cfg.Store.Postgres.Password,
				SSLMode:  cfg.Store.Postgres.SSLMode,
				MaxConns: cfg.Store.Postgres.PoolMaxConns,
				MinConns: cfg.Store.Postgres.PoolMinConns,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres: %w", err)
			}
			closers = append(closers, pgClient.Close)

			if cfg.Store.Postgres.RunMigrations {
				if err := pgClient.RunMigrations(ctx); err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
				}
			}
			deps.LoanStore = postgres.NewLoanStore(pgClient.Pool(), logger)
		default:
			deps.LoanStore = filestore.New(cfg.Store.Path, logger)
		}
	}

	// --- Price aggregation (all modes) ---
	tokens := make([]pricefeed.TokenPair, 0, len(cfg.Prices.Tokens))
	for _, t := range cfg.Prices.Tokens {
		tokens = append(tokens, pricefeed.TokenPair{
			Symbol:      t.Symbol,
			CoingeckoID: t.CoingeckoID,
			SolanaMint:  t.Mint,
		})
	}
	deps.Prices = pricefeed.New(
		coingecko.New(cfg.Prices.CoingeckoURL),
		jupiter.New(cfg.Prices.JupiterURL),
		deps.SpreadCache,
		deps.SignalBus,
		pricefeed.Config{
			Tokens:   tokens,
			CacheTTL: cfg.Prices.CacheTTL.Duration,
			Interval: cfg.Prices.Interval.Duration,
		},
		logger,
	)

	// --- Devnet faucets ---
	neonFaucet, err := faucet.NewNeonClient(cfg.Faucet.NeonURL, cfg.Neon.RPCURL, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: neon faucet: %w", err)
	}
	deps.NeonFaucet = neonFaucet
	deps.SolanaFaucet = faucet.NewSolanaClient(cfg.Solana.RPCURL, logger)

	// --- Wallet, chain client, flash-loan orchestrator ---
	if needsWallet(cfg.Mode) {
		neonKey, err := crypto.LoadKey(crypto.KeySource{
			Raw:           cfg.Wallet.NeonPrivateKey,
			EncryptedPath: cfg.Wallet.EncryptedKeyPath,
			Password:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: neon key: %w", err)
		}

		keystore, err := wallet.NewKeystoreProvider(neonKey, cfg.Neon.RPCURL, cfg.Neon.ChainID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: keystore provider: %w", err)
		}
		closers = append(closers, keystore.Close)
		deps.NeonWallet = keystore

		providers := []wallet.Provider{keystore}
		if cfg.Wallet.SolanaPrivateKey != "" {
			keypair, err := wallet.NewKeypairProvider(cfg.Wallet.SolanaPrivateKey)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: keypair provider: %w", err)
			}
			providers = append(providers, keypair)
		}
		deps.Session = wallet.NewSession(providers, logger)

		// Mirror session snapshots onto the bus so the WebSocket hub can
		// fan them out.
		unsub := deps.Session.Subscribe(func(state domain.SessionState) {
			if err := deps.SignalBus.Publish(context.Background(), wallet.ChannelSession, state); err != nil {
				logger.Warn("wire: publishing session state", slog.String("error", err.Error()))
			}
		})
		closers = append(closers, unsub)

		neonClient, err := neonevm.New(neonevm.Config{
			RPCURL:          cfg.Neon.RPCURL,
			ChainID:         cfg.Neon.ChainID,
			ContractAddress: cfg.Neon.ContractAddress,
			TokenAddress:    cfg.Neon.TokenAddress,
		}, keystore, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: neon evm client: %w", err)
		}
		closers = append(closers, neonClient.Close)
		deps.Neon = neonClient

		loans, err := flashloan.NewService(
			flashloan.DefaultCatalog(),
			neonClient,
			deps.Session,
			keystore,
			deps.Prices,
			deps.LoanStore,
			deps.SignalBus,
			flashloan.Config{
				ChainID: cfg.Neon.ChainID,
				ChainParams: wallet.ChainParams{
					ChainID:     cfg.Neon.ChainID,
					Name:        cfg.Neon.ChainName,
					RPCURL:      cfg.Neon.RPCURL,
					Currency:    cfg.Neon.Currency,
					ExplorerURL: cfg.Neon.ExplorerURL,
				},
				NeonProgramID:    cfg.Neon.ProgramID,
				SlippageBps:      cfg.Loan.SlippageBps,
				AllowUnderfunded: cfg.Loan.AllowUnderfunded,
			},
			logger,
		)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: flashloan service: %w", err)
		}
		deps.Loans = loans
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
