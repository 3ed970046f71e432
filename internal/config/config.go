// Package config defines the top-level configuration for the NeonFlash
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by NEONFLASH_* environment
// variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Neon     NeonConfig     `toml:"neon"`
	Solana   SolanaConfig   `toml:"solana"`
	Prices   PricesConfig   `toml:"prices"`
	Faucet   FaucetConfig   `toml:"faucet"`
	Redis    RedisConfig    `toml:"redis"`
	Store    StoreConfig    `toml:"store"`
	Loan     LoanConfig     `toml:"loan"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the operator's signing keys for both chains.
type WalletConfig struct {
	NeonPrivateKey   string `toml:"neon_private_key"`
	SolanaPrivateKey string `toml:"solana_private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// NeonConfig holds the Neon EVM chain endpoints and contract deployments.
type NeonConfig struct {
	RPCURL          string `toml:"rpc_url"`
	ChainID         uint64 `toml:"chain_id"`
	ChainName       string `toml:"chain_name"`
	Currency        string `toml:"currency"`
	ExplorerURL     string `toml:"explorer_url"`
	ContractAddress string `toml:"contract_address"`
	TokenAddress    string `toml:"token_address"`
	ProgramID       string `toml:"program_id"` // base58 Neon EVM program on Solana
}

// SolanaConfig holds the Solana RPC endpoint.
type SolanaConfig struct {
	RPCURL string `toml:"rpc_url"`
}

// TokenConfig maps one tracked token to its price-source identifiers.
type TokenConfig struct {
	Symbol      string `toml:"symbol"`
	CoingeckoID string `toml:"coingecko_id"`
	Mint        string `toml:"mint"`
}

// PricesConfig holds the price aggregation endpoints and cadence.
type PricesConfig struct {
	CoingeckoURL string        `toml:"coingecko_url"`
	JupiterURL   string        `toml:"jupiter_url"`
	Interval     duration      `toml:"interval"`
	CacheTTL     duration      `toml:"cache_ttl"`
	Tokens       []TokenConfig `toml:"tokens"`
}

// FaucetConfig holds the devnet funding endpoints.
type FaucetConfig struct {
	NeonURL        string `toml:"neon_url"`
	NeonAmount     int64  `toml:"neon_amount"`
	SolanaLamports int64  `toml:"solana_lamports"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// StoreConfig selects where the loan log lives.
type StoreConfig struct {
	// Backend is "file" or "postgres".
	Backend  string         `toml:"backend"`
	Path     string         `toml:"path"` // file backend only
	Postgres PostgresConfig `toml:"postgres"`
}

// LoanConfig tunes the flash-loan orchestrator.
type LoanConfig struct {
	SlippageBps      int    `toml:"slippage_bps"`
	AllowUnderfunded bool   `toml:"allow_underfunded"`
	Strategy         string `toml:"strategy"` // one-shot loan mode
	Amount           string `toml:"amount"`   // one-shot loan mode, whole tokens
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration for TOML decoding.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the Neon devnet deployment.
func Defaults() Config {
	return Config{
		Neon: NeonConfig{
			RPCURL:      "https://devnet.neonevm.org",
			ChainID:     245022926,
			ChainName:   "Neon EVM Devnet",
			Currency:    "NEON",
			ExplorerURL: "https://devnet.neonscan.org",
			ProgramID:   "eeLSJgWzzxrqKv1UxtRVVH8FX3qCQWUs9QuAjJpETGU",
		},
		Solana: SolanaConfig{
			RPCURL: "https://api.devnet.solana.com",
		},
		Prices: PricesConfig{
			CoingeckoURL: "https://api.coingecko.com/api/v3",
			JupiterURL:   "https://lite-api.jup.ag/price/v2",
			Interval:     duration{time.Minute},
			CacheTTL:     duration{30 * time.Second},
			Tokens: []TokenConfig{
				{Symbol: "USDC", CoingeckoID: "usd-coin", Mint: "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"},
				{Symbol: "SOL", CoingeckoID: "solana", Mint: "So11111111111111111111111111111111111111112"},
				{Symbol: "SAMO", CoingeckoID: "samoyedcoin", Mint: "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"},
			},
		},
		Faucet: FaucetConfig{
			NeonURL:        "https://api.neonfaucet.org/request_neon",
			NeonAmount:     100,
			SolanaLamports: 1_000_000_000,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Store: StoreConfig{
			Backend: "file",
			Path:    "data/loans.json",
			Postgres: PostgresConfig{
				Host:          "localhost",
				Port:          5432,
				Database:      "neonflash",
				User:          "postgres",
				SSLMode:       "disable",
				PoolMaxConns:  10,
				PoolMinConns:  2,
				RunMigrations: true,
			},
		},
		Loan: LoanConfig{
			SlippageBps: 50,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"loan_success", "loan_failed"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"monitor": true,
	"loan":    true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validStoreBackends = map[string]bool{
	"file":     true,
	"postgres": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, monitor, loan, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Loan execution needs an EVM signing key.
	needsWallet := c.Mode == "loan" || c.Mode == "full" || c.Mode == "server"
	if needsWallet {
		if c.Wallet.NeonPrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either neon_private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	if c.Neon.RPCURL == "" {
		errs = append(errs, "neon: rpc_url must not be empty")
	}
	if c.Neon.ChainID == 0 {
		errs = append(errs, "neon: chain_id must be set")
	}
	if c.Neon.ProgramID == "" {
		errs = append(errs, "neon: program_id must not be empty")
	}
	if needsWallet {
		if c.Neon.ContractAddress == "" {
			errs = append(errs, "neon: contract_address must not be empty for mode "+c.Mode)
		}
		if c.Neon.TokenAddress == "" {
			errs = append(errs, "neon: token_address must not be empty for mode "+c.Mode)
		}
	}

	if c.Solana.RPCURL == "" {
		errs = append(errs, "solana: rpc_url must not be empty")
	}

	if c.Prices.CoingeckoURL == "" {
		errs = append(errs, "prices: coingecko_url must not be empty")
	}
	if c.Prices.JupiterURL == "" {
		errs = append(errs, "prices: jupiter_url must not be empty")
	}
	if c.Prices.Interval.Duration <= 0 {
		errs = append(errs, "prices: interval must be positive")
	}
	if c.Prices.CacheTTL.Duration <= 0 {
		errs = append(errs, "prices: cache_ttl must be positive")
	}
	if len(c.Prices.Tokens) == 0 {
		errs = append(errs, "prices: at least one token must be configured")
	}
	for i, tok := range c.Prices.Tokens {
		if tok.Symbol == "" || tok.CoingeckoID == "" || tok.Mint == "" {
			errs = append(errs, fmt.Sprintf("prices: tokens[%d] needs symbol, coingecko_id and mint", i))
		}
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if !validStoreBackends[c.Store.Backend] {
		errs = append(errs, fmt.Sprintf("store: unknown backend %q (valid: file, postgres)", c.Store.Backend))
	}
	if c.Store.Backend == "postgres" {
		pg := c.Store.Postgres
		if strings.TrimSpace(pg.DSN) == "" {
			if pg.Host == "" {
				errs = append(errs, "store: postgres host must not be empty (or set store.postgres.dsn)")
			}
			if pg.Port <= 0 || pg.Port > 65535 {
				errs = append(errs, fmt.Sprintf("store: postgres port must be 1-65535, got %d", pg.Port))
			}
			if pg.Database == "" {
				errs = append(errs, "store: postgres database must not be empty")
			}
		}
		if pg.PoolMaxConns < 1 {
			errs = append(errs, "store: postgres pool_max_conns must be >= 1")
		}
		if pg.PoolMinConns < 0 || pg.PoolMinConns > pg.PoolMaxConns {
			errs = append(errs, "store: postgres pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	if c.Loan.SlippageBps < 0 || c.Loan.SlippageBps >= 10_000 {
		errs = append(errs, fmt.Sprintf("loan: slippage_bps must be 0-9999, got %d", c.Loan.SlippageBps))
	}
	if c.Mode == "loan" {
		if c.Loan.Strategy == "" {
			errs = append(errs, "loan: strategy is required for loan mode")
		}
		if c.Loan.Amount == "" {
			errs = append(errs, "loan: amount is required for loan mode")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
