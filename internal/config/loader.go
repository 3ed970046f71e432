package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies NEONFLASH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known NEONFLASH_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.NeonPrivateKey, "NEONFLASH_WALLET_NEON_PRIVATE_KEY")
	setStr(&cfg.Wallet.SolanaPrivateKey, "NEONFLASH_WALLET_SOLANA_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "NEONFLASH_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "NEONFLASH_WALLET_KEY_PASSWORD")

	// ── Neon ──
	setStr(&cfg.Neon.RPCURL, "NEONFLASH_NEON_RPC_URL")
	setUint64(&cfg.Neon.ChainID, "NEONFLASH_NEON_CHAIN_ID")
	setStr(&cfg.Neon.ChainName, "NEONFLASH_NEON_CHAIN_NAME")
	setStr(&cfg.Neon.Currency, "NEONFLASH_NEON_CURRENCY")
	setStr(&cfg.Neon.ExplorerURL, "NEONFLASH_NEON_EXPLORER_URL")
	setStr(&cfg.Neon.ContractAddress, "NEONFLASH_NEON_CONTRACT_ADDRESS")
	setStr(&cfg.Neon.TokenAddress, "NEONFLASH_NEON_TOKEN_ADDRESS")
	setStr(&cfg.Neon.ProgramID, "NEONFLASH_NEON_PROGRAM_ID")

	// ── Solana ──
	setStr(&cfg.Solana.RPCURL, "NEONFLASH_SOLANA_RPC_URL")

	// ── Prices ──
	setStr(&cfg.Prices.CoingeckoURL, "NEONFLASH_PRICES_COINGECKO_URL")
	setStr(&cfg.Prices.JupiterURL, "NEONFLASH_PRICES_JUPITER_URL")
	setDuration(&cfg.Prices.Interval, "NEONFLASH_PRICES_INTERVAL")
	setDuration(&cfg.Prices.CacheTTL, "NEONFLASH_PRICES_CACHE_TTL")

	// ── Faucet ──
	setStr(&cfg.Faucet.NeonURL, "NEONFLASH_FAUCET_NEON_URL")
	setInt64(&cfg.Faucet.NeonAmount, "NEONFLASH_FAUCET_NEON_AMOUNT")
	setInt64(&cfg.Faucet.SolanaLamports, "NEONFLASH_FAUCET_SOLANA_LAMPORTS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "NEONFLASH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "NEONFLASH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "NEONFLASH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "NEONFLASH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "NEONFLASH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "NEONFLASH_REDIS_TLS_ENABLED")

	// ── Store ──
	setStr(&cfg.Store.Backend, "NEONFLASH_STORE_BACKEND")
	setStr(&cfg.Store.Path, "NEONFLASH_STORE_PATH")
	setStr(&cfg.Store.Postgres.DSN, "NEONFLASH_STORE_POSTGRES_DSN")
	setStr(&cfg.Store.Postgres.Host, "NEONFLASH_STORE_POSTGRES_HOST")
	setInt(&cfg.Store.Postgres.Port, "NEONFLASH_STORE_POSTGRES_PORT")
	setStr(&cfg.Store.Postgres.Database, "NEONFLASH_STORE_POSTGRES_DATABASE")
	setStr(&cfg.Store.Postgres.User, "NEONFLASH_STORE_POSTGRES_USER")
	setStr(&cfg.Store.Postgres.Password, "NEONFLASH_STORE_POSTGRES_PASSWORD")
	setStr(&cfg.Store.Postgres.SSLMode, "NEONFLASH_STORE_POSTGRES_SSLMODE")
	setInt(&cfg.Store.Postgres.PoolMaxConns, "NEONFLASH_STORE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Store.Postgres.PoolMinConns, "NEONFLASH_STORE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Store.Postgres.RunMigrations, "NEONFLASH_STORE_POSTGRES_RUN_MIGRATIONS")

	// ── Loan ──
	setInt(&cfg.Loan.SlippageBps, "NEONFLASH_LOAN_SLIPPAGE_BPS")
	setBool(&cfg.Loan.AllowUnderfunded, "NEONFLASH_LOAN_ALLOW_UNDERFUNDED")
	setStr(&cfg.Loan.Strategy, "NEONFLASH_LOAN_STRATEGY")
	setStr(&cfg.Loan.Amount, "NEONFLASH_LOAN_AMOUNT")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "NEONFLASH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "NEONFLASH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "NEONFLASH_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "NEONFLASH_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "NEONFLASH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NEONFLASH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NEONFLASH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NEONFLASH_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "NEONFLASH_MODE")
	setStr(&cfg.LogLevel, "NEONFLASH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
