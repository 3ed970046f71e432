package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Wallet.NeonPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	cfg.Neon.ContractAddress = "0x1111111111111111111111111111111111111111"
	cfg.Neon.TokenAddress = "0x2222222222222222222222222222222222222222"
	return cfg
}

func TestDefaultsValidateWithWallet(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "turbo" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"missing wallet key", func(c *Config) { c.Wallet.NeonPrivateKey = "" }},
		{"encrypted key without password", func(c *Config) {
			c.Wallet.NeonPrivateKey = ""
			c.Wallet.EncryptedKeyPath = "/keys/op.json"
		}},
		{"zero chain id", func(c *Config) { c.Neon.ChainID = 0 }},
		{"empty solana rpc", func(c *Config) { c.Solana.RPCURL = "" }},
		{"no price tokens", func(c *Config) { c.Prices.Tokens = nil }},
		{"bad store backend", func(c *Config) { c.Store.Backend = "sqlite" }},
		{"slippage out of range", func(c *Config) { c.Loan.SlippageBps = 10_000 }},
		{"bad server port", func(c *Config) { c.Server.Port = 70_000 }},
		{"loan mode without strategy", func(c *Config) { c.Mode = "loan"; c.Loan.Amount = "100" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "monitor"
log_level = "debug"

[server]
port = 9100

[prices]
interval = "15s"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Prices.Interval.Duration)
	// untouched defaults survive
	assert.Equal(t, uint64(245022926), cfg.Neon.ChainID)
	assert.Equal(t, "file", cfg.Store.Backend)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = \"monitor\"\n"), 0o600))

	t.Setenv("NEONFLASH_MODE", "full")
	t.Setenv("NEONFLASH_NEON_CHAIN_ID", "245022934")
	t.Setenv("NEONFLASH_LOAN_ALLOW_UNDERFUNDED", "true")
	t.Setenv("NEONFLASH_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, uint64(245022934), cfg.Neon.ChainID)
	assert.True(t, cfg.Loan.AllowUnderfunded)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Wallet.KeyPassword = "hunter2"
	cfg.Redis.Password = "redispass"
	cfg.Notify.TelegramToken = "123:abc"
	cfg.Server.APIKey = "topsecret"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Wallet.NeonPrivateKey)
	assert.Equal(t, "***", red.Wallet.KeyPassword)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	assert.Equal(t, "***", red.Server.APIKey)
	// originals untouched
	assert.Equal(t, "hunter2", cfg.Wallet.KeyPassword)
	// non-secrets pass through
	assert.Equal(t, cfg.Neon.RPCURL, red.Neon.RPCURL)
}
