package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, 0.1, cfg.Payment.AmountXMR)
	assert.Equal(t, uint64(2), cfg.Payment.Confirmations)
	assert.Equal(t, 15*time.Second, cfg.Payment.PollInterval)
	assert.Equal(t, 30*time.Minute, cfg.Payment.PendingTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Payment.RetentionWindow)
	assert.Equal(t, "BLOG-ACCESS-", cfg.Payment.MemoPrefix)
	assert.Equal(t, 10, cfg.Payment.TokenLength)
	assert.Equal(t, 5, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 3, cfg.Wallet.MaxRetries)
}

func TestDefaultsDoNotOverrideExplicitValues(t *testing.T) {
	cfg := Config{
		Payment:   PaymentConfig{AmountXMR: 0.5, TokenLength: 16},
		RateLimit: RateLimitConfig{MaxRequests: 20},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, 0.5, cfg.Payment.AmountXMR)
	assert.Equal(t, 16, cfg.Payment.TokenLength)
	assert.Equal(t, 20, cfg.RateLimit.MaxRequests)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XMR_RPC_URL", "http://wallet:18083/json_rpc")
	t.Setenv("XMR_RPC_PASSWORD", "hunter2")
	t.Setenv("XMR_PAYMENT_AMOUNT", "0.25")

	var cfg Config
	cfg.applyEnvOverrides()

	assert.Equal(t, "http://wallet:18083/json_rpc", cfg.Wallet.RPCURL)
	assert.Equal(t, "hunter2", cfg.Wallet.Password)
	assert.Equal(t, 0.25, cfg.Payment.AmountXMR)
}
