package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Wallet    WalletConfig    `yaml:"wallet"`
	Payment   PaymentConfig   `yaml:"payment"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Access    AccessConfig    `yaml:"access"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	JWT       JWTConfig       `yaml:"jwt"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type WalletConfig struct {
	RPCURL       string        `yaml:"rpc_url"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	AccountIndex uint32        `yaml:"account_index"`
	MainAddress  string        `yaml:"main_address"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

type PaymentConfig struct {
	AmountXMR         float64       `yaml:"amount_xmr"`
	Confirmations     uint64        `yaml:"confirmations"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	PendingTTL        time.Duration `yaml:"pending_ttl"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	RetentionWindow   time.Duration `yaml:"retention_window"`
	RetentionInterval time.Duration `yaml:"retention_interval"`
	MemoPrefix        string        `yaml:"memo_prefix"`
	TokenLength       int           `yaml:"token_length"`
	LedgerFile        string        `yaml:"ledger_file"`
	ConcurrentWorkers int           `yaml:"concurrent_workers"`
}

type RateLimitConfig struct {
	MaxRequests   int           `yaml:"max_requests"`
	Window        time.Duration `yaml:"window"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type AccessConfig struct {
	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

type WebSocketConfig struct {
	ReadBufferSize  int  `yaml:"read_buffer_size"`
	WriteBufferSize int  `yaml:"write_buffer_size"`
	CheckOrigin     bool `yaml:"check_origin"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Load() (*Config, error) {
	// .env is optional outside development
	_ = godotenv.Load()

	configData, err := os.ReadFile("./config.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvOverrides()
	config.ApplyDefaults()

	return &config, nil
}

// applyEnvOverrides lets credentials live in the environment instead of
// config.yaml.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("XMR_RPC_URL"); v != "" {
		c.Wallet.RPCURL = v
	}
	if v := os.Getenv("XMR_RPC_USERNAME"); v != "" {
		c.Wallet.Username = v
	}
	if v := os.Getenv("XMR_RPC_PASSWORD"); v != "" {
		c.Wallet.Password = v
	}
	if v := os.Getenv("XMR_ADDRESS"); v != "" {
		c.Wallet.MainAddress = v
	}
	if v := os.Getenv("XMR_PAYMENT_AMOUNT"); v != "" {
		if amount, err := strconv.ParseFloat(v, 64); err == nil {
			c.Payment.AmountXMR = amount
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("PAYMENTS_FILE"); v != "" {
		c.Payment.LedgerFile = v
	}
}

func (c *Config) ApplyDefaults() {
	if c.Payment.AmountXMR == 0 {
		c.Payment.AmountXMR = 0.1
	}
	if c.Payment.Confirmations == 0 {
		c.Payment.Confirmations = 2
	}
	if c.Payment.PollInterval == 0 {
		c.Payment.PollInterval = 15 * time.Second
	}
	if c.Payment.PendingTTL == 0 {
		c.Payment.PendingTTL = 30 * time.Minute
	}
	if c.Payment.SweepInterval == 0 {
		c.Payment.SweepInterval = 5 * time.Minute
	}
	if c.Payment.RetentionWindow == 0 {
		c.Payment.RetentionWindow = 30 * 24 * time.Hour
	}
	if c.Payment.RetentionInterval == 0 {
		c.Payment.RetentionInterval = 12 * time.Hour
	}
	if c.Payment.MemoPrefix == "" {
		c.Payment.MemoPrefix = "BLOG-ACCESS-"
	}
	if c.Payment.TokenLength == 0 {
		c.Payment.TokenLength = 10
	}
	if c.Payment.LedgerFile == "" {
		c.Payment.LedgerFile = "./payments.json"
	}
	if c.Payment.ConcurrentWorkers == 0 {
		c.Payment.ConcurrentWorkers = 10
	}
	if c.Wallet.Timeout == 0 {
		c.Wallet.Timeout = 10 * time.Second
	}
	if c.Wallet.MaxRetries == 0 {
		c.Wallet.MaxRetries = 3
	}
	if c.Wallet.RetryDelay == 0 {
		c.Wallet.RetryDelay = time.Second
	}
	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = 5
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.RateLimit.SweepInterval == 0 {
		c.RateLimit.SweepInterval = 5 * time.Minute
	}
	if c.Access.CacheTTL == 0 {
		c.Access.CacheTTL = time.Minute
	}
	if c.WebSocket.ReadBufferSize == 0 {
		c.WebSocket.ReadBufferSize = 1024
	}
	if c.WebSocket.WriteBufferSize == 0 {
		c.WebSocket.WriteBufferSize = 1024
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
