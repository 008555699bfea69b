package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Dedup modes
const (
	DedupOff    = "off"
	DedupMemory = "memory"
	DedupRedis  = "redis"
)

// Stream providers
const (
	StreamWS  = "ws"
	StreamRPC = "rpc"
)

type Config struct {
	// Ledger settings
	RPCUrl         string
	WSUrl          string
	StreamProvider string
	PollInterval   time.Duration

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Telegram
	BotToken  string
	ChannelID string
	CTALabel  string
	CTAURL    string

	// Price services
	CoinGeckoURL  string
	JupiterURL    string
	JupiterAPIKey string
	PriceCacheTTL time.Duration

	// Dedup and fan-out
	DedupMode      string
	DedupTTL       time.Duration
	DedupSize      int
	RedisAddr      string
	PublishReports bool

	// Ops API
	APIAddr string
	APIKey  string
	DevMode bool

	LogLevel string
}

func Load() *Config {
	rpcURL := getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")

	return &Config{
		// Ledger
		RPCUrl:         rpcURL,
		WSUrl:          getEnv("SOLANA_WS_URL", DeriveWSURL(rpcURL)),
		StreamProvider: strings.ToLower(getEnv("STREAM_PROVIDER", StreamWS)),
		PollInterval:   getDurationEnv("POLL_INTERVAL", 10*time.Second),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 1*time.Second),

		// Telegram
		BotToken:  getEnv("BOT_TOKEN", ""),
		ChannelID: getEnv("CHANNEL_ID", ""),
		CTALabel:  getEnv("CTA_LABEL", "New Mint"),
		CTAURL:    getEnv("CTA_URL", "https://t.me/newlymint"),

		// Prices
		CoinGeckoURL:  getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		JupiterURL:    getEnv("JUPITER_BASE_URL", ""),
		JupiterAPIKey: getEnv("JUPITER_API_KEY", ""),
		PriceCacheTTL: getDurationEnv("PRICE_CACHE_TTL", 15*time.Second),

		// Dedup / Redis
		DedupMode:      strings.ToLower(getEnv("DEDUP_MODE", DedupOff)),
		DedupTTL:       getDurationEnv("DEDUP_TTL", 24*time.Hour),
		DedupSize:      getIntEnv("DEDUP_SIZE", 10000),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		PublishReports: getBoolEnv("PUBLISH_REPORTS", false),

		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the settings the daemon cannot run without.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.ChannelID == "" {
		return fmt.Errorf("CHANNEL_ID is required")
	}
	return c.ValidateLedger()
}

// ValidateLedger checks everything except the Telegram credentials.
func (c *Config) ValidateLedger() error {
	if c.RPCUrl == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}

	switch c.StreamProvider {
	case StreamWS:
		if c.WSUrl == "" {
			return fmt.Errorf("SOLANA_WS_URL is required for the ws stream provider")
		}
	case StreamRPC:
		if c.PollInterval <= 0 {
			return fmt.Errorf("POLL_INTERVAL must be > 0")
		}
	default:
		return fmt.Errorf("unknown STREAM_PROVIDER: %s", c.StreamProvider)
	}

	switch c.DedupMode {
	case DedupOff, DedupMemory:
	case DedupRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when DEDUP_MODE=redis")
		}
	default:
		return fmt.Errorf("unknown DEDUP_MODE: %s", c.DedupMode)
	}

	if c.PublishReports && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when PUBLISH_REPORTS=true")
	}

	return nil
}

// DeriveWSURL maps an http(s) RPC endpoint to its ws(s) counterpart.
func DeriveWSURL(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	default:
		return rpcURL
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
