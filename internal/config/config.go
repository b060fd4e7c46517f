package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

// Sender cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// StrategyDisabled turns off strategy fallback for a notification type.
const StrategyDisabled = "none"

type Config struct {
	DatabaseDSN            string `env:"DATABASE_DSN,required=true"`
	RedisURL               string `env:"REDIS_URL,required=true"`
	EmailProviderStrategy  string `env:"EMAIL_PROVIDER_STRATEGY,default=HighestPriorityStrategy"`
	SMSProviderStrategy    string `env:"SMS_PROVIDER_STRATEGY,default=HighestPriorityStrategy"`
	SenderCacheBackend     string `env:"SENDER_CACHE_BACKEND,default=memory"`
	SenderCacheTTLRaw      string `env:"SENDER_CACHE_TTL,default=12h"`
	SenderCacheMaxEntries  int    `env:"SENDER_CACHE_MAX_ENTRIES,default=1024"`
	SenderRateLimitEnabled bool   `env:"SMS_SENDER_RATE_LIMIT_ENABLED,default=false"`
	DBMaxOpenConns         int    `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBMaxIdleConns         int    `env:"DB_MAX_IDLE_CONNS,default=5"`
	OpsPort                int    `env:"OPS_PORT,default=8080"`
	LogLevel               string `env:"LOG_LEVEL,default=info"`
	LogFile                string `env:"LOG_FILE"`
	LogFileMaxSizeMB       int    `env:"LOG_FILE_MAX_SIZE_MB,default=100"`
	LogFileMaxBackups      int    `env:"LOG_FILE_MAX_BACKUPS,default=5"`
	LogFileMaxAgeDays      int    `env:"LOG_FILE_MAX_AGE_DAYS,default=30"`

	// SenderCacheTTL is parsed from SenderCacheTTLRaw by Load.
	SenderCacheTTL time.Duration
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	ttl, err := time.ParseDuration(strings.TrimSpace(c.SenderCacheTTLRaw))
	if err != nil {
		return fmt.Errorf("invalid SENDER_CACHE_TTL %q: %w", c.SenderCacheTTLRaw, err)
	}
	if ttl <= 0 {
		return fmt.Errorf("SENDER_CACHE_TTL must be positive, got %s", ttl)
	}
	c.SenderCacheTTL = ttl

	c.SenderCacheBackend = strings.ToLower(strings.TrimSpace(c.SenderCacheBackend))
	switch c.SenderCacheBackend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendNone:
	default:
		return fmt.Errorf("invalid SENDER_CACHE_BACKEND %q", c.SenderCacheBackend)
	}

	c.EmailProviderStrategy = strategyLabel(c.EmailProviderStrategy)
	c.SMSProviderStrategy = strategyLabel(c.SMSProviderStrategy)
	return nil
}

// strategyLabel maps the disabled marker to an empty label.
func strategyLabel(raw string) string {
	label := strings.TrimSpace(raw)
	if strings.EqualFold(label, StrategyDisabled) {
		return ""
	}
	return label
}
