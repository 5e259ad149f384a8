package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Origins   OriginsConfig
	RateLimit RateLimitConfig
	Backoff   BackoffConfig
	Turnstile TurnstileConfig
	OAuth     OAuthConfig
	Dispatch  DispatchConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) GetRedisAddr() string {
	return r.Host + ":" + r.Port
}

type OriginsConfig struct {
	Allowed []string
}

type RateLimitConfig struct {
	Window            time.Duration
	ClientLimit       int
	ElevatedLimit     int
	GlobalLimit       int
	ElevatedCountries []string
}

type BackoffConfig struct {
	DelayTable []time.Duration
	ResetAfter time.Duration
}

type TurnstileConfig struct {
	Secret    string // empty disables verification
	VerifyURL string
	Timeout   time.Duration
}

type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration
}

type DispatchConfig struct {
	SendURL   string
	Sender    string
	Recipient string
	Timeout   time.Duration
}

// Load builds the configuration from environment variables, applying
// defaults for everything except the downstream credentials.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Origins: OriginsConfig{
			Allowed: getEnvList("ALLOWED_ORIGINS", nil),
		},
		RateLimit: RateLimitConfig{
			Window:            getEnvDuration("RATE_LIMIT_WINDOW", time.Hour),
			ClientLimit:       getEnvInt("RATE_LIMIT_CLIENT", 3),
			ElevatedLimit:     getEnvInt("RATE_LIMIT_ELEVATED", 1),
			GlobalLimit:       getEnvInt("RATE_LIMIT_GLOBAL", 50),
			ElevatedCountries: getEnvList("ELEVATED_RISK_COUNTRIES", nil),
		},
		Backoff: BackoffConfig{
			DelayTable: []time.Duration{
				0,
				5 * time.Second,
				15 * time.Second,
				time.Minute,
				5 * time.Minute,
				15 * time.Minute,
			},
			ResetAfter: getEnvDuration("BACKOFF_RESET_AFTER", time.Hour),
		},
		Turnstile: TurnstileConfig{
			Secret:    getEnv("TURNSTILE_SECRET", ""),
			VerifyURL: getEnv("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
			Timeout:   getEnvDuration("TURNSTILE_TIMEOUT", 5*time.Second),
		},
		OAuth: OAuthConfig{
			TokenURL:     getEnv("OAUTH_TOKEN_URL", ""),
			ClientID:     getEnv("OAUTH_CLIENT_ID", ""),
			ClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
			Scope:        getEnv("OAUTH_SCOPE", "https://graph.microsoft.com/.default"),
			Timeout:      getEnvDuration("OAUTH_TIMEOUT", 10*time.Second),
		},
		Dispatch: DispatchConfig{
			SendURL:   getEnv("DISPATCH_SEND_URL", ""),
			Sender:    getEnv("DISPATCH_SENDER", ""),
			Recipient: getEnv("DISPATCH_RECIPIENT", ""),
			Timeout:   getEnvDuration("DISPATCH_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the gateway cannot run with. The
// Turnstile secret is deliberately optional: its absence disables the
// verification stage.
func (c *Config) Validate() error {
	if len(c.Origins.Allowed) == 0 {
		return errors.New("ALLOWED_ORIGINS must contain at least one origin")
	}
	if c.OAuth.TokenURL == "" || c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" {
		return errors.New("OAUTH_TOKEN_URL, OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET are required")
	}
	if c.Dispatch.SendURL == "" || c.Dispatch.Sender == "" || c.Dispatch.Recipient == "" {
		return errors.New("DISPATCH_SEND_URL, DISPATCH_SENDER and DISPATCH_RECIPIENT are required")
	}
	if c.RateLimit.ClientLimit <= 0 || c.RateLimit.GlobalLimit <= 0 {
		return errors.New("rate limit ceilings must be positive")
	}
	if c.RateLimit.ElevatedLimit > c.RateLimit.ClientLimit {
		return fmt.Errorf("elevated ceiling %d must not exceed the standard ceiling %d",
			c.RateLimit.ElevatedLimit, c.RateLimit.ClientLimit)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parts := strings.Split(val, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}
