// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/planwise/planwise/internal/apperrors"
)

// Groq API keys look like "gsk_" followed by at least 20 key characters.
var groqKeyPattern = regexp.MustCompile(`^gsk_[A-Za-z0-9_-]{20,}$`)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"4000"`

	// Persistence
	DatabasePath string `envconfig:"DATABASE_PATH" default:"planwise.db"`

	// Auth
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// Groq (story generation)
	GroqAPIKey      string        `envconfig:"GROQ_API_KEY"`
	GroqModel       string        `envconfig:"GROQ_MODEL"`    // override: skips discovery and ranking
	GroqBaseURL     string        `envconfig:"GROQ_BASE_URL"` // defaults to the public endpoint
	ModelCacheTTL   time.Duration `envconfig:"MODEL_CACHE_TTL" default:"15m"`
	ModelPolicyPath string        `envconfig:"MODEL_POLICY_PATH"` // optional YAML overriding fallback/disallowed lists

	// HTTP hardening
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"100"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// GroqConfigured returns true if a Groq API key is present at all.
func (c *Config) GroqConfigured() bool {
	return c.GroqAPIKey != ""
}

// ValidateGroqKey checks the key against the provider's format convention.
// A missing or malformed key is a misconfiguration, not an upstream failure.
func (c *Config) ValidateGroqKey() error {
	if c.GroqAPIKey == "" {
		return fmt.Errorf("%w: GROQ_API_KEY is not set", apperrors.ErrConfig)
	}
	if !groqKeyPattern.MatchString(c.GroqAPIKey) {
		return fmt.Errorf("%w: GROQ_API_KEY does not match the expected gsk_ format (masked: %s)",
			apperrors.ErrConfig, MaskKey(c.GroqAPIKey))
	}
	return nil
}

// MaskKey keeps the first and last four characters for log diagnostics.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
