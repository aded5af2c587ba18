package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Claim policies accepted by CLAIM_POLICY
const (
	ClaimPolicyGoal = "goal"
	ClaimPolicyVote = "vote"
)

// Config holds all configuration values for the application
type Config struct {
	Port              string `env:"PORT" envDefault:"8080"`
	AllowedOriginsRaw string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:5173,http://localhost:5174"`
	AllowedOrigins    []string
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	Environment       string `env:"ENVIRONMENT" envDefault:"production"`
	DatabaseURL       string `env:"DATABASE_URL"`
	RedisURL          string `env:"REDIS_URL"`
	JWTSecret         string `env:"JWT_SECRET"`

	AdminPrincipal    string        `env:"ADMIN_PRINCIPAL"`
	EscrowPrincipal   string        `env:"ESCROW_PRINCIPAL" envDefault:"escrow"`
	ExchangeRate      uint64        `env:"EXCHANGE_RATE" envDefault:"100000"`
	ClaimPolicy       string        `env:"CLAIM_POLICY" envDefault:"goal"`
	ApprovalThreshold uint64        `env:"APPROVAL_THRESHOLD" envDefault:"70"`
	MaxCampaignWindow time.Duration `env:"MAX_CAMPAIGN_DURATION" envDefault:"2160h"`
	IdempotencyTTL    time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	EventLogSize      int           `env:"EVENT_LOG_SIZE" envDefault:"1024"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load loads configuration from .env (if present) and the process environment
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.AllowedOrigins = parseOrigins(cfg.AllowedOriginsRaw)
	return cfg, nil
}

// LoadFrom parses configuration from the given variables only, ignoring the process environment
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.AllowedOrigins = parseOrigins(cfg.AllowedOriginsRaw)
	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.AdminPrincipal) == "" {
		errs = append(errs, errors.New("ADMIN_PRINCIPAL is required"))
	}
	if strings.TrimSpace(c.EscrowPrincipal) == "" {
		errs = append(errs, errors.New("ESCROW_PRINCIPAL is required"))
	}
	if c.AdminPrincipal != "" && c.AdminPrincipal == c.EscrowPrincipal {
		errs = append(errs, errors.New("ADMIN_PRINCIPAL and ESCROW_PRINCIPAL must differ"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.ClaimPolicy != ClaimPolicyGoal && c.ClaimPolicy != ClaimPolicyVote {
		errs = append(errs, fmt.Errorf("CLAIM_POLICY must be %q or %q, got %q", ClaimPolicyGoal, ClaimPolicyVote, c.ClaimPolicy))
	}
	if c.ApprovalThreshold == 0 || c.ApprovalThreshold > 100 {
		errs = append(errs, fmt.Errorf("APPROVAL_THRESHOLD must be within 1..100, got %d", c.ApprovalThreshold))
	}
	if c.ExchangeRate == 0 {
		errs = append(errs, errors.New("EXCHANGE_RATE must be positive"))
	}
	if c.MaxCampaignWindow <= 0 {
		errs = append(errs, errors.New("MAX_CAMPAIGN_DURATION must be positive"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether keys and logs should use production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
