package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Gate policies understood by the subscription gate.
const (
	GatePolicyFirst  = "first"
	GatePolicyStrict = "strict"
)

const minCronSecretLen = 16

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema            string        `mapstructure:"DB_SCHEMA"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	CronSecret          string        `mapstructure:"CRON_SECRET"`
	SessionCookieName   string        `mapstructure:"SESSION_COOKIE_NAME"`
	SessionMaxAge       time.Duration `mapstructure:"SESSION_MAX_AGE"`
	GatePolicy          string        `mapstructure:"GATE_POLICY"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	LoginRateLimitRPS   float64       `mapstructure:"LOGIN_RATE_LIMIT_RPS"`
	LoginRateLimitBurst int           `mapstructure:"LOGIN_RATE_LIMIT_BURST"`
	SweepInterval       time.Duration `mapstructure:"SWEEP_INTERVAL"`
	BcryptCost          int           `mapstructure:"BCRYPT_COST"`
	RequestTimeout      time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit           string        `mapstructure:"BODY_LIMIT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SESSION_COOKIE_NAME", "session")
	v.SetDefault("SESSION_MAX_AGE", "720h")
	v.SetDefault("GATE_POLICY", GatePolicyFirst)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("LOGIN_RATE_LIMIT_RPS", 1)
	v.SetDefault("LOGIN_RATE_LIMIT_BURST", 5)
	v.SetDefault("SWEEP_INTERVAL", "0s")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")

	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
		"CORS_ORIGINS", "CRON_SECRET", "SESSION_COOKIE_NAME", "SESSION_MAX_AGE",
		"GATE_POLICY", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOGIN_RATE_LIMIT_RPS",
		"LOGIN_RATE_LIMIT_BURST", "SWEEP_INTERVAL", "BCRYPT_COST", "REQUEST_TIMEOUT",
		"BODY_LIMIT",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.CronSecret == "" {
		log.Println("WARNING: CRON_SECRET is not set; /api/cron endpoints will reject every request.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production the
// cron secret must be present and long enough to resist guessing.
func (c *Config) Validate() error {
	if c.GatePolicy != GatePolicyFirst && c.GatePolicy != GatePolicyStrict {
		return fmt.Errorf("GATE_POLICY must be %q or %q, got %q", GatePolicyFirst, GatePolicyStrict, c.GatePolicy)
	}

	if c.IsProduction() && len(c.CronSecret) < minCronSecretLen {
		return fmt.Errorf("CRON_SECRET must be at least %d characters in production", minCronSecretLen)
	}

	if c.SessionCookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive, got %s", c.SessionMaxAge)
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive, got %g and %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.LoginRateLimitRPS <= 0 || c.LoginRateLimitBurst <= 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT_RPS and LOGIN_RATE_LIMIT_BURST must be positive, got %g and %d", c.LoginRateLimitRPS, c.LoginRateLimitBurst)
	}

	if c.SweepInterval < 0 {
		return fmt.Errorf("SWEEP_INTERVAL must not be negative")
	}

	return nil
}
