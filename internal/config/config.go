package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer     string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string   `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string   `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`
	LoginURL       string   `mapstructure:"LOGIN_URL"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	OpenAIAPIKey   string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel    string        `mapstructure:"OPENAI_MODEL"`
	LLMTimeout     time.Duration `mapstructure:"LLM_TIMEOUT"`
	LLMCacheTTL    time.Duration `mapstructure:"LLM_CACHE_TTL"`
	KVPath         string        `mapstructure:"KV_PATH"`

	DispatchTick          time.Duration `mapstructure:"DISPATCH_TICK"`
	DispatchStep          float64       `mapstructure:"DISPATCH_STEP"`
	DispatchLease         time.Duration `mapstructure:"DISPATCH_LEASE"`
	DispatchNotifyChannel string        `mapstructure:"DISPATCH_NOTIFY_CHANNEL"`
	DefaultLatitude       float64       `mapstructure:"DEFAULT_LATITUDE"`
	DefaultLongitude      float64       `mapstructure:"DEFAULT_LONGITUDE"`

	Hotline     string `mapstructure:"HOTLINE"`
	PDFFontPath string `mapstructure:"PDF_FONT_PATH"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY", "LOGIN_URL",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"OPENAI_API_KEY", "OPENAI_MODEL", "LLM_TIMEOUT", "LLM_CACHE_TTL", "KV_PATH",
	"DISPATCH_TICK", "DISPATCH_STEP", "DISPATCH_LEASE", "DISPATCH_NOTIFY_CHANNEL",
	"DEFAULT_LATITUDE", "DEFAULT_LONGITUDE", "HOTLINE", "PDF_FONT_PATH",
}

func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("LOGIN_URL", "/login")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_TIMEOUT", "30s")
	v.SetDefault("LLM_CACHE_TTL", "24h")
	v.SetDefault("KV_PATH", "./data/portal.kv")
	v.SetDefault("DISPATCH_TICK", "200ms")
	v.SetDefault("DISPATCH_STEP", 0.02)
	v.SetDefault("DISPATCH_LEASE", "30s")
	v.SetDefault("DISPATCH_NOTIFY_CHANNEL", "dispatch_events")
	v.SetDefault("DEFAULT_LATITUDE", 40.7128)
	v.SetDefault("DEFAULT_LONGITUDE", -74.006)
	v.SetDefault("HOTLINE", "1800-123-4567")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil || (len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",")) {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
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

// Validate refuses configurations that would run without real token
// validation outside development, or without an LLM key in production.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthIssuer == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("one of AUTH_SIGNING_KEY, AUTH_ISSUER or AUTH_JWKS_URL must be set when ENV=%q", c.Env)
	}
	if c.IsProduction() && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required in production")
	}
	if c.DispatchStep <= 0 || c.DispatchStep > 1 {
		return fmt.Errorf("DISPATCH_STEP must be in (0, 1], got %v", c.DispatchStep)
	}
	if c.DispatchTick <= 0 {
		return fmt.Errorf("DISPATCH_TICK must be positive")
	}
	if c.DispatchLease < 3*c.DispatchTick {
		return fmt.Errorf("DISPATCH_LEASE must be at least three ticks, got %s", c.DispatchLease)
	}
	if c.DefaultLatitude < -90 || c.DefaultLatitude > 90 || c.DefaultLongitude < -180 || c.DefaultLongitude > 180 {
		return fmt.Errorf("DEFAULT_LATITUDE/DEFAULT_LONGITUDE out of range")
	}
	return nil
}
