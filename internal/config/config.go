package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/cinedex/cinedex-backend/internal/db"
	"github.com/cinedex/cinedex-backend/pkg/kv"
)

type Config struct {
	Env      string `mapstructure:"CDX_ENV"`
	HTTPAddr string `mapstructure:"CDX_HTTP_ADDR"`

	Database DBConfig       `mapstructure:",squash"`
	Ledger   LedgerConfig   `mapstructure:",squash"`
	HTTP     HTTPConfig     `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type DBConfig struct {
	Driver       string `mapstructure:"CDX_DB_DRIVER"` // "sqlite", "postgres"
	DSN          string `mapstructure:"CDX_DB_DSN"`
	MaxOpenConns int    `mapstructure:"CDX_DB_MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"CDX_DB_MAX_IDLE_CONNS"`
}

type LedgerConfig struct {
	Backend   string        `mapstructure:"CDX_KV_BACKEND"` // "memory", "redis"
	RedisURL  string        `mapstructure:"CDX_REDIS_URL"`
	RecordTTL time.Duration `mapstructure:"CDX_IMPORT_RECORD_TTL"`
}

type HTTPConfig struct {
	MaxUploadBytes int64         `mapstructure:"CDX_MAX_UPLOAD_BYTES"`
	RequestTimeout time.Duration `mapstructure:"CDX_REQUEST_TIMEOUT"`
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"CDX_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"CDX_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
		filepath.Join("..", "..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if resolved, err := filepath.Abs(path); err == nil {
			abs = resolved
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("CDX_ENV", "dev")
	v.SetDefault("CDX_HTTP_ADDR", ":8080")
	v.SetDefault("CDX_DB_DRIVER", "sqlite")
	v.SetDefault("CDX_DB_DSN", "file:cinedex.db?_pragma=foreign_keys(1)")
	v.SetDefault("CDX_DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("CDX_DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("CDX_KV_BACKEND", "memory")
	v.SetDefault("CDX_REDIS_URL", "127.0.0.1:6379")
	v.SetDefault("CDX_IMPORT_RECORD_TTL", "24h")
	v.SetDefault("CDX_MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("CDX_REQUEST_TIMEOUT", "30s")
	v.SetDefault("CDX_RATE_LIMIT_RPM", 120)
	v.SetDefault("CDX_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")

	// Handle array parsing for comma-separated values
	if origins := v.GetString("CDX_CORS_ALLOWED_ORIGINS"); origins != "" {
		v.Set("CDX_CORS_ALLOWED_ORIGINS", splitList(origins))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Ledger.Backend = strings.ToLower(strings.TrimSpace(cfg.Ledger.Backend))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) validate() error {
	if _, err := db.ParseDialect(c.Database.Driver); err != nil {
		return fmt.Errorf("invalid CDX_DB_DRIVER %q (must be sqlite or postgres)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("CDX_DB_DSN is required")
	}
	switch kv.Backend(c.Ledger.Backend) {
	case kv.BackendMemory:
	case kv.BackendRedis:
		if c.Ledger.RedisURL == "" {
			return fmt.Errorf("CDX_REDIS_URL is required when CDX_KV_BACKEND=redis")
		}
	default:
		return fmt.Errorf("invalid CDX_KV_BACKEND %q (must be memory or redis)", c.Ledger.Backend)
	}
	if c.Ledger.RecordTTL <= 0 {
		return fmt.Errorf("CDX_IMPORT_RECORD_TTL must be positive")
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		return fmt.Errorf("CDX_MAX_UPLOAD_BYTES must be positive")
	}
	if c.Security.RateLimitRPM < 0 {
		return fmt.Errorf("CDX_RATE_LIMIT_RPM must not be negative")
	}
	return nil
}

// DB returns the record store settings in the form db.Open expects.
func (c *Config) DB() db.Config {
	return db.Config{
		Driver:       c.Database.Driver,
		DSN:          c.Database.DSN,
		MaxOpenConns: c.Database.MaxOpenConns,
		MaxIdleConns: c.Database.MaxIdleConns,
	}
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
