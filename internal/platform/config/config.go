// Package config reads process configuration from the environment, after
// loading .env files that do not override variables already set.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderGoogleBooks = "googlebooks"
	ProviderOpenLibrary = "openlibrary"
)

type Config struct {
	HTTP struct {
		Addr               string
		MaxBodyBytes       int64
		RateLimitRPS       float64
		RateLimitBurst     int
		CORSAllowedOrigins []string
		EnableHSTS         bool
	}

	DB struct {
		DSN     string
		Timeout time.Duration
	}

	Redis struct {
		URL string
	}

	Metadata struct {
		Provider   string
		BaseURL    string
		UserAgent  string
		RPS        int
		MaxRetries int
		Timeout    time.Duration
		CacheTTL   time.Duration
	}

	Log struct {
		Level       string
		Development bool
	}

	MigrationsDir string
}

type binding struct {
	key, env string
	def      any
}

var bindings = []binding{
	{"http.addr", "APP_ADDR", ":8080"},
	{"http.max_body_bytes", "MAX_BODY_BYTES", 1 << 20},
	{"http.rate_limit_rps", "RATE_LIMIT_RPS", 20.0},
	{"http.rate_limit_burst", "RATE_LIMIT_BURST", 40},
	{"http.cors_allowed_origins", "CORS_ALLOWED_ORIGINS", ""},
	{"http.enable_hsts", "ENABLE_HSTS", false},
	{"db.dsn", "DB_DSN", ""},
	{"db.timeout", "DB_TIMEOUT", "3s"},
	{"redis.url", "REDIS_URL", ""},
	{"metadata.provider", "METADATA_PROVIDER", ProviderGoogleBooks},
	{"metadata.base_url", "METADATA_BASE_URL", ""},
	{"metadata.user_agent", "METADATA_USER_AGENT", "bookcatalog/1.0"},
	{"metadata.rps", "METADATA_RPS", 5},
	{"metadata.max_retries", "METADATA_MAX_RETRIES", 2},
	{"metadata.timeout", "METADATA_TIMEOUT", "5s"},
	{"metadata.cache_ttl", "METADATA_CACHE_TTL", "24h"},
	{"log.level", "LOG_LEVEL", "info"},
	{"log.development", "LOG_DEVELOPMENT", false},
	{"migrations_dir", "MIGRATIONS_DIR", "db/migrations"},
}

// LoadEnvFiles loads .env.local then .env when present.
func LoadEnvFiles() {
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f)
	}
}

func Load() (*Config, error) {
	LoadEnvFiles()

	v := viper.New()
	for _, b := range bindings {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", b.env, err)
		}
		v.SetDefault(b.key, b.def)
	}

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.HTTP.MaxBodyBytes = v.GetInt64("http.max_body_bytes")
	cfg.HTTP.RateLimitRPS = v.GetFloat64("http.rate_limit_rps")
	cfg.HTTP.RateLimitBurst = v.GetInt("http.rate_limit_burst")
	cfg.HTTP.CORSAllowedOrigins = splitList(v.GetString("http.cors_allowed_origins"))
	cfg.HTTP.EnableHSTS = v.GetBool("http.enable_hsts")

	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.DB.Timeout = v.GetDuration("db.timeout")

	cfg.Redis.URL = v.GetString("redis.url")

	cfg.Metadata.Provider = strings.ToLower(v.GetString("metadata.provider"))
	cfg.Metadata.BaseURL = v.GetString("metadata.base_url")
	cfg.Metadata.UserAgent = v.GetString("metadata.user_agent")
	cfg.Metadata.RPS = v.GetInt("metadata.rps")
	cfg.Metadata.MaxRetries = v.GetInt("metadata.max_retries")
	cfg.Metadata.Timeout = v.GetDuration("metadata.timeout")
	cfg.Metadata.CacheTTL = v.GetDuration("metadata.cache_ttl")

	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Development = v.GetBool("log.development")

	cfg.MigrationsDir = v.GetString("migrations_dir")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Metadata.Provider {
	case ProviderGoogleBooks, ProviderOpenLibrary:
	default:
		return fmt.Errorf("METADATA_PROVIDER must be %q or %q, got %q",
			ProviderGoogleBooks, ProviderOpenLibrary, c.Metadata.Provider)
	}
	if c.Metadata.Timeout <= 0 {
		return fmt.Errorf("METADATA_TIMEOUT must be positive")
	}
	if c.DB.Timeout <= 0 {
		return fmt.Errorf("DB_TIMEOUT must be positive")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
