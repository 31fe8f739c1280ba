package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar names the optional YAML file loaded between defaults and environment.
const PathEnvVar = "CONFIG_PATH"

// Config captures all runtime configuration. Keys match the lower-cased
// environment variable names, so DB_URL and a YAML "db_url" set the same field.
type Config struct {
	Port                string   `koanf:"port"`
	DBURL               string   `koanf:"db_url"`
	DBAutoMigrate       bool     `koanf:"db_auto_migrate"`
	JWTSecret           string   `koanf:"jwt_secret"`
	JWTTTLMinutes       int      `koanf:"jwt_ttl_minutes"`
	LogLevel            string   `koanf:"log_level"`
	NATSURL             string   `koanf:"nats_url"`
	NATSSubject         string   `koanf:"nats_subject"`
	RateLimitReqs       int      `koanf:"rate_limit_reqs"`
	RateLimitWindowSecs int      `koanf:"rate_limit_window_secs"`
	CORSAllowedOrigins  []string `koanf:"cors_allowed_origins"`
	ReadTimeoutSecs     int      `koanf:"server_read_timeout"`
	WriteTimeoutSecs    int      `koanf:"server_write_timeout"`
	IdleTimeoutSecs     int      `koanf:"server_idle_timeout"`
	DBMaxConns          int      `koanf:"db_max_conns"`
	DBMinConns          int      `koanf:"db_min_conns"`
	DBMaxIdleSecs       int      `koanf:"db_max_conn_idle_secs"`
	DBMaxLifeSecs       int      `koanf:"db_max_conn_lifetime_secs"`
	DBConnTimeoutSecs   int      `koanf:"db_conn_timeout_secs"`
	DBStatementCache    int      `koanf:"db_statement_cache_capacity"`
	AdminUsername       string   `koanf:"admin_username"`
	AdminEmail          string   `koanf:"admin_email"`
	AdminPassword       string   `koanf:"admin_password"`
}

func defaults() Config {
	return Config{
		Port:                "8080",
		JWTTTLMinutes:       60,
		LogLevel:            "info",
		NATSSubject:         "series.rating.updated",
		RateLimitReqs:       60,
		RateLimitWindowSecs: 60,
		CORSAllowedOrigins:  []string{"*"},
		ReadTimeoutSecs:     15,
		WriteTimeoutSecs:    15,
		IdleTimeoutSecs:     60,
		DBMaxConns:          20,
		DBMinConns:          2,
		DBMaxIdleSecs:       300,
		DBMaxLifeSecs:       3600,
		DBConnTimeoutSecs:   10,
		DBStatementCache:    256,
	}
}

// Load layers struct defaults, the optional CONFIG_PATH file, and the
// environment (highest priority), then validates the result.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(PathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Empty variables count as unset.
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := splitList(k, "cors_allowed_origins"); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting by its environment variable name.
func (c Config) Validate() error {
	if c.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTTTLMinutes <= 0 {
		return fmt.Errorf("JWT_TTL_MINUTES must be positive")
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		return fmt.Errorf("NATS_SUBJECT is required when NATS_URL is set")
	}
	if c.RateLimitReqs <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQS must be positive")
	}
	if c.RateLimitWindowSecs <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECS must be positive")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if c.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if c.AdminUsername != "" && c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_USERNAME is set")
	}
	return nil
}

// JWTTTL is the lifetime of issued access tokens.
func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// RateLimitWindow is the window RateLimitReqs applies to.
func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSecs) * time.Second
}

// splitList turns a comma separated string (as it arrives from the
// environment) into a list. Values already decoded as lists are left alone.
func splitList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}
