package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultSessionSecret signs cookies when SESSION_SECRET is unset. Anyone
// who knows it can mint session cookies.
const DefaultSessionSecret = "change-me"

// Config holds application level configuration loaded from an optional TOML
// file and environment variables. Environment variables win.
type Config struct {
	ServerPort    string        `toml:"server_port"`
	MySQLDSN      string        `toml:"mysql_dsn"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisDB       int           `toml:"redis_db"`
	RedisPass     string        `toml:"redis_password"`
	SessionSecret string        `toml:"session_secret"`
	SessionTTL    time.Duration `toml:"session_ttl"`
	CookieSecure  bool          `toml:"cookie_secure"`

	// GuardRoleChanges puts promote/demote behind the session and admin
	// guards. Disabling it restores the historical unguarded routes.
	GuardRoleChanges bool `toml:"guard_role_changes"`
	// RolePropagation rewrites the cached role of every live session of a
	// user whose role changes, not only the caller's own session.
	RolePropagation bool `toml:"role_propagation"`

	LoginRateLimit  float64 `toml:"login_rate_limit"`
	BcryptCost      int     `toml:"bcrypt_cost"`
	HashConcurrency int64   `toml:"hash_concurrency"`
	LogLevel        string  `toml:"log_level"`
	ResetDB         bool    `toml:"reset_db"`
	SwaggerHost     string  `toml:"swagger_host"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		ServerPort:       "3005",
		MySQLDSN:         "user:password@tcp(localhost:3306)/memberzone?charset=utf8mb4&parseTime=True&loc=Local",
		RedisAddr:        "localhost:6379",
		SessionSecret:    DefaultSessionSecret,
		SessionTTL:       time.Hour,
		GuardRoleChanges: true,
		LoginRateLimit:   5,
		BcryptCost:       12,
		HashConcurrency:  4,
		LogLevel:         "info",
	}
}

// InsecureSecret reports whether cookies are signed with the built-in
// secret.
func (c *Config) InsecureSecret() bool {
	return c.SessionSecret == DefaultSessionSecret
}

// Load builds Config from CONFIG_FILE (if set) and the environment.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadFile decodes a TOML file over cfg. Keys absent from the file keep
// their current values; durations are written as strings ("1h").
func LoadFile(path string, cfg *Config) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.MySQLDSN = getEnv("MYSQL_DSN", cfg.MySQLDSN)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.RedisPass = getEnv("REDIS_PASSWORD", cfg.RedisPass)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", cfg.CookieSecure)
	cfg.GuardRoleChanges = getEnvBool("GUARD_ROLE_CHANGES", cfg.GuardRoleChanges)
	cfg.RolePropagation = getEnvBool("ROLE_PROPAGATION", cfg.RolePropagation)
	cfg.LoginRateLimit = getEnvFloat("LOGIN_RATE_LIMIT", cfg.LoginRateLimit)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", cfg.BcryptCost)
	cfg.HashConcurrency = int64(getEnvInt("HASH_CONCURRENCY", int(cfg.HashConcurrency)))
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.ResetDB = getEnvBool("RESET_DB", cfg.ResetDB)
	cfg.SwaggerHost = getEnv("SWAGGER_HOST", cfg.SwaggerHost)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
