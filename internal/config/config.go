// Package config loads the chat server's configuration from process
// environment variables, optionally seeded from a .env-style file, per
// spec.md §6.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully-resolved, validated server configuration.
type Config struct {
	ServerPort     int
	ThreadPoolSize int
	PollTimeout    time.Duration

	MaxReadBufferSize  int
	MaxWriteBufferSize int

	TokenExpire      time.Duration
	CleanupInterval  time.Duration

	DB DBConfig

	// AdminAPI, Seed and RateLimit are ambient additions beyond spec.md's
	// required variable set (see SPEC_FULL.md DOMAIN STACK). The admin API
	// and the seed file are off when unset; the rate limit is on by default
	// at 50 frames/s with a burst of 100.
	AdminAPI  AdminAPIConfig
	RateLimit RateLimitConfig
	SeedFile  string
}

// DBConfig holds the relational store's connection parameters (§6).
type DBConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	Database       string
	PoolMin        int
	PoolMax        int
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration
}

// AdminAPIConfig configures the optional read-only HTTP ops surface.
type AdminAPIConfig struct {
	Enabled    bool
	Bind       string
	Port       int
	JWTSecret  string
}

// RateLimitConfig configures the optional per-connection frame-rate limiter.
type RateLimitConfig struct {
	FramesPerSecond float64
	Burst           int
}

// Load reads environment variables, first importing any KEY=VALUE pairs from
// envFile (if non-empty and present) without overriding variables already set
// in the process environment — matching godotenv's load-then-fill semantics,
// which the teacher's YAML+env-substitution loader mirrors in spirit.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{}
	var err error

	if cfg.ServerPort, err = requireInt("SERVER_PORT"); err != nil {
		return nil, err
	}
	cfg.ThreadPoolSize = optionalInt("THREAD_POOL_SIZE", 0) // 0 = runtime.NumCPU, resolved by caller
	cfg.PollTimeout = time.Duration(optionalInt("EPOLL_TIMEOUT_MS", 1000)) * time.Millisecond
	cfg.MaxReadBufferSize = optionalInt("MAX_READ_BUFFER_SIZE", 1<<20)
	cfg.MaxWriteBufferSize = optionalInt("MAX_WRITE_BUFFER_SIZE", 1<<20)
	cfg.TokenExpire = time.Duration(optionalInt("TOKEN_EXPIRE_MINUTES", 30)) * time.Minute
	cfg.CleanupInterval = time.Duration(optionalInt("CLEANUP_INTERVAL_MINUTES", 10)) * time.Minute

	if cfg.DB.Host, err = requireString("DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DB.Port = optionalInt("DB_PORT", 3306)
	if cfg.DB.Username, err = requireString("DB_USERNAME"); err != nil {
		return nil, err
	}
	if cfg.DB.Password, err = requireString("DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.DB.Database, err = requireString("DB_DATABASE"); err != nil {
		return nil, err
	}
	if cfg.DB.PoolMin, err = requireInt("DB_POOL_MIN"); err != nil {
		return nil, err
	}
	if cfg.DB.PoolMax, err = requireInt("DB_POOL_MAX"); err != nil {
		return nil, err
	}
	connTimeout, err := requireInt("DB_CONN_TIMEOUT")
	if err != nil {
		return nil, err
	}
	cfg.DB.ConnectTimeout = time.Duration(connTimeout) * time.Second
	idleTimeout, err := requireInt("DB_IDLE_TIMEOUT")
	if err != nil {
		return nil, err
	}
	cfg.DB.IdleTimeout = time.Duration(idleTimeout) * time.Second

	cfg.AdminAPI = AdminAPIConfig{
		Enabled:   optionalBool("ADMIN_API_ENABLED", false),
		Bind:      optionalString("ADMIN_API_BIND", "127.0.0.1"),
		Port:      optionalInt("ADMIN_API_PORT", 8080),
		JWTSecret: optionalString("ADMIN_API_JWT_SECRET", ""),
	}
	cfg.RateLimit = RateLimitConfig{
		FramesPerSecond: float64(optionalInt("RATE_LIMIT_FRAMES_PER_SEC", 50)),
		Burst:           optionalInt("RATE_LIMIT_BURST", 100),
	}
	cfg.SeedFile = optionalString("ROOM_SEED_FILE", "")

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.PoolMin < 0 || cfg.DB.PoolMax <= 0 || cfg.DB.PoolMin > cfg.DB.PoolMax {
		return fmt.Errorf("DB_POOL_MIN/DB_POOL_MAX invalid: min=%d max=%d", cfg.DB.PoolMin, cfg.DB.PoolMax)
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", cfg.ServerPort)
	}
	return nil
}

func requireString(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required environment variable %s", key)
	}
	return v, nil
}

func requireInt(key string) (int, error) {
	v, err := requireString(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return n, nil
}

func optionalString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func optionalInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func optionalBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
