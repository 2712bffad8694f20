// Package config loads the daemon configuration from the environment.
//
// Variables are prefixed DIA_. A .env file, when present, is loaded first and never
// overrides variables already set in the process environment. Unset variables keep the
// engine defaults from dia.DefaultConfig.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dia-accounts/dia"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "DIA_"

// Daemon is the process configuration of cmd/diad.
type Daemon struct {
	ListenAddr      string        `env:"LISTEN_ADDR"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
	LogLevel        string        `env:"LOG_LEVEL"`
	LogFormat       string        `env:"LOG_FORMAT"`
	Environment     string        `env:"ENV"`
	Release         string        `env:"RELEASE"`
	SentryDSN       string        `env:"SENTRY_DSN"`
	// ForwardedHeader names the trusted proxy header. "none" trusts no header.
	ForwardedHeader string `env:"FORWARDED_HEADER"`

	Redis    Redis    `envPrefix:"REDIS_"`
	Database Database `envPrefix:"DATABASE_"`

	RateLimit RateLimit `envPrefix:"RL_"`
	JWT       JWT       `envPrefix:"JWT_"`
	Refresh   Refresh   `envPrefix:"REFRESH_"`
	Argon2    Argon2    `envPrefix:"ARGON2_"`

	AuditEnabled    bool `env:"AUDIT_ENABLED"`
	AuditBufferSize int  `env:"AUDIT_BUFFER_SIZE"`
	MetricsEnabled  bool `env:"METRICS_ENABLED"`
	MetricsLatency  bool `env:"METRICS_LATENCY"`

	// MetricsOTelInterval pushes the counters through OpenTelemetry to the log
	// stream at this period. Zero disables it.
	MetricsOTelInterval time.Duration `env:"METRICS_OTEL_INTERVAL"`
}

type Redis struct {
	Addrs    []string `env:"ADDRS" envSeparator:","`
	Username string   `env:"USERNAME"`
	Password string   `env:"PASSWORD"`
	DB       int      `env:"DB"`
}

// Database selects the relational store. An empty URL runs on in-memory stores.
type Database struct {
	URL             string        `env:"URL"`
	Migrate         bool          `env:"MIGRATE"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME"`
}

type RateLimit struct {
	Prefix         string        `env:"PREFIX"`
	OpTimeout      time.Duration `env:"OP_TIMEOUT"`
	FailOpen       bool          `env:"FAIL_OPEN"`
	GeneralLimit   int64         `env:"GENERAL_LIMIT"`
	GeneralWindow  time.Duration `env:"GENERAL_WINDOW"`
	LoginLimit     int64         `env:"LOGIN_LIMIT"`
	LoginWindow    time.Duration `env:"LOGIN_WINDOW"`
	RegisterLimit  int64         `env:"REGISTER_LIMIT"`
	RegisterWindow time.Duration `env:"REGISTER_WINDOW"`
}

type JWT struct {
	KeyPath         string        `env:"KEY_PATH"`
	KeyBits         int           `env:"KEY_BITS"`
	Leeway          time.Duration `env:"LEEWAY"`
	DefaultLifetime time.Duration `env:"DEFAULT_LIFETIME"`
}

type Refresh struct {
	DefaultExpiresIn      time.Duration `env:"DEFAULT_EXPIRES_IN"`
	MinExpiresIn          time.Duration `env:"MIN_EXPIRES_IN"`
	MaxExpiresIn          time.Duration `env:"MAX_EXPIRES_IN"`
	DefaultMaxJWTLifetime time.Duration `env:"DEFAULT_MAX_JWT_LIFETIME"`
	MinMaxJWTLifetime     time.Duration `env:"MIN_MAX_JWT_LIFETIME"`
	MaxMaxJWTLifetime     time.Duration `env:"MAX_MAX_JWT_LIFETIME"`
}

type Argon2 struct {
	MemoryKB    uint32 `env:"MEMORY_KB"`
	Time        uint32 `env:"TIME"`
	Parallelism uint8  `env:"PARALLELISM"`
	Workers     int    `env:"WORKERS"`
}

// Defaults mirrors dia.DefaultConfig plus the process-level settings.
func Defaults() Daemon {
	cfg := dia.DefaultConfig()
	return Daemon{
		ListenAddr:      ":8080",
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "json",
		Environment:     "development",
		ForwardedHeader: "X-Forwarded-For",
		Redis:           Redis{Addrs: []string{"localhost:6379"}},
		Database: Database{
			Migrate:         true,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		RateLimit: RateLimit{
			Prefix:         cfg.RateLimit.Prefix,
			OpTimeout:      cfg.RateLimit.OpTimeout,
			FailOpen:       cfg.RateLimit.FailOpen,
			GeneralLimit:   cfg.RateLimit.General.Capacity,
			GeneralWindow:  cfg.RateLimit.General.Window,
			LoginLimit:     cfg.RateLimit.Login.Capacity,
			LoginWindow:    cfg.RateLimit.Login.Window,
			RegisterLimit:  cfg.RateLimit.Register.Capacity,
			RegisterWindow: cfg.RateLimit.Register.Window,
		},
		JWT: JWT{
			KeyPath:         cfg.JWT.KeyPath,
			KeyBits:         cfg.JWT.KeyBits,
			Leeway:          cfg.JWT.Leeway,
			DefaultLifetime: cfg.JWT.DefaultLifetime,
		},
		Refresh: Refresh{
			DefaultExpiresIn:      cfg.RefreshToken.DefaultExpiresIn,
			MinExpiresIn:          cfg.RefreshToken.Bounds.MinExpiresIn,
			MaxExpiresIn:          cfg.RefreshToken.Bounds.MaxExpiresIn,
			DefaultMaxJWTLifetime: cfg.RefreshToken.DefaultMaxJWTLifetime,
			MinMaxJWTLifetime:     cfg.RefreshToken.Bounds.MinMaxJWTLifetime,
			MaxMaxJWTLifetime:     cfg.RefreshToken.Bounds.MaxMaxJWTLifetime,
		},
		Argon2: Argon2{
			MemoryKB:    cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			Workers:     cfg.Password.Workers,
		},
		AuditEnabled:    cfg.Audit.Enabled,
		AuditBufferSize: cfg.Audit.BufferSize,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsLatency:  cfg.Metrics.EnableLatencyHistograms,
	}
}

// Load reads dotenvPath (skipped when empty or missing) and then the process environment.
func Load(dotenvPath string) (Daemon, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Daemon{}, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}
	return parse(env.Options{Prefix: Prefix})
}

// Parse reads environ instead of the process environment.
func Parse(environ map[string]string) (Daemon, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (Daemon, error) {
	d := Defaults()
	if err := env.ParseWithOptions(&d, opts); err != nil {
		return Daemon{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := d.SlogLevel(); err != nil {
		return Daemon{}, err
	}
	if d.MetricsOTelInterval < 0 {
		return Daemon{}, errors.New("DIA_METRICS_OTEL_INTERVAL must not be negative")
	}
	addrs := d.Redis.Addrs[:0]
	for _, addr := range d.Redis.Addrs {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	d.Redis.Addrs = addrs
	if len(d.Redis.Addrs) == 0 {
		return Daemon{}, errors.New("DIA_REDIS_ADDRS must name at least one address")
	}
	return d, nil
}

func (d Daemon) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(d.LogLevel)); err != nil {
		return 0, fmt.Errorf("DIA_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// TrustedHeader is the forwarded header the address resolver reads, or "".
func (d Daemon) TrustedHeader() string {
	if strings.EqualFold(d.ForwardedHeader, "none") {
		return ""
	}
	return d.ForwardedHeader
}

// ToEngineConfig translates d into a validated engine configuration.
func (d Daemon) ToEngineConfig() (dia.Config, error) {
	cfg := dia.DefaultConfig()

	cfg.RateLimit.Prefix = d.RateLimit.Prefix
	cfg.RateLimit.OpTimeout = d.RateLimit.OpTimeout
	cfg.RateLimit.FailOpen = d.RateLimit.FailOpen
	cfg.RateLimit.General = dia.RateLimitPolicy{Capacity: d.RateLimit.GeneralLimit, Window: d.RateLimit.GeneralWindow}
	cfg.RateLimit.Login = dia.RateLimitPolicy{Capacity: d.RateLimit.LoginLimit, Window: d.RateLimit.LoginWindow}
	cfg.RateLimit.Register = dia.RateLimitPolicy{Capacity: d.RateLimit.RegisterLimit, Window: d.RateLimit.RegisterWindow}

	cfg.JWT.KeyPath = d.JWT.KeyPath
	cfg.JWT.KeyBits = d.JWT.KeyBits
	cfg.JWT.Leeway = d.JWT.Leeway
	cfg.JWT.DefaultLifetime = d.JWT.DefaultLifetime

	cfg.RefreshToken.DefaultExpiresIn = d.Refresh.DefaultExpiresIn
	cfg.RefreshToken.DefaultMaxJWTLifetime = d.Refresh.DefaultMaxJWTLifetime
	cfg.RefreshToken.Bounds.MinExpiresIn = d.Refresh.MinExpiresIn
	cfg.RefreshToken.Bounds.MaxExpiresIn = d.Refresh.MaxExpiresIn
	cfg.RefreshToken.Bounds.MinMaxJWTLifetime = d.Refresh.MinMaxJWTLifetime
	cfg.RefreshToken.Bounds.MaxMaxJWTLifetime = d.Refresh.MaxMaxJWTLifetime

	cfg.Password.Memory = d.Argon2.MemoryKB
	cfg.Password.Time = d.Argon2.Time
	cfg.Password.Parallelism = d.Argon2.Parallelism
	cfg.Password.Workers = d.Argon2.Workers

	cfg.Audit.Enabled = d.AuditEnabled
	cfg.Audit.BufferSize = d.AuditBufferSize
	cfg.Metrics.Enabled = d.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = d.MetricsLatency

	if err := cfg.Validate(); err != nil {
		return dia.Config{}, fmt.Errorf("engine config: %w", err)
	}
	return cfg, nil
}
