package dia

import (
	"errors"
	"fmt"
	"time"

	"github.com/dia-accounts/dia/internal/limiters"
	"github.com/dia-accounts/dia/jwt"
	"github.com/dia-accounts/dia/password"
	"github.com/dia-accounts/dia/refresh"
)

// Config is the engine configuration. Start from DefaultConfig and override fields.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	RateLimit    RateLimitConfig
	JWT          JWTConfig
	RefreshToken RefreshTokenConfig
	Password     PasswordConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitPolicy is the budget of one group: Capacity requests per Window.
type RateLimitPolicy = limiters.Policy

// RateLimitConfig controls the shared counter store and the per-group budgets.
type RateLimitConfig struct {
	// Prefix namespaces counter keys in the store.
	Prefix string
	// OpTimeout bounds one check against the store; a timeout counts as a store failure.
	OpTimeout time.Duration
	// FailOpen admits requests while the store is unreachable. Off by default.
	FailOpen bool

	General  RateLimitPolicy
	Login    RateLimitPolicy
	Register RateLimitPolicy
}

func (c RateLimitConfig) policies() limiters.Policies {
	return limiters.Policies{
		General:  c.General,
		Login:    c.Login,
		Register: c.Register,
	}
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls key material and token verification.
type JWTConfig struct {
	// KeyPath is read by LoadKeyPair callers such as cmd/diad; the engine itself takes a
	// *jwt.KeyPair through Builder.WithKeyPair.
	KeyPath string
	// KeyBits is the modulus size used when a key pair is generated.
	KeyBits int
	// Leeway tolerates clock skew when verifying exp and iat.
	Leeway time.Duration
	// DefaultLifetime applies to SignJWT calls with a zero lifetime.
	DefaultLifetime time.Duration
}

/*
====================================
REFRESH TOKEN CONFIG
====================================
*/

// RefreshTokenConfig holds the defaults and accepted ranges for refresh tokens.
type RefreshTokenConfig struct {
	DefaultExpiresIn      time.Duration
	DefaultMaxJWTLifetime time.Duration
	Bounds                refresh.Bounds
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters and the hashing pool size.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// Workers bounds concurrent hash computations. Zero means GOMAXPROCS.
	Workers int
}

/*
====================================
AUDIT AND METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	policies := limiters.DefaultPolicies()
	return Config{
		RateLimit: RateLimitConfig{
			Prefix:    "rl",
			OpTimeout: 500 * time.Millisecond,
			General:   policies.General,
			Login:     policies.Login,
			Register:  policies.Register,
		},
		JWT: JWTConfig{
			KeyPath:         "jwt_key.pem",
			KeyBits:         jwt.DefaultKeyBits,
			DefaultLifetime: refresh.DefaultJWTLifetime,
		},
		RefreshToken: RefreshTokenConfig{
			DefaultExpiresIn:      refresh.DefaultExpiresIn,
			DefaultMaxJWTLifetime: refresh.DefaultMaxJWTLifetime,
			Bounds:                refresh.DefaultBounds(),
		},
		Password: PasswordConfig{
			Memory:      password.InteractiveMemoryKB,
			Time:        password.InteractiveTime,
			Parallelism: password.InteractiveParallelism,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	// Rate limit
	if c.RateLimit.Prefix == "" {
		return errors.New("RateLimit Prefix must not be empty")
	}
	if c.RateLimit.OpTimeout < 0 {
		return errors.New("RateLimit OpTimeout must be >= 0")
	}
	if err := c.RateLimit.policies().Validate(); err != nil {
		return fmt.Errorf("RateLimit: %w", err)
	}

	// JWT
	if c.JWT.KeyBits < jwt.MinKeyBits {
		return fmt.Errorf("JWT KeyBits must be >= %d", jwt.MinKeyBits)
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.DefaultLifetime < time.Second || c.JWT.DefaultLifetime%time.Second != 0 {
		return errors.New("JWT DefaultLifetime must be a whole number of seconds >= 1s")
	}

	// Refresh tokens
	if err := c.RefreshToken.Bounds.Validate(); err != nil {
		return err
	}
	if err := c.RefreshToken.Bounds.Check(c.RefreshToken.DefaultExpiresIn, c.RefreshToken.DefaultMaxJWTLifetime); err != nil {
		return fmt.Errorf("RefreshToken defaults: %w", err)
	}

	// Password
	if c.Password.Memory < password.InteractiveMemoryKB {
		return fmt.Errorf("Password Memory must be >= %d KB", password.InteractiveMemoryKB)
	}
	if c.Password.Time < password.InteractiveTime {
		return fmt.Errorf("Password Time must be >= %d", password.InteractiveTime)
	}
	if c.Password.Parallelism < password.InteractiveParallelism {
		return fmt.Errorf("Password Parallelism must be >= %d", password.InteractiveParallelism)
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.Workers < 0 {
		return errors.New("Password Workers must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
