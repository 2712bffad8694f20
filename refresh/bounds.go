package refresh

import (
	"errors"
	"fmt"
	"time"
)

// Default bounds and values.
const (
	DefaultExpiresIn      = 7 * 24 * time.Hour
	DefaultMaxJWTLifetime = 5 * time.Minute
	// DefaultJWTLifetime applies when a mint request names no lifetime.
	DefaultJWTLifetime = 5 * time.Minute

	month = 2629800 * time.Second
)

// Bounds are the accepted ranges for refresh-token and minted-token lifetimes.
type Bounds struct {
	MinExpiresIn      time.Duration
	MaxExpiresIn      time.Duration
	MinMaxJWTLifetime time.Duration
	MaxMaxJWTLifetime time.Duration
}

// DefaultBounds returns [1m, 1 month] for refresh tokens and [10s, 1h] for the per-token
// JWT lifetime cap.
func DefaultBounds() Bounds {
	return Bounds{
		MinExpiresIn:      time.Minute,
		MaxExpiresIn:      month,
		MinMaxJWTLifetime: 10 * time.Second,
		MaxMaxJWTLifetime: time.Hour,
	}
}

// Validate checks the bounds themselves.
func (b Bounds) Validate() error {
	if b.MinExpiresIn <= 0 || b.MaxExpiresIn < b.MinExpiresIn {
		return errors.New("refresh bounds: invalid expires-in range")
	}
	if b.MinMaxJWTLifetime < time.Second || b.MaxMaxJWTLifetime < b.MinMaxJWTLifetime {
		return errors.New("refresh bounds: invalid max JWT lifetime range")
	}
	return nil
}

// Check validates a create request.
func (b Bounds) Check(expiresIn, maxJWTLifetime time.Duration) error {
	if expiresIn < b.MinExpiresIn || expiresIn > b.MaxExpiresIn {
		return fmt.Errorf("%w: expires in must be between %s and %s", ErrOutOfRange, b.MinExpiresIn, b.MaxExpiresIn)
	}
	if maxJWTLifetime < b.MinMaxJWTLifetime || maxJWTLifetime > b.MaxMaxJWTLifetime {
		return fmt.Errorf("%w: max JWT lifetime must be between %s and %s", ErrOutOfRange, b.MinMaxJWTLifetime, b.MaxMaxJWTLifetime)
	}
	if maxJWTLifetime%time.Second != 0 || expiresIn%time.Second != 0 {
		return fmt.Errorf("%w: lifetimes must be whole seconds", ErrOutOfRange)
	}
	return nil
}
