package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/dia-accounts/dia/user"
	"github.com/google/uuid"
)

var (
	// ErrNotFound reports a token string with no unexpired record.
	ErrNotFound = errors.New("refresh token not found")
	// ErrLifetimeExceeded reports a mint request longer than the record allows.
	ErrLifetimeExceeded = errors.New("requested token lifetime exceeds refresh token maximum")
	// ErrOutOfRange reports a lifetime outside the configured Bounds.
	ErrOutOfRange = errors.New("lifetime out of range")
	// ErrDuplicate is returned by a Store when the id or token string already exists.
	ErrDuplicate = errors.New("refresh token already exists")
)

// Record is a persisted refresh token.
type Record struct {
	ID             uuid.UUID
	TokenString    string
	Created        time.Time
	Modified       time.Time
	Expires        time.Time
	UserID         uuid.UUID
	ClientAddress  string
	MaxJWTLifetime time.Duration
}

// ValidAt reports whether the record is usable at now.
func (r Record) ValidAt(now time.Time) bool {
	return r.Expires.After(now)
}

// Store persists records. FindValid and ListByUser compare expires against now so that
// the caller's clock, not the database clock, decides validity.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	// FindValid returns ErrNotFound when no record with token expires after now.
	FindValid(ctx context.Context, token string, now time.Time) (Record, error)
	// ListByUser returns the user's records ordered by Created ascending. With validOnly
	// only records expiring after now are returned.
	ListByUser(ctx context.Context, userID uuid.UUID, validOnly bool, now time.Time) ([]Record, error)
}

// UserLookup loads the owner of a record when minting.
type UserLookup interface {
	ByID(ctx context.Context, id uuid.UUID) (user.User, error)
}
