// Package user holds the account entity the access-control core consumes: a lookup by
// username or id, an insert for registration, and the registration input policy.
package user

import (
	"context"
	"errors"
	"time"

	"github.com/dia-accounts/dia/jwt"
	"github.com/google/uuid"
)

// DefaultGroup is assigned to every newly registered user.
const DefaultGroup = "users"

var (
	// ErrNotFound reports that no user matched a lookup.
	ErrNotFound = errors.New("user not found")
	// ErrUsernameTaken reports a duplicate username on insert.
	ErrUsernameTaken = errors.New("username already taken")
)

// User is a stored account.
type User struct {
	ID           uuid.UUID
	Created      time.Time
	Modified     time.Time
	Username     string
	Email        string
	DisplayName  string
	PasswordHash string
	Groups       []string
}

// Subject is the identity snapshot embedded in signed tokens. It never carries the hash.
func (u User) Subject() jwt.Subject {
	return jwt.Subject{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Groups:      append([]string(nil), u.Groups...),
	}
}

// Store is the relational collaborator. Implementations return ErrNotFound for misses and
// ErrUsernameTaken when Create hits the unique username constraint. Any other error is an
// infrastructure failure.
type Store interface {
	ByUsername(ctx context.Context, username string) (User, error)
	ByID(ctx context.Context, id uuid.UUID) (User, error)
	// Create inserts u. ID, Created and Modified are assigned by the caller.
	Create(ctx context.Context, u User) (User, error)
}
