package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Subject is the user snapshot carried in a token. It reflects the user at minting time
// and is not refreshed while the token lives.
type Subject struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Groups      []string  `json:"groups,omitempty"`
}

// Claims is the signed payload.
type Claims struct {
	User        Subject   `json:"user"`
	ParentToken uuid.UUID `json:"parent_token"`
	jwt.RegisteredClaims
}

// NewClaims builds claims valid from issuedAt for lifetime. Times are truncated to whole
// seconds, the resolution of the wire format.
func NewClaims(user Subject, parent uuid.UUID, issuedAt time.Time, lifetime time.Duration) Claims {
	iat := issuedAt.Truncate(time.Second)
	return Claims{
		User:        user,
		ParentToken: parent,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(lifetime)),
		},
	}
}

// Lifetime is exp - iat, or zero when either is missing.
func (c *Claims) Lifetime() time.Duration {
	if c.IssuedAt == nil || c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(c.IssuedAt.Time)
}
