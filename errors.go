package dia

import (
	"errors"
	"time"

	"github.com/dia-accounts/dia/clientip"
	"github.com/dia-accounts/dia/internal/rate"
	"github.com/dia-accounts/dia/jwt"
	"github.com/dia-accounts/dia/refresh"
	"github.com/dia-accounts/dia/user"
)

var (
	// ErrRateLimited matches every rate-limit rejection. Use RetryAfter for the interval.
	ErrRateLimited = rate.ErrRateLimited
	// ErrStoreUnavailable wraps counter store and relational store failures.
	ErrStoreUnavailable = rate.ErrStoreUnavailable
	// ErrInvalidCredentials is returned for an unknown username and a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrClientAddressRequired is returned when a rate-limited operation has no client address.
	ErrClientAddressRequired = errors.New("client address required")
	// ErrEngineNotReady is returned by a zero or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	ErrUsernameTaken = user.ErrUsernameTaken
	// ErrInvalidInput wraps registration validation failures.
	ErrInvalidInput = user.ErrInvalid

	ErrRefreshTokenNotFound = refresh.ErrNotFound
	ErrLifetimeExceeded     = refresh.ErrLifetimeExceeded
	ErrOutOfRange           = refresh.ErrOutOfRange

	ErrTokenExpired     = jwt.ErrExpired
	ErrInvalidSignature = jwt.ErrInvalidSignature
	ErrMalformedToken   = jwt.ErrMalformedToken
	ErrInvalidClaims    = jwt.ErrInvalidClaims

	// ErrMalformedAddress is returned for a forwarded-for header that does not parse.
	ErrMalformedAddress = clientip.ErrMalformed
)

// RetryAfter returns the retry interval carried by a rate-limit rejection.
func RetryAfter(err error) (time.Duration, bool) {
	return rate.RetryAfter(err)
}

// IsTokenError reports whether err is one of the token verification failures.
func IsTokenError(err error) bool {
	return errors.Is(err, jwt.ErrExpired) ||
		errors.Is(err, jwt.ErrInvalidSignature) ||
		errors.Is(err, jwt.ErrMalformedToken) ||
		errors.Is(err, jwt.ErrInvalidClaims)
}
