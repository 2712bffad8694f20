package rate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited is returned (wrapped in *LimitedError) when a window is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps every counter store failure, including timeouts.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
	// ErrInvalidLimit reports a Limit that cannot be enforced.
	ErrInvalidLimit = errors.New("invalid rate limit")
)

// LimitedError carries the machine-readable retry interval of a rejection.
type LimitedError struct {
	Group      Group
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("rate limited (%s): retry after %s", e.Group, e.RetryAfter)
}

func (e *LimitedError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfter extracts the retry interval from a rate-limit rejection.
func RetryAfter(err error) (time.Duration, bool) {
	var limited *LimitedError
	if errors.As(err, &limited) {
		return limited.RetryAfter, true
	}
	return 0, false
}
