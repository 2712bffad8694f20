package rate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultPrefix    = "rl"
	defaultTimeout   = 500 * time.Millisecond
	maxWindowRetries = 3
)

// Config holds limiter tuning that is independent of any single Limit.
type Config struct {
	// Prefix namespaces every counter key. Defaults to "rl".
	Prefix string
	// OpTimeout bounds one Check against the store. Zero means 500ms; negative disables.
	OpTimeout time.Duration
}

// Limiter enforces fixed-window limits against a shared Store. It holds no counter
// state of its own, so any number of processes may share one store.
type Limiter struct {
	store   Store
	prefix  string
	timeout time.Duration
}

// New creates a Limiter backed by store.
func New(store Store, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.OpTimeout == 0 {
		cfg.OpTimeout = defaultTimeout
	}
	return &Limiter{
		store:   store,
		prefix:  cfg.Prefix,
		timeout: cfg.OpTimeout,
	}
}

// Check consumes one unit of lim's window. It returns nil when the request is admitted,
// a *LimitedError when the window is exhausted, and an ErrStoreUnavailable-wrapped error
// when the store cannot answer.
func (l *Limiter) Check(ctx context.Context, lim Limit) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("%w: limiter not configured", ErrStoreUnavailable)
	}
	if err := lim.validate(); err != nil {
		return err
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	key := lim.key(l.prefix)

	// A window can close between any two store calls; start over when it does.
	for attempt := 0; attempt < maxWindowRetries; attempt++ {
		created, err := l.store.Open(ctx, key, lim.Capacity-1, lim.Window)
		if err != nil {
			return storeErr(ctx, err)
		}
		if created {
			return nil
		}

		status, _, err := l.store.Take(ctx, key, lim.Window)
		if err != nil {
			return storeErr(ctx, err)
		}
		switch status {
		case TakeOK:
			return nil
		case TakeMissing:
			continue
		}

		ttl, err := l.store.TTL(ctx, key)
		if err != nil {
			return storeErr(ctx, err)
		}
		if ttl <= 0 {
			continue
		}
		return &LimitedError{Group: lim.Group, RetryAfter: ttl}
	}

	return fmt.Errorf("%w: window for %s kept expiring", ErrStoreUnavailable, key)
}

func storeErr(ctx context.Context, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, ctxErr)
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
