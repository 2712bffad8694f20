package dia

import (
	"context"
	"net/netip"

	"github.com/dia-accounts/dia/internal/rate"
	"github.com/google/uuid"
)

// RateLimitGroup partitions rate-limit accounting by endpoint category.
type RateLimitGroup = rate.Group

const (
	GroupGeneral  RateLimitGroup = rate.General
	GroupLogin    RateLimitGroup = rate.Login
	GroupRegister RateLimitGroup = rate.Register
)

// RateLimitIdentifier names who is being limited: a client address or an authenticated
// subject. The zero value is rejected with ErrClientAddressRequired.
type RateLimitIdentifier = rate.Identifier

func AddressIdentifier(addr netip.Addr) RateLimitIdentifier {
	return rate.AddressIdentifier(addr)
}

func SubjectIdentifier(id uuid.UUID) RateLimitIdentifier {
	return rate.SubjectIdentifier(id)
}

// CheckRateLimit charges one request against the group's budget for id.
//
// It returns nil when the request is admitted and an error matching ErrRateLimited when
// the window is exhausted; RetryAfter extracts the remaining wait. When the counter
// store cannot answer the check fails with ErrStoreUnavailable unless
// Config.RateLimit.FailOpen is set.
func (e *Engine) CheckRateLimit(ctx context.Context, group RateLimitGroup, id RateLimitIdentifier) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.CheckRateLimit(ctx, group, id)
}
