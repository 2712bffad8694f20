package flows

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/dia-accounts/dia/user"
	"github.com/google/uuid"
)

// CredentialsMetrics carries metric IDs for credential checks.
type CredentialsMetrics struct {
	Success int
	Failure int
}

// CredentialsEvents names the audit events of a credential check.
type CredentialsEvents struct {
	Success string
	Failure string
}

// CredentialsErrors maps flow outcomes to the engine's public errors.
type CredentialsErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	StoreUnavailable   error
}

// CredentialsDeps wires RunFromCredentials to the user store and password pool.
type CredentialsDeps struct {
	GetUserByUsername func(context.Context, string) (user.User, error)
	VerifyPassword    func(ctx context.Context, encoded, password string) error
	VerifyDummy       func(ctx context.Context, password string) error
	IsUserNotFound    func(error) bool
	IsMismatch        func(error) bool
	// NeedsRehash reports a stored hash made with weaker parameters than the
	// current ones. Optional.
	NeedsRehash func(encoded string) bool

	MetricInc func(int)
	EmitAudit emitFunc

	Metrics CredentialsMetrics
	Events  CredentialsEvents
	Errors  CredentialsErrors
}

// RunFromCredentials loads username and verifies password against the stored hash.
// A missing user and a wrong password both return Errors.InvalidCredentials; a missing
// user still pays for one hash verification so the two cases take similar time.
func RunFromCredentials(ctx context.Context, username, password string, client netip.Addr, deps CredentialsDeps) (user.User, error) {
	normalizeCredentialsDeps(&deps)

	if deps.GetUserByUsername == nil || deps.VerifyPassword == nil {
		return user.User{}, deps.Errors.EngineNotReady
	}

	fail := func(u user.User, reason string) (user.User, error) {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, AuditRecord{
			Event:    deps.Events.Failure,
			UserID:   idString(u),
			Username: username,
			IP:       addrString(client),
			Err:      deps.Errors.InvalidCredentials,
			Metadata: map[string]string{"reason": reason},
		})
		return user.User{}, deps.Errors.InvalidCredentials
	}

	if username == "" || password == "" {
		_ = deps.VerifyDummy(ctx, password)
		return fail(user.User{}, "empty_credentials")
	}

	u, err := deps.GetUserByUsername(ctx, username)
	if err != nil {
		if !deps.IsUserNotFound(err) {
			return user.User{}, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
		}
		if derr := deps.VerifyDummy(ctx, password); derr != nil && ctx.Err() != nil {
			return user.User{}, ctx.Err()
		}
		return fail(user.User{}, "user_not_found")
	}

	if err := deps.VerifyPassword(ctx, u.PasswordHash, password); err != nil {
		switch {
		case ctx.Err() != nil:
			return user.User{}, ctx.Err()
		case deps.IsMismatch(err):
			return fail(u, "password_mismatch")
		default:
			// malformed stored hash or oversized input
			return fail(u, "verify_error")
		}
	}

	var meta map[string]string
	if deps.NeedsRehash != nil && deps.NeedsRehash(u.PasswordHash) {
		meta = map[string]string{"rehash_recommended": "true"}
	}
	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, AuditRecord{
		Event:    deps.Events.Success,
		Success:  true,
		UserID:   u.ID.String(),
		Username: u.Username,
		IP:       addrString(client),
		Metadata: meta,
	})
	return u, nil
}

func normalizeCredentialsDeps(deps *CredentialsDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = nopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = nopEmit
	}
	if deps.VerifyDummy == nil {
		deps.VerifyDummy = func(context.Context, string) error { return nil }
	}
	if deps.IsUserNotFound == nil {
		deps.IsUserNotFound = func(err error) bool { return errors.Is(err, user.ErrNotFound) }
	}
	if deps.IsMismatch == nil {
		deps.IsMismatch = func(error) bool { return true }
	}
	if deps.Errors.InvalidCredentials == nil {
		deps.Errors.InvalidCredentials = errors.New("invalid credentials")
	}
	if deps.Errors.StoreUnavailable == nil {
		deps.Errors.StoreUnavailable = errors.New("store unavailable")
	}
	if deps.Errors.EngineNotReady == nil {
		deps.Errors.EngineNotReady = errors.New("engine not initialized")
	}
}

func idString(u user.User) string {
	if u.ID == uuid.Nil {
		return ""
	}
	return u.ID.String()
}

func addrString(addr netip.Addr) string {
	if !addr.IsValid() {
		return ""
	}
	return addr.Unmap().String()
}
