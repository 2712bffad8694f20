package dia

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/dia-accounts/dia/internal/audit"
	internalflows "github.com/dia-accounts/dia/internal/flows"
	"github.com/dia-accounts/dia/internal/limiters"
	"github.com/dia-accounts/dia/internal/logging"
	"github.com/dia-accounts/dia/internal/rate"
	"github.com/dia-accounts/dia/jwt"
	"github.com/dia-accounts/dia/password"
	"github.com/dia-accounts/dia/refresh"
	"github.com/dia-accounts/dia/user"
)

// Engine is the access-control core: rate limiting, credential checks, refresh tokens
// and signed tokens. It holds no per-request state; counters live in the counter store
// and records in the relational store, so any number of Engines may share them.
//
// Engine methods are safe for concurrent use.
type Engine struct {
	config    Config
	gate      *limiters.Gate
	users     user.Store
	ledger    *refresh.Ledger
	tokens    *jwt.Manager
	passwords *password.Pool
	audit     *audit.Dispatcher
	metrics   *Metrics
	logger    logging.Logger
	clock     func() time.Time
	flows     internalflows.Service
}

// Close drains queued audit events. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports audit events that never reached the sink.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the Engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) flowDeps() internalflows.Deps {
	return internalflows.Deps{
		RateLimit:    e.rateLimitFlowDeps(),
		Credentials:  e.credentialsFlowDeps(),
		Register:     e.registerFlowDeps(),
		RefreshToken: e.refreshTokenFlowDeps(),
	}
}

func (e *Engine) rateLimitFlowDeps() internalflows.RateLimitDeps {
	deps := internalflows.RateLimitDeps{
		FailOpen: e.config.RateLimit.FailOpen,
		LogStoreFailure: func(ctx context.Context, group rate.Group, failOpen bool, err error) {
			if failOpen {
				e.logger.Warn(ctx, "rate limit store unavailable, admitting request", "group", group.String(), "err", err)
				return
			}
			e.logger.Warn(ctx, "rate limit store unavailable", "group", group.String(), "err", err)
		},
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.RateLimitMetrics{
			Limited:      int(MetricRateLimited),
			StoreFailure: int(MetricRateLimitStoreFailure),
			FailOpen:     int(MetricRateLimitFailOpen),
		},
		Events: internalflows.RateLimitEvents{
			Triggered:    auditEventRateLimitTriggered,
			StoreFailure: auditEventRateLimitStoreFailure,
		},
		Errors: internalflows.RateLimitErrors{
			EngineNotReady:        ErrEngineNotReady,
			StoreUnavailable:      ErrStoreUnavailable,
			ClientAddressRequired: ErrClientAddressRequired,
		},
	}
	if e.gate != nil {
		deps.Enforce = e.gate.Enforce
	}
	return deps
}

func (e *Engine) credentialsFlowDeps() internalflows.CredentialsDeps {
	deps := internalflows.CredentialsDeps{
		IsUserNotFound: func(err error) bool {
			return errors.Is(err, user.ErrNotFound)
		},
		IsMismatch: func(err error) bool {
			return errors.Is(err, password.ErrMismatch)
		},
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.CredentialsMetrics{
			Success: int(MetricCredentialsSuccess),
			Failure: int(MetricCredentialsFailure),
		},
		Events: internalflows.CredentialsEvents{
			Success: auditEventCredentialsSuccess,
			Failure: auditEventCredentialsFailure,
		},
		Errors: internalflows.CredentialsErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			StoreUnavailable:   ErrStoreUnavailable,
		},
	}
	if e.users != nil {
		deps.GetUserByUsername = e.users.ByUsername
	}
	if e.passwords != nil {
		deps.VerifyPassword = e.passwords.Verify
		deps.NeedsRehash = e.passwords.NeedsUpgrade
		deps.VerifyDummy = func(ctx context.Context, pw string) error {
			e.passwords.VerifyDummy(ctx, pw)
			return ctx.Err()
		}
	}
	return deps
}

// FromCredentials returns the user named username when password matches. An unknown
// username and a wrong password both return ErrInvalidCredentials. It does not charge
// any rate limit; callers exposing it to the network must.
func (e *Engine) FromCredentials(ctx context.Context, addr netip.Addr, username, password string) (user.User, error) {
	if !e.ready() {
		return user.User{}, ErrEngineNotReady
	}
	return e.flows.FromCredentials(ctx, username, password, addr)
}
