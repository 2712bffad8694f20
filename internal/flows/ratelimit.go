package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/dia-accounts/dia/internal/rate"
)

// RateLimitMetrics carries metric IDs for limiter outcomes.
type RateLimitMetrics struct {
	Limited      int
	StoreFailure int
	FailOpen     int
}

// RateLimitEvents names the audit events of a limiter check.
type RateLimitEvents struct {
	Triggered    string
	StoreFailure string
}

// RateLimitErrors maps limiter outcomes to the engine's public errors.
type RateLimitErrors struct {
	EngineNotReady        error
	StoreUnavailable      error
	ClientAddressRequired error
}

// RateLimitDeps wires RunCheckRateLimit to the group gate.
type RateLimitDeps struct {
	FailOpen bool

	Enforce         func(context.Context, rate.Group, rate.Identifier) error
	LogStoreFailure func(context.Context, rate.Group, bool, error)

	MetricInc func(int)
	EmitAudit emitFunc

	Metrics RateLimitMetrics
	Events  RateLimitEvents
	Errors  RateLimitErrors
}

// RunCheckRateLimit charges one unit against (group, id). A denial returns the
// limiter's *rate.LimitedError unchanged so the retry interval survives. A store failure
// is returned as StoreUnavailable unless FailOpen is set and the caller is still waiting.
func RunCheckRateLimit(ctx context.Context, group rate.Group, id rate.Identifier, deps RateLimitDeps) error {
	normalizeRateLimitDeps(&deps)

	if deps.Enforce == nil {
		return deps.Errors.EngineNotReady
	}
	if id.IsZero() {
		return deps.Errors.ClientAddressRequired
	}

	err := deps.Enforce(ctx, group, id)
	if err == nil {
		return nil
	}

	if errors.Is(err, rate.ErrRateLimited) {
		deps.MetricInc(deps.Metrics.Limited)
		deps.EmitAudit(ctx, AuditRecord{
			Event: deps.Events.Triggered,
			Err:   err,
			Metadata: map[string]string{
				"group":      group.String(),
				"identifier": id.String(),
			},
		})
		return err
	}

	deps.MetricInc(deps.Metrics.StoreFailure)
	failOpen := deps.FailOpen && ctx.Err() == nil
	deps.LogStoreFailure(ctx, group, failOpen, err)
	deps.EmitAudit(ctx, AuditRecord{
		Event:    deps.Events.StoreFailure,
		Success:  failOpen,
		Err:      err,
		Metadata: map[string]string{"group": group.String()},
	})
	if failOpen {
		deps.MetricInc(deps.Metrics.FailOpen)
		return nil
	}
	if errors.Is(err, deps.Errors.StoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
}

func normalizeRateLimitDeps(deps *RateLimitDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = nopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = nopEmit
	}
	if deps.LogStoreFailure == nil {
		deps.LogStoreFailure = func(context.Context, rate.Group, bool, error) {}
	}
	if deps.Errors.StoreUnavailable == nil {
		deps.Errors.StoreUnavailable = rate.ErrStoreUnavailable
	}
	if deps.Errors.EngineNotReady == nil {
		deps.Errors.EngineNotReady = errors.New("engine not initialized")
	}
	if deps.Errors.ClientAddressRequired == nil {
		deps.Errors.ClientAddressRequired = errors.New("client address required")
	}
}
