package dia

import (
	"context"
	"net/netip"
	"time"

	internalflows "github.com/dia-accounts/dia/internal/flows"
	"github.com/dia-accounts/dia/refresh"
)

// CreateRefreshTokenInput requests a refresh token. Zero lifetimes take the configured
// defaults.
type CreateRefreshTokenInput struct {
	Username       string
	Password       string
	ExpiresIn      time.Duration
	MaxJWTLifetime time.Duration
}

// CreateRefreshToken issues a refresh token to the holder of valid credentials.
//
// Lifetimes are checked against Config.RefreshToken.Bounds first and fail with
// ErrOutOfRange. The Login budget of addr is then charged, credentials are verified and the
// record is stored with addr as its client address.
func (e *Engine) CreateRefreshToken(ctx context.Context, addr netip.Addr, in CreateRefreshTokenInput) (refresh.Record, error) {
	if !e.ready() {
		return refresh.Record{}, ErrEngineNotReady
	}
	return e.flows.CreateRefreshToken(ctx, internalflows.CreateRefreshTokenRequest{
		Username:       in.Username,
		Password:       in.Password,
		ExpiresIn:      in.ExpiresIn,
		MaxJWTLifetime: in.MaxJWTLifetime,
		Client:         addr,
	})
}

// RefreshTokens lists the refresh tokens of the credential holder, oldest first. With
// validOnly, expired records are left out. The Login budget of addr is charged.
func (e *Engine) RefreshTokens(ctx context.Context, addr netip.Addr, username, password string, validOnly bool) ([]refresh.Record, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return e.flows.ListRefreshTokens(ctx, username, password, addr, validOnly)
}

// RefreshTokenFromString returns the unexpired record for token, or ErrRefreshTokenNotFound.
func (e *Engine) RefreshTokenFromString(ctx context.Context, token string) (refresh.Record, error) {
	if !e.ready() {
		return refresh.Record{}, ErrEngineNotReady
	}
	return e.flows.FindRefreshToken(ctx, token)
}

// SignJWT mints a signed token from an unexpired refresh token. A zero lifetime means
// Config.JWT.DefaultLifetime. A lifetime above the refresh token's cap returns
// ErrLifetimeExceeded.
func (e *Engine) SignJWT(ctx context.Context, token string, lifetime time.Duration) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	minted, err := e.flows.SignJWT(ctx, token, lifetime)
	if err != nil {
		return "", err
	}
	return minted.Token, nil
}

func (e *Engine) refreshTokenFlowDeps() internalflows.RefreshTokenDeps {
	deps := internalflows.RefreshTokenDeps{
		DefaultExpiresIn:      e.config.RefreshToken.DefaultExpiresIn,
		DefaultMaxJWTLifetime: e.config.RefreshToken.DefaultMaxJWTLifetime,
		DefaultJWTLifetime:    e.config.JWT.DefaultLifetime,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.RefreshTokenMetrics{
			Created:     int(MetricRefreshTokenCreated),
			MintSuccess: int(MetricJWTSigned),
			MintFailure: int(MetricJWTSignFailure),
		},
		Events: internalflows.RefreshTokenEvents{
			Created:     auditEventRefreshTokenCreated,
			MintSuccess: auditEventJWTSigned,
			MintFailure: auditEventJWTSignFailure,
		},
		Errors: internalflows.RefreshTokenErrors{
			EngineNotReady:   ErrEngineNotReady,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}
	if e.ledger != nil {
		deps.CheckBounds = e.ledger.Bounds().Check
		deps.CreateRecord = e.ledger.Create
		deps.ListRecords = e.ledger.List
		deps.FindRecord = e.ledger.Find
		deps.MintJWT = e.ledger.MintJWT
	}
	return deps
}
