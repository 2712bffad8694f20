package flows

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/dia-accounts/dia/internal/rate"
	"github.com/dia-accounts/dia/jwt"
	"github.com/dia-accounts/dia/refresh"
	"github.com/dia-accounts/dia/user"
	"github.com/google/uuid"
)

// CreateRefreshTokenRequest is the input of RunCreateRefreshToken.
type CreateRefreshTokenRequest struct {
	Username       string
	Password       string
	ExpiresIn      time.Duration
	MaxJWTLifetime time.Duration
	Client         netip.Addr
}

// RefreshTokenMetrics carries metric IDs for token issue and minting.
type RefreshTokenMetrics struct {
	Created     int
	MintSuccess int
	MintFailure int
}

// RefreshTokenEvents names the audit events of refresh-token flows.
type RefreshTokenEvents struct {
	Created     string
	MintSuccess string
	MintFailure string
}

// RefreshTokenErrors maps ledger outcomes to the engine's public errors.
type RefreshTokenErrors struct {
	EngineNotReady   error
	StoreUnavailable error
}

// RefreshTokenDeps wires the refresh-token flows to the ledger and credential check.
type RefreshTokenDeps struct {
	DefaultExpiresIn      time.Duration
	DefaultMaxJWTLifetime time.Duration
	DefaultJWTLifetime    time.Duration

	CheckRateLimit  func(context.Context, rate.Group, rate.Identifier) error
	FromCredentials func(ctx context.Context, username, password string, client netip.Addr) (user.User, error)
	CheckBounds     func(expiresIn, maxJWTLifetime time.Duration) error
	CreateRecord    func(ctx context.Context, userID uuid.UUID, client netip.Addr, expiresIn, maxJWTLifetime time.Duration) (refresh.Record, error)
	ListRecords     func(ctx context.Context, userID uuid.UUID, validOnly bool) ([]refresh.Record, error)
	FindRecord      func(ctx context.Context, token string) (refresh.Record, error)
	MintJWT         func(ctx context.Context, token string, lifetime time.Duration) (refresh.Minted, error)

	MetricInc func(int)
	EmitAudit emitFunc

	Metrics RefreshTokenMetrics
	Events  RefreshTokenEvents
	Errors  RefreshTokenErrors
}

// RunCreateRefreshToken checks bounds, charges the Login limit, verifies credentials and
// records a new refresh token bound to the client address. Zero lifetimes take the
// configured defaults.
func RunCreateRefreshToken(ctx context.Context, req CreateRefreshTokenRequest, deps RefreshTokenDeps) (refresh.Record, error) {
	normalizeRefreshTokenDeps(&deps)

	if deps.CheckRateLimit == nil || deps.FromCredentials == nil || deps.CreateRecord == nil || deps.CheckBounds == nil {
		return refresh.Record{}, deps.Errors.EngineNotReady
	}

	if req.ExpiresIn == 0 {
		req.ExpiresIn = deps.DefaultExpiresIn
	}
	if req.MaxJWTLifetime == 0 {
		req.MaxJWTLifetime = deps.DefaultMaxJWTLifetime
	}
	if err := deps.CheckBounds(req.ExpiresIn, req.MaxJWTLifetime); err != nil {
		return refresh.Record{}, err
	}

	if err := deps.CheckRateLimit(ctx, rate.Login, rate.AddressIdentifier(req.Client)); err != nil {
		return refresh.Record{}, err
	}

	owner, err := deps.FromCredentials(ctx, req.Username, req.Password, req.Client)
	if err != nil {
		return refresh.Record{}, err
	}

	rec, err := deps.CreateRecord(ctx, owner.ID, req.Client, req.ExpiresIn, req.MaxJWTLifetime)
	if err != nil {
		return refresh.Record{}, ledgerError(err, deps.Errors.StoreUnavailable)
	}

	deps.MetricInc(deps.Metrics.Created)
	deps.EmitAudit(ctx, AuditRecord{
		Event:    deps.Events.Created,
		Success:  true,
		UserID:   owner.ID.String(),
		Username: owner.Username,
		TokenID:  rec.ID.String(),
		IP:       addrString(req.Client),
		Metadata: map[string]string{
			"expires_in":       fmt.Sprint(int64(req.ExpiresIn / time.Second)),
			"max_jwt_lifetime": fmt.Sprint(int64(req.MaxJWTLifetime / time.Second)),
		},
	})
	return rec, nil
}

// RunListRefreshTokens re-checks credentials under the Login limit and lists the
// owner's records oldest first.
func RunListRefreshTokens(ctx context.Context, username, password string, client netip.Addr, validOnly bool, deps RefreshTokenDeps) ([]refresh.Record, error) {
	normalizeRefreshTokenDeps(&deps)

	if deps.CheckRateLimit == nil || deps.FromCredentials == nil || deps.ListRecords == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if err := deps.CheckRateLimit(ctx, rate.Login, rate.AddressIdentifier(client)); err != nil {
		return nil, err
	}
	owner, err := deps.FromCredentials(ctx, username, password, client)
	if err != nil {
		return nil, err
	}

	recs, err := deps.ListRecords(ctx, owner.ID, validOnly)
	if err != nil {
		return nil, ledgerError(err, deps.Errors.StoreUnavailable)
	}
	if recs == nil {
		recs = []refresh.Record{}
	}
	return recs, nil
}

// RunFindRefreshToken returns the unexpired record for token.
func RunFindRefreshToken(ctx context.Context, token string, deps RefreshTokenDeps) (refresh.Record, error) {
	normalizeRefreshTokenDeps(&deps)

	if deps.FindRecord == nil {
		return refresh.Record{}, deps.Errors.EngineNotReady
	}
	rec, err := deps.FindRecord(ctx, token)
	if err != nil {
		return refresh.Record{}, ledgerError(err, deps.Errors.StoreUnavailable)
	}
	return rec, nil
}

// RunSignJWT mints a signed token from a refresh token. A zero lifetime takes the
// configured default.
func RunSignJWT(ctx context.Context, token string, lifetime time.Duration, deps RefreshTokenDeps) (refresh.Minted, error) {
	normalizeRefreshTokenDeps(&deps)

	if deps.MintJWT == nil {
		return refresh.Minted{}, deps.Errors.EngineNotReady
	}
	if lifetime == 0 {
		lifetime = deps.DefaultJWTLifetime
	}

	minted, err := deps.MintJWT(ctx, token, lifetime)
	if err != nil {
		mapped := ledgerError(err, deps.Errors.StoreUnavailable)
		deps.MetricInc(deps.Metrics.MintFailure)
		deps.EmitAudit(ctx, AuditRecord{
			Event: deps.Events.MintFailure,
			Err:   mapped,
			Metadata: map[string]string{
				"lifetime": fmt.Sprint(int64(lifetime / time.Second)),
			},
		})
		return refresh.Minted{}, mapped
	}

	deps.MetricInc(deps.Metrics.MintSuccess)
	deps.EmitAudit(ctx, AuditRecord{
		Event:    deps.Events.MintSuccess,
		Success:  true,
		UserID:   minted.Claims.User.ID.String(),
		Username: minted.Claims.User.Username,
		TokenID:  minted.Parent.ID.String(),
		Metadata: map[string]string{
			"lifetime": fmt.Sprint(int64(lifetime / time.Second)),
		},
	})
	return minted, nil
}

// ledgerError keeps the ledger's taxonomy errors and folds everything else into
// storeUnavailable. Encoding failures are internal and pass through as they are.
func ledgerError(err, storeUnavailable error) error {
	switch {
	case errors.Is(err, refresh.ErrNotFound),
		errors.Is(err, refresh.ErrLifetimeExceeded),
		errors.Is(err, refresh.ErrOutOfRange),
		errors.Is(err, jwt.ErrEncode),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, storeUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", storeUnavailable, err)
	}
}

func normalizeRefreshTokenDeps(deps *RefreshTokenDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = nopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = nopEmit
	}
	if deps.DefaultExpiresIn == 0 {
		deps.DefaultExpiresIn = refresh.DefaultExpiresIn
	}
	if deps.DefaultMaxJWTLifetime == 0 {
		deps.DefaultMaxJWTLifetime = refresh.DefaultMaxJWTLifetime
	}
	if deps.DefaultJWTLifetime == 0 {
		deps.DefaultJWTLifetime = refresh.DefaultJWTLifetime
	}
	if deps.Errors.StoreUnavailable == nil {
		deps.Errors.StoreUnavailable = errors.New("store unavailable")
	}
	if deps.Errors.EngineNotReady == nil {
		deps.Errors.EngineNotReady = errors.New("engine not initialized")
	}
}
