package flows

import (
	"context"
	"net/netip"
	"time"

	"github.com/dia-accounts/dia/internal/rate"
	"github.com/dia-accounts/dia/refresh"
	"github.com/dia-accounts/dia/user"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring. Flows that charge a rate
// limit or verify credentials are chained to the service's own rate-limit and
// credentials flows unless the caller wired them explicitly.
func New(deps Deps) Service {
	s := Service{deps: deps}
	if s.deps.Register.CheckRateLimit == nil {
		s.deps.Register.CheckRateLimit = s.CheckRateLimit
	}
	if s.deps.RefreshToken.CheckRateLimit == nil {
		s.deps.RefreshToken.CheckRateLimit = s.CheckRateLimit
	}
	if s.deps.RefreshToken.FromCredentials == nil {
		s.deps.RefreshToken.FromCredentials = s.FromCredentials
	}
	return s
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.RateLimit.Enforce != nil && s.deps.Credentials.GetUserByUsername != nil
}

func (s Service) CheckRateLimit(ctx context.Context, group rate.Group, id rate.Identifier) error {
	return RunCheckRateLimit(ctx, group, id, s.deps.RateLimit)
}

func (s Service) FromCredentials(ctx context.Context, username, password string, client netip.Addr) (user.User, error) {
	return RunFromCredentials(ctx, username, password, client, s.deps.Credentials)
}

func (s Service) CreateUser(ctx context.Context, req RegisterRequest) (user.User, error) {
	return RunCreateUser(ctx, req, s.deps.Register)
}

func (s Service) CreateRefreshToken(ctx context.Context, req CreateRefreshTokenRequest) (refresh.Record, error) {
	return RunCreateRefreshToken(ctx, req, s.deps.RefreshToken)
}

func (s Service) ListRefreshTokens(ctx context.Context, username, password string, client netip.Addr, validOnly bool) ([]refresh.Record, error) {
	return RunListRefreshTokens(ctx, username, password, client, validOnly, s.deps.RefreshToken)
}

func (s Service) FindRefreshToken(ctx context.Context, token string) (refresh.Record, error) {
	return RunFindRefreshToken(ctx, token, s.deps.RefreshToken)
}

func (s Service) SignJWT(ctx context.Context, token string, lifetime time.Duration) (refresh.Minted, error) {
	return RunSignJWT(ctx, token, lifetime, s.deps.RefreshToken)
}
