package flows

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/dia-accounts/dia/internal/rate"
	"github.com/dia-accounts/dia/user"
	"github.com/google/uuid"
)

// RegisterRequest is the input of RunCreateUser.
type RegisterRequest struct {
	Username    string
	Email       string
	DisplayName string
	Password    string
	Client      netip.Addr
}

// RegisterMetrics carries metric IDs for registration outcomes.
type RegisterMetrics struct {
	Success   int
	Duplicate int
	Failure   int
}

// RegisterEvents names the audit events of a registration.
type RegisterEvents struct {
	Success   string
	Duplicate string
	Failure   string
}

// RegisterErrors maps registration outcomes to the engine's public errors.
type RegisterErrors struct {
	EngineNotReady   error
	UsernameTaken    error
	StoreUnavailable error
}

// RegisterDeps wires RunCreateUser to the user store and password pool.
type RegisterDeps struct {
	DefaultGroups []string

	CheckRateLimit func(context.Context, rate.Group, rate.Identifier) error
	HashPassword   func(context.Context, string) (string, error)
	CreateUser     func(context.Context, user.User) (user.User, error)
	NewID          func() (uuid.UUID, error)
	Now            func() time.Time

	MetricInc func(int)
	EmitAudit emitFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunCreateUser validates the request, charges the Register limit for the client
// address, hashes the password and inserts the user.
func RunCreateUser(ctx context.Context, req RegisterRequest, deps RegisterDeps) (user.User, error) {
	normalizeRegisterDeps(&deps)

	if deps.CheckRateLimit == nil || deps.HashPassword == nil || deps.CreateUser == nil {
		return user.User{}, deps.Errors.EngineNotReady
	}

	email, display, err := validateRegistration(req)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		return user.User{}, err
	}

	if err := deps.CheckRateLimit(ctx, rate.Register, rate.AddressIdentifier(req.Client)); err != nil {
		return user.User{}, err
	}

	hash, err := deps.HashPassword(ctx, req.Password)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		return user.User{}, err
	}
	id, err := deps.NewID()
	if err != nil {
		return user.User{}, fmt.Errorf("new user id: %w", err)
	}

	now := deps.Now().UTC().Truncate(time.Microsecond)
	created, err := deps.CreateUser(ctx, user.User{
		ID:           id,
		Created:      now,
		Modified:     now,
		Username:     req.Username,
		Email:        email,
		DisplayName:  display,
		PasswordHash: hash,
		Groups:       append([]string(nil), deps.DefaultGroups...),
	})
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			deps.MetricInc(deps.Metrics.Duplicate)
			deps.EmitAudit(ctx, AuditRecord{
				Event:    deps.Events.Duplicate,
				Username: req.Username,
				IP:       addrString(req.Client),
				Err:      deps.Errors.UsernameTaken,
			})
			return user.User{}, deps.Errors.UsernameTaken
		}
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, AuditRecord{
			Event:    deps.Events.Failure,
			Username: req.Username,
			IP:       addrString(req.Client),
			Err:      err,
		})
		return user.User{}, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, AuditRecord{
		Event:    deps.Events.Success,
		Success:  true,
		UserID:   created.ID.String(),
		Username: created.Username,
		IP:       addrString(req.Client),
	})
	return created, nil
}

func validateRegistration(req RegisterRequest) (email, display string, err error) {
	if err := user.ValidateUsername(req.Username); err != nil {
		return "", "", err
	}
	if err := user.ValidatePassword(req.Password); err != nil {
		return "", "", err
	}
	if email, err = user.NormalizeEmail(req.Email); err != nil {
		return "", "", err
	}
	if display, err = user.NormalizeDisplayName(req.DisplayName); err != nil {
		return "", "", err
	}
	return email, display, nil
}

func normalizeRegisterDeps(deps *RegisterDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = nopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = nopEmit
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewV7
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.DefaultGroups == nil {
		deps.DefaultGroups = []string{user.DefaultGroup}
	}
	if deps.Errors.UsernameTaken == nil {
		deps.Errors.UsernameTaken = user.ErrUsernameTaken
	}
	if deps.Errors.StoreUnavailable == nil {
		deps.Errors.StoreUnavailable = errors.New("store unavailable")
	}
	if deps.Errors.EngineNotReady == nil {
		deps.Errors.EngineNotReady = errors.New("engine not initialized")
	}
}
