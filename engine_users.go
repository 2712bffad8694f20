package dia

import (
	"context"
	"net/netip"

	internalflows "github.com/dia-accounts/dia/internal/flows"
	"github.com/dia-accounts/dia/user"
)

// CreateUserInput is a registration request. Email and DisplayName are optional.
type CreateUserInput struct {
	Username    string
	Email       string
	DisplayName string
	Password    string
}

// CreateUser registers a new account for a client at addr.
//
// Input is validated before the Register budget of addr is charged, so malformed requests
// do not consume it. The password is hashed on the bounded hashing pool. A username that
// already exists returns ErrUsernameTaken; validation failures match ErrInvalidInput.
func (e *Engine) CreateUser(ctx context.Context, addr netip.Addr, in CreateUserInput) (user.User, error) {
	if !e.ready() {
		return user.User{}, ErrEngineNotReady
	}
	return e.flows.CreateUser(ctx, internalflows.RegisterRequest{
		Username:    in.Username,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		Password:    in.Password,
		Client:      addr,
	})
}

func (e *Engine) registerFlowDeps() internalflows.RegisterDeps {
	deps := internalflows.RegisterDeps{
		DefaultGroups: []string{user.DefaultGroup},
		Now:           e.now,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.RegisterMetrics{
			Success:   int(MetricUserCreated),
			Duplicate: int(MetricUserCreateDuplicate),
			Failure:   int(MetricUserCreateFailure),
		},
		Events: internalflows.RegisterEvents{
			Success:   auditEventUserCreated,
			Duplicate: auditEventUserCreateDuplicate,
			Failure:   auditEventUserCreateFailure,
		},
		Errors: internalflows.RegisterErrors{
			EngineNotReady:   ErrEngineNotReady,
			UsernameTaken:    ErrUsernameTaken,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}
	if e.passwords != nil {
		deps.HashPassword = e.passwords.Hash
	}
	if e.users != nil {
		deps.CreateUser = e.users.Create
	}
	return deps
}
