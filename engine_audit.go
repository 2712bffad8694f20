package dia

import (
	"context"
	"errors"
	"time"

	internalflows "github.com/dia-accounts/dia/internal/flows"
	"github.com/dia-accounts/dia/refresh"
	"github.com/dia-accounts/dia/user"
)

const (
	auditEventRateLimitTriggered    = "rate_limit_triggered"
	auditEventRateLimitStoreFailure = "rate_limit_store_failure"
	auditEventCredentialsSuccess    = "credentials_success"
	auditEventCredentialsFailure    = "credentials_failure"
	auditEventUserCreated           = "user_created"
	auditEventUserCreateDuplicate   = "user_create_duplicate"
	auditEventUserCreateFailure     = "user_create_failure"
	auditEventRefreshTokenCreated   = "refresh_token_created"
	auditEventJWTSigned             = "jwt_signed"
	auditEventJWTSignFailure        = "jwt_sign_failure"
)

// AuditErrorCode is the stable, non-sensitive error classification carried in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrLifetimeExceeded   AuditErrorCode = "lifetime_exceeded"
	auditErrOutOfRange         AuditErrorCode = "out_of_range"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// emitAudit adapts flow records to AuditEvent. Metadata is only materialized when a
// dispatcher is configured.
func (e *Engine) emitAudit(ctx context.Context, rec internalflows.AuditRecord) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:      e.now().UTC(),
		Type:           rec.Event,
		Success:        rec.Success,
		ClientAddress:  rec.IP,
		UserID:         rec.UserID,
		Username:       rec.Username,
		RefreshTokenID: rec.TokenID,
		Metadata:       rec.Metadata,
	}
	if code := auditErrorCode(rec.Err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case IsTokenError(err):
		return auditErrInvalidToken
	case errors.Is(err, refresh.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, refresh.ErrLifetimeExceeded):
		return auditErrLifetimeExceeded
	case errors.Is(err, refresh.ErrOutOfRange):
		return auditErrOutOfRange
	case errors.Is(err, user.ErrInvalid),
		errors.Is(err, ErrClientAddressRequired):
		return auditErrInvalidInput
	case errors.Is(err, user.ErrUsernameTaken),
		errors.Is(err, refresh.ErrDuplicate):
		return auditErrDuplicate
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
