package flows

import "context"

// Deps groups flow dependency sets. The root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	RateLimit    RateLimitDeps
	Credentials  CredentialsDeps
	Register     RegisterDeps
	RefreshToken RefreshTokenDeps
}

// AuditRecord is what a flow hands to the engine's audit emitter.
type AuditRecord struct {
	Event    string
	Success  bool
	UserID   string
	Username string
	TokenID  string
	IP       string
	Err      error
	Metadata map[string]string
}

type emitFunc func(context.Context, AuditRecord)

func nopEmit(context.Context, AuditRecord) {}

func nopMetric(int) {}
