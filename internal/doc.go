// Package internal holds helpers private to dia, currently the crypto/rand alphanumeric
// generator behind refresh token strings.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - config: DIA_* environment configuration for cmd/diad
//   - flows: flow orchestrators behind every Engine operation
//   - httpapi: JSON routes served by cmd/diad
//   - limiters: group policies (General, Login, Register) over the rate limiter
//   - logging: context-aware Logger over log/slog
//   - observability: Sentry reporting and request logging middleware
//   - rate: fixed-window limiter and its Redis counter store
//   - stores: PostgreSQL repositories, migrations and in-memory stores
//
// # What this package must NOT do
//
//   - Export types that appear in the public dia API.
package internal
