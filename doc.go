// Package dia is an access-control core: per-client rate limiting over a shared counter
// store, password credentials, long-lived refresh tokens and short-lived RS256 tokens
// minted from them.
//
// Engine methods are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// dia is the public surface. It exposes [Engine], [Builder], [Config] and the error
// taxonomy. Flow orchestration, rate limiting, audit dispatch and the Postgres stores live
// under internal/. The jwt, refresh, password, user and clientip packages hold reusable
// primitives.
//
// # Caller identity
//
// Rate-limited operations take the caller's network address explicitly. Resolve it at
// the transport edge with package clientip; the engine never reads headers.
//
// # Failure policy
//
// A counter store that cannot answer rejects the request with [ErrStoreUnavailable]
// unless Config.RateLimit.FailOpen is set. Credential failures never reveal whether the
// username exists.
package dia
