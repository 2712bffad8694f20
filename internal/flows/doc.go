// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunCheckRateLimit, RunFromCredentials, RunCreateUser,
// RunCreateRefreshToken, RunSignJWT, ...) accepts a typed dependency struct and returns
// results without side effects beyond those dependencies. The Engine builds the
// dependency structs once and stays thin.
//
// # Ordering
//
// Input validation runs before any store is touched, including the rate-limit counter
// store. Rate limiting runs before credential verification. Credential misses and
// password mismatches surface as one error; the distinction survives only in audit
// metadata.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root dia package.
//   - Perform I/O directly; all I/O goes through dependency funcs.
package flows
