// Package middleware adapts dia.Engine to net/http: client address resolution, the
// General rate limit and a bearer-token guard.
//
// # Chain
//
//   - [ClientAddress] resolves the caller address once and stores it in the context.
//   - [RateLimit] charges a group budget, keyed by the bearer subject when the request
//     carries a valid token and by the client address otherwise.
//   - [Guard] rejects requests without a valid bearer token and stores the claims.
//
// # What this package must NOT do
//
//   - Parse or sign JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject.
package middleware
