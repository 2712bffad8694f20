// Package limiters binds the per-group request budgets to the fixed-window limiter in
// internal/rate.
//
// # Groups
//
//   - General: every routed request, keyed by subject when authenticated, else address.
//   - Login: credential-presenting operations, keyed by address.
//   - Register: account creation, keyed by address.
//
// Budgets come from configuration; [DefaultPolicies] carries the stock values.
//
// # What this package must NOT do
//
//   - Import the root package or any sibling internal package except internal/rate.
//   - Decide fail-open versus fail-closed; store errors are returned as-is.
package limiters
