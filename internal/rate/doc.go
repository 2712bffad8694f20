// Package rate implements the fixed-window request limiter and the counter store
// adapter it runs against.
//
// # Window semantics
//
// The first request in a window creates the counter with capacity-1 remaining and a TTL
// equal to the window (SET NX PX). Later requests decrement it atomically through a Lua
// script that refuses to go below zero. An exhausted counter rejects with the remaining
// TTL as the retry interval. Counters disappear with their TTL; nothing here deletes them.
//
// Key layout: {prefix}:{group}:{kind}:{value}, e.g. rl:login:addr:127.0.0.1.
//
// # Failure policy
//
// Store failures and store timeouts are returned wrapped in [ErrStoreUnavailable] and
// never as [ErrRateLimited]. Whether to fail open is the caller's decision.
//
// # What this package must NOT do
//
//   - Hard-code per-endpoint capacities (those live in internal/limiters).
//   - Roll back a decrement when the caller's request is later cancelled.
package rate
