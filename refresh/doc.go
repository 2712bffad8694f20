// Package refresh implements the refresh-token ledger: persisted long-lived credentials
// from which short-lived signed tokens are minted.
//
// # Trust chain
//
// A record is created after a successful credential check. Minting looks the record up
// by its token string, requires expires > now, and caps the requested token lifetime at
// the record's MaxJWTLifetime. The minted claims carry the record id as parent_token, so
// every signed token names the ledger entry that authorized it.
//
// # Architecture boundaries
//
// Persistence goes through [Store]; user snapshots through [UserLookup]; signing
// through [jwt.Manager]. Records are immutable after insert. Bounds are checked before
// any store access.
//
// # What this package must NOT do
//
//   - Verify passwords or apply rate limits.
//   - Mutate or delete records.
//   - Import the root dia package.
package refresh
