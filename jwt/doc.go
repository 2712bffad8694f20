// Package jwt owns the service's signing key pair and the signed-token format built on
// it.
//
// Tokens are RS256 JWTs. The payload carries a snapshot of the user, the id of the
// refresh-token record that authorized issuance (parent_token), iat and exp. [Manager]
// encodes and decodes them; [KeyPair] generates, loads, persists, signs and verifies.
//
// Decode distinguishes [ErrExpired] from [ErrInvalidSignature] so callers can tell a
// stale credential from a forged one. The signature is checked before any claim, so an
// expired token with a bad signature reports [ErrInvalidSignature].
package jwt
