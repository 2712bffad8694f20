package jwt

import "errors"

var (
	// ErrMalformedKey reports key bytes that do not parse as an RSA private key.
	ErrMalformedKey = errors.New("malformed private key")
	// ErrWeakKey reports an RSA key below MinKeyBits.
	ErrWeakKey = errors.New("private key too small")
	// ErrInvalidSignature reports a token whose signature, algorithm or key id does not verify.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired reports a correctly signed token past its exp.
	ErrExpired = errors.New("token expired")
	// ErrMalformedToken reports input that is not a JWT at all.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidClaims reports a verified token whose claims are unusable.
	ErrInvalidClaims = errors.New("invalid token claims")
	// ErrEncode reports claims that cannot be signed.
	ErrEncode = errors.New("token encode failed")
)
