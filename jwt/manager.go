package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const maxLeeway = 2 * time.Minute

// Config wires a Manager.
type Config struct {
	Keys *KeyPair
	// Leeway tolerates clock skew on exp and iat. At most two minutes.
	Leeway time.Duration
	// Now overrides the wall clock; nil means time.Now.
	Now func() time.Time
}

// Manager encodes and decodes signed tokens with one KeyPair.
type Manager struct {
	keys   *KeyPair
	now    func() time.Time
	parser *jwt.Parser
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Keys == nil {
		return nil, errors.New("jwt manager requires a key pair")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}

	return &Manager{
		keys:   cfg.Keys,
		now:    cfg.Now,
		parser: jwt.NewParser(options...),
	}, nil
}

// Encode signs claims. exp must be after iat.
func (m *Manager) Encode(claims Claims) (string, error) {
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return "", fmt.Errorf("%w: iat and exp are required", ErrEncode)
	}
	if !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		return "", fmt.Errorf("%w: exp must be after iat", ErrEncode)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = m.keys.KeyID()

	signingString, err := token.SigningString()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncode, err)
	}
	sig, err := m.keys.Sign([]byte(signingString))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return signingString + "." + token.EncodeSegment(sig), nil
}

// Decode verifies the signature and then the claims of tokenStr.
func (m *Manager) Decode(tokenStr string) (*Claims, error) {
	token, err := m.parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != Algorithm {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if kid, ok := t.Header["kid"]; ok && kid != m.keys.KeyID() {
			return nil, errors.New("unknown kid")
		}
		return m.keys.publicKey(), nil
	})
	if err != nil {
		return nil, decodeError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.IssuedAt == nil || !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		return nil, fmt.Errorf("%w: exp must be after iat", ErrInvalidClaims)
	}
	return claims, nil
}

// PublicKeyPEM exposes the verification key for external verifiers.
func (m *Manager) PublicKeyPEM() []byte {
	return m.keys.PublicKeyPEM()
}

func (m *Manager) KeyID() string {
	return m.keys.KeyID()
}

func decodeError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
}
