package dia

import (
	"bytes"
	"time"

	"github.com/dia-accounts/dia/jwt"
)

// ValidateJWT verifies the signature and expiry of token and returns its claims.
// Failures match ErrInvalidSignature, ErrTokenExpired, ErrMalformedToken or ErrInvalidClaims.
func (e *Engine) ValidateJWT(token string) (*jwt.Claims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	claims, err := e.tokens.Decode(token)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	if err != nil {
		e.metricInc(MetricJWTValidateFailure)
		return nil, err
	}
	e.metricInc(MetricJWTValidateSuccess)
	return claims, nil
}

func (e *Engine) IsJWTValid(token string) bool {
	_, err := e.ValidateJWT(token)
	return err == nil
}

// JWTPublicKey returns the PEM-encoded verification key. The slice is a copy.
func (e *Engine) JWTPublicKey() []byte {
	if e == nil || e.tokens == nil {
		return nil
	}
	return bytes.Clone(e.tokens.PublicKeyPEM())
}

func (e *Engine) JWTKeyID() string {
	if e == nil || e.tokens == nil {
		return ""
	}
	return e.tokens.KeyID()
}
