package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dia-accounts/dia"
	"github.com/dia-accounts/dia/jwt"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by Guard.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return claims, ok
}

// Guard admits requests whose Authorization header carries an access token
// that the engine accepts, and stores the verified claims on the context.
// Every rejection looks the same to the client.
func Guard(engine *dia.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := verifiedClaims(engine, r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="dia"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims)))
		})
	}
}

func verifiedClaims(engine *dia.Engine, r *http.Request) (*jwt.Claims, bool) {
	if engine == nil {
		return nil, false
	}
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, false
	}
	claims, err := engine.ValidateJWT(token)
	return claims, err == nil
}

// bearerToken extracts the credential of an RFC 6750 header. The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
