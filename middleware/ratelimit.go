package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/dia-accounts/dia"
)

// RateLimit charges group for every request. It must run after ClientAddress.
func RateLimit(engine *dia.Engine, group dia.RateLimitGroup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			id, ok := identify(engine, r)
			if !ok {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			err := engine.CheckRateLimit(r.Context(), group, id)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, dia.ErrRateLimited):
				if wait, ok := dia.RetryAfter(err); ok {
					w.Header().Set("Retry-After", retryAfterSeconds(wait.Seconds()))
				}
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			default:
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		})
	}
}

// identify prefers the subject of a valid bearer token, so an authenticated user keeps
// one budget across addresses.
func identify(engine *dia.Engine, r *http.Request) (dia.RateLimitIdentifier, bool) {
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		return dia.SubjectIdentifier(claims.User.ID), true
	}
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		if claims, err := engine.ValidateJWT(token); err == nil {
			return dia.SubjectIdentifier(claims.User.ID), true
		}
	}
	addr, ok := AddressFromContext(r.Context())
	if !ok {
		return dia.RateLimitIdentifier{}, false
	}
	return dia.AddressIdentifier(addr), true
}

func retryAfterSeconds(seconds float64) string {
	return strconv.FormatInt(int64(math.Max(1, math.Ceil(seconds))), 10)
}
