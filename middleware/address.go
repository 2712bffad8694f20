package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/netip"

	"github.com/dia-accounts/dia/clientip"
)

type addressContextKey struct{}

// AddressFromContext returns the address stored by ClientAddress.
func AddressFromContext(ctx context.Context) (netip.Addr, bool) {
	addr, ok := ctx.Value(addressContextKey{}).(netip.Addr)
	return addr, ok && addr.IsValid()
}

// ClientAddress resolves the caller address with resolver. A malformed forwarded header
// is a 400; a request with no usable address is a 500.
func ClientAddress(resolver clientip.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr, err := resolver.FromRequest(r)
			if err != nil {
				if errors.Is(err, clientip.ErrMalformed) {
					http.Error(w, "malformed forwarded address", http.StatusBadRequest)
					return
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), addressContextKey{}, addr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
