package clientip

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

var (
	// ErrMalformed reports a forwarded header that is present but does not parse.
	ErrMalformed = errors.New("malformed forwarded address")
	// ErrUnavailable reports that neither the header nor the peer yields an address.
	ErrUnavailable = errors.New("client address unavailable")
)

// DefaultHeader is the forwarded-address header trusted by default.
const DefaultHeader = "X-Forwarded-For"

// Resolve picks the caller address from forwarded (the proxy-supplied header value, ""
// when absent) or peer (the connection's remote address, IP or IP:port).
func Resolve(peer, forwarded string) (netip.Addr, error) {
	if value := strings.TrimSpace(forwarded); value != "" {
		addr, err := parseAddr(firstHop(value))
		if err != nil {
			return netip.Addr{}, fmt.Errorf("%w: %q", ErrMalformed, value)
		}
		return addr, nil
	}

	if strings.TrimSpace(peer) == "" {
		return netip.Addr{}, ErrUnavailable
	}
	addr, err := parseAddr(peer)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: peer %q", ErrUnavailable, peer)
	}
	return addr, nil
}

// Resolver reads the forwarded header from HTTP requests.
type Resolver struct {
	// Header names the trusted forwarded header. "Forwarded" (RFC 7239) is understood;
	// any other name is read as a plain address list. Empty disables header trust.
	Header string
}

// FromRequest resolves the address of r's caller.
func (res Resolver) FromRequest(r *http.Request) (netip.Addr, error) {
	var forwarded string
	if res.Header != "" {
		forwarded = r.Header.Get(res.Header)
		if forwarded != "" && http.CanonicalHeaderKey(res.Header) == "Forwarded" {
			forwarded = forwardedFor(forwarded)
		}
	}
	return Resolve(r.RemoteAddr, forwarded)
}

// firstHop returns the client entry of a comma separated proxy chain.
func firstHop(value string) string {
	first, _, _ := strings.Cut(value, ",")
	return strings.TrimSpace(first)
}

// forwardedFor extracts the for= parameter of the first RFC 7239 element. An element
// without one yields the raw element so the caller reports it as malformed.
func forwardedFor(value string) string {
	element := firstHop(value)
	for _, pair := range strings.Split(element, ";") {
		name, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && strings.EqualFold(name, "for") {
			return strings.Trim(v, `"`)
		}
	}
	return element
}

func parseAddr(s string) (netip.Addr, error) {
	s = strings.TrimSpace(s)
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap(), nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		if addr, err := netip.ParseAddr(s[1 : len(s)-1]); err == nil {
			return addr.Unmap(), nil
		}
	}
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return netip.Addr{}, err
	}
	return ap.Addr().Unmap(), nil
}
