package clientip

import (
	"errors"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		peer      string
		forwarded string
		want      string
		wantErr   error
	}{
		{name: "header socket address", peer: "10.0.0.2:5555", forwarded: "203.0.113.5:443", want: "203.0.113.5"},
		{name: "header plain ip", peer: "10.0.0.2:5555", forwarded: "203.0.113.5", want: "203.0.113.5"},
		{name: "header ipv6 with port", peer: "10.0.0.2:5555", forwarded: "[2001:db8::7]:8443", want: "2001:db8::7"},
		{name: "header bracketed ipv6", peer: "10.0.0.2:5555", forwarded: "[2001:db8::7]", want: "2001:db8::7"},
		{name: "header chain uses first hop", peer: "10.0.0.2:5555", forwarded: "198.51.100.9, 10.0.0.1", want: "198.51.100.9"},
		{name: "header mapped ipv4", peer: "", forwarded: "::ffff:192.0.2.1", want: "192.0.2.1"},
		{name: "no header falls back to peer", peer: "198.51.100.7", want: "198.51.100.7"},
		{name: "no header peer with port", peer: "198.51.100.7:40000", want: "198.51.100.7"},
		{name: "blank header falls back to peer", peer: "198.51.100.7:40000", forwarded: "   ", want: "198.51.100.7"},
		{name: "malformed header does not fall back", peer: "198.51.100.7:40000", forwarded: "not-an-ip", wantErr: ErrMalformed},
		{name: "hostname header is malformed", peer: "198.51.100.7:40000", forwarded: "proxy.internal:80", wantErr: ErrMalformed},
		{name: "nothing available", wantErr: ErrUnavailable},
		{name: "unparseable peer", peer: "@", wantErr: ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.peer, tt.forwarded)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got addr=%v err=%v", tt.wantErr, got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != netip.MustParseAddr(tt.want) {
				t.Fatalf("got %v, want %s", got, tt.want)
			}
		})
	}
}

func TestResolverFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/ping", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.5:443")

	got, err := Resolver{Header: DefaultHeader}.FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest error: %v", err)
	}
	if got != netip.MustParseAddr("203.0.113.5") {
		t.Fatalf("got %v", got)
	}

	got, err = Resolver{}.FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest without trusted header: %v", err)
	}
	if got != netip.MustParseAddr("198.51.100.7") {
		t.Fatalf("untrusted header must be ignored, got %v", got)
	}
}

func TestResolverForwardedHeader(t *testing.T) {
	tests := []struct {
		value   string
		want    string
		wantErr error
	}{
		{value: `for=192.0.2.60;proto=http;by=203.0.113.43`, want: "192.0.2.60"},
		{value: `For="[2001:db8:cafe::17]:4711"`, want: "2001:db8:cafe::17"},
		{value: `for=192.0.2.43, for=198.51.100.17`, want: "192.0.2.43"},
		{value: `for=_hidden`, wantErr: ErrMalformed},
		{value: `proto=https`, wantErr: ErrMalformed},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:1"
		req.Header.Set("Forwarded", tt.value)

		got, err := Resolver{Header: "forwarded"}.FromRequest(req)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("%s: expected %v, got %v / %v", tt.value, tt.wantErr, got, err)
			}
			continue
		}
		if err != nil || got != netip.MustParseAddr(tt.want) {
			t.Fatalf("%s: got %v / %v, want %s", tt.value, got, err, tt.want)
		}
	}
}
