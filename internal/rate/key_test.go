package rate

import (
	"net/netip"
	"testing"

	"github.com/google/uuid"
)

func TestLimitKeyIsStable(t *testing.T) {
	id := uuid.MustParse("0190f5a4-7c1e-7b3a-9d2e-4f5a6b7c8d9e")
	tests := []struct {
		lim  Limit
		want string
	}{
		{lim: Limit{Group: Login, Identifier: AddressIdentifier(netip.MustParseAddr("127.0.0.1"))}, want: "rl:login:addr:127.0.0.1"},
		{lim: Limit{Group: Register, Identifier: AddressIdentifier(netip.MustParseAddr("2001:db8::1"))}, want: "rl:register:addr:2001:db8::1"},
		{lim: Limit{Group: General, Identifier: SubjectIdentifier(id)}, want: "rl:general:user:" + id.String()},
	}
	for _, tt := range tests {
		if got := tt.lim.key("rl"); got != tt.want {
			t.Fatalf("key = %q, want %q", got, tt.want)
		}
	}
}

func TestZeroIdentifiers(t *testing.T) {
	if !AddressIdentifier(netip.Addr{}).IsZero() {
		t.Fatal("invalid address must give zero identifier")
	}
	if !SubjectIdentifier(uuid.Nil).IsZero() {
		t.Fatal("nil uuid must give zero identifier")
	}
}

func TestParseGroupRoundTrip(t *testing.T) {
	for _, g := range []Group{General, Login, Register} {
		got, err := ParseGroup(g.String())
		if err != nil || got != g {
			t.Fatalf("ParseGroup(%q) = %v, %v", g.String(), got, err)
		}
	}
	if _, err := ParseGroup("admin"); err == nil {
		t.Fatal("expected unknown group to fail")
	}
}
