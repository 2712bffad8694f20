package rate

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Group partitions rate-limit accounting by endpoint category.
type Group uint8

const (
	General Group = iota
	Login
	Register
)

func (g Group) String() string {
	switch g {
	case General:
		return "general"
	case Login:
		return "login"
	case Register:
		return "register"
	default:
		return fmt.Sprintf("group(%d)", uint8(g))
	}
}

// ParseGroup is the inverse of Group.String.
func ParseGroup(s string) (Group, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "general":
		return General, nil
	case "login":
		return Login, nil
	case "register":
		return Register, nil
	default:
		return 0, fmt.Errorf("%w: unknown group %q", ErrInvalidLimit, s)
	}
}

type identifierKind uint8

const (
	kindNone identifierKind = iota
	kindAddress
	kindSubject
)

// Identifier is the caller-distinguishing half of a rate-limit key: either a network
// address or an authenticated subject id. The zero value identifies nobody.
type Identifier struct {
	kind  identifierKind
	value string
}

// AddressIdentifier keys a caller by network address. IPv4-mapped IPv6 addresses are
// unmapped so both spellings of one caller share a counter.
func AddressIdentifier(addr netip.Addr) Identifier {
	if !addr.IsValid() {
		return Identifier{}
	}
	return Identifier{kind: kindAddress, value: addr.Unmap().WithZone("").String()}
}

// SubjectIdentifier keys a caller by authenticated user id.
func SubjectIdentifier(id uuid.UUID) Identifier {
	if id == uuid.Nil {
		return Identifier{}
	}
	return Identifier{kind: kindSubject, value: id.String()}
}

func (i Identifier) IsZero() bool {
	return i.kind == kindNone
}

func (i Identifier) String() string {
	switch i.kind {
	case kindAddress:
		return "addr:" + i.value
	case kindSubject:
		return "user:" + i.value
	default:
		return ""
	}
}

// Limit is one fully specified rate-limit check. Values are built once per call site and
// never mutated.
type Limit struct {
	Group      Group
	Identifier Identifier
	Capacity   int64
	Window     time.Duration
}

func (l Limit) validate() error {
	if l.Identifier.IsZero() {
		return fmt.Errorf("%w: missing identifier", ErrInvalidLimit)
	}
	if l.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be >= 1", ErrInvalidLimit)
	}
	if l.Window < time.Millisecond {
		return fmt.Errorf("%w: window must be >= 1ms", ErrInvalidLimit)
	}
	return nil
}

// key derives the store key. The same group and identifier always map to the same key.
func (l Limit) key(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + 16 + len(l.Identifier.value))
	b.WriteString(prefix)
	b.WriteByte(':')
	b.WriteString(l.Group.String())
	b.WriteByte(':')
	b.WriteString(l.Identifier.String())
	return b.String()
}
