package jwt

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func newTestManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	kp, _ := testKeyPairs(t)
	m, err := NewManager(Config{Keys: kp, Now: now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func testSubject() Subject {
	return Subject{
		ID:          uuid.MustParse("0190f5a4-7c1e-7b3a-9d2e-4f5a6b7c8d9e"),
		Username:    "mallory_01",
		Email:       "mallory@example.com",
		DisplayName: "Mallory",
		Groups:      []string{"staff", "ops"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	issued := time.Unix(1_760_000_000, 0)
	m := newTestManager(t, func() time.Time { return issued.Add(time.Minute) })

	for _, lifetime := range []time.Duration{time.Second, 10 * time.Second, 5 * time.Minute, time.Hour} {
		claims := NewClaims(testSubject(), uuid.New(), issued, lifetime)
		token, err := m.Encode(claims)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if lifetime <= time.Minute {
			continue
		}

		got, err := m.Decode(token)
		if err != nil {
			t.Fatalf("decode (lifetime %s): %v", lifetime, err)
		}
		if !reflect.DeepEqual(got.User, claims.User) {
			t.Fatalf("user mismatch: %+v != %+v", got.User, claims.User)
		}
		if got.ParentToken != claims.ParentToken {
			t.Fatalf("parent token mismatch: %s != %s", got.ParentToken, claims.ParentToken)
		}
		if !got.IssuedAt.Equal(claims.IssuedAt.Time) || !got.ExpiresAt.Equal(claims.ExpiresAt.Time) {
			t.Fatalf("timestamps mismatch: iat %v/%v exp %v/%v", got.IssuedAt, claims.IssuedAt, got.ExpiresAt, claims.ExpiresAt)
		}
		if got.Lifetime() != lifetime {
			t.Fatalf("lifetime = %s, want %s", got.Lifetime(), lifetime)
		}
	}
}

func TestDecodeExpired(t *testing.T) {
	issued := time.Unix(1_760_000_000, 0)
	now := issued
	m := newTestManager(t, func() time.Time { return now })

	token, err := m.Encode(NewClaims(testSubject(), uuid.New(), issued, 10*time.Second))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := m.Decode(token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	now = issued.Add(11 * time.Second)
	if _, err := m.Decode(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestDecodeRejectsForeignSignature(t *testing.T) {
	kp, other := testKeyPairs(t)
	issued := time.Now()

	foreign, err := NewManager(Config{Keys: other})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := foreign.Encode(NewClaims(testSubject(), uuid.New(), issued, time.Minute))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	m, err := NewManager(Config{Keys: kp})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Decode(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestDecodeRejectsTamperedPayload(t *testing.T) {
	m := newTestManager(t, nil)
	token, err := m.Encode(NewClaims(testSubject(), uuid.New(), time.Now(), time.Minute))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	other, err := m.Encode(NewClaims(Subject{ID: uuid.New(), Username: "root"}, uuid.New(), time.Now(), time.Minute))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	parts := strings.Split(token, ".")
	forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

	if _, err := m.Decode(forged); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestDecodeExpiredForgeryReportsSignature(t *testing.T) {
	kp, other := testKeyPairs(t)
	issued := time.Unix(1_760_000_000, 0)
	foreign, err := NewManager(Config{Keys: other})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := foreign.Encode(NewClaims(testSubject(), uuid.New(), issued, time.Minute))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	m, err := NewManager(Config{Keys: kp, Now: func() time.Time { return issued.Add(time.Hour) }})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Decode(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected signature to be checked before expiry, got %v", err)
	}
}

func TestDecodeRejectsWrongAlgorithm(t *testing.T) {
	m := newTestManager(t, nil)

	claims := NewClaims(testSubject(), uuid.New(), time.Now(), time.Minute)
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Decode(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for hs256 token, got %v", err)
	}

	unsigned, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := m.Decode(unsigned); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for alg none, got %v", err)
	}
}

func TestDecodeRejectsUnknownKeyID(t *testing.T) {
	kp, _ := testKeyPairs(t)
	m := newTestManager(t, nil)

	token := gjwt.NewWithClaims(gjwt.SigningMethodRS256, NewClaims(testSubject(), uuid.New(), time.Now(), time.Minute))
	token.Header["kid"] = "rotated-away"
	signed, err := token.SignedString(kp.private)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Decode(signed); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for unknown kid, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	m := newTestManager(t, nil)
	for _, in := range []string{"", "not-a-jwt", "a.b", "a.b.c"} {
		if _, err := m.Decode(in); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("Decode(%q): expected ErrMalformedToken, got %v", in, err)
		}
	}
}

func TestDecodeRequiresExpiry(t *testing.T) {
	kp, _ := testKeyPairs(t)
	m := newTestManager(t, nil)

	claims := Claims{User: testSubject(), ParentToken: uuid.New()}
	claims.IssuedAt = gjwt.NewNumericDate(time.Now())
	signed, err := gjwt.NewWithClaims(gjwt.SigningMethodRS256, claims).SignedString(kp.private)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Decode(signed); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims without exp, got %v", err)
	}
}

func TestEncodeRejectsNonPositiveLifetime(t *testing.T) {
	m := newTestManager(t, nil)
	issued := time.Now()
	for _, lifetime := range []time.Duration{0, -time.Minute} {
		if _, err := m.Encode(NewClaims(testSubject(), uuid.New(), issued, lifetime)); !errors.Is(err, ErrEncode) {
			t.Fatalf("lifetime %s: expected ErrEncode, got %v", lifetime, err)
		}
	}
	if _, err := m.Encode(Claims{User: testSubject()}); !errors.Is(err, ErrEncode) {
		t.Fatalf("expected ErrEncode without timestamps, got %v", err)
	}
}

func TestNewManagerValidatesConfig(t *testing.T) {
	kp, _ := testKeyPairs(t)
	if _, err := NewManager(Config{}); err == nil {
		t.Fatal("expected missing keys to be rejected")
	}
	if _, err := NewManager(Config{Keys: kp, Leeway: time.Hour}); err == nil {
		t.Fatal("expected oversized leeway to be rejected")
	}
}
