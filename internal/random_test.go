package internal

import (
	"errors"
	"strings"
	"testing"
)

func TestRandomAlphanumeric(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		s, err := RandomAlphanumeric(100)
		if err != nil {
			t.Fatalf("RandomAlphanumeric: %v", err)
		}
		if len(s) != 100 {
			t.Fatalf("expected 100 chars, got %d", len(s))
		}
		for _, c := range s {
			if !strings.ContainsRune(alphanumeric, c) {
				t.Fatalf("unexpected character %q in %q", c, s)
			}
		}
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate token %q", s)
		}
		seen[s] = struct{}{}
	}
}

func TestRandomAlphanumericRejectsBadLength(t *testing.T) {
	if _, err := RandomAlphanumeric(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestRandomAlphanumericPropagatesReaderError(t *testing.T) {
	if _, err := randomAlphanumeric(failingReader{}, 10); err == nil {
		t.Fatal("expected reader error")
	}
}
