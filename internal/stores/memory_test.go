package stores

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/dia-accounts/dia/refresh"
	"github.com/dia-accounts/dia/user"
	"github.com/google/uuid"
)

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUsers()

	u := user.User{ID: uuid.New(), Username: "alice", Groups: []string{"users"}}
	if _, err := s.Create(ctx, u); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := s.Create(ctx, user.User{ID: uuid.New(), Username: "alice"}); !errors.Is(err, user.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	got, err := s.ByUsername(ctx, "alice")
	if err != nil || got.ID != u.ID {
		t.Fatalf("ByUsername = %+v, %v", got, err)
	}
	got.Groups[0] = "admin"
	again, _ := s.ByID(ctx, u.ID)
	if again.Groups[0] != "users" {
		t.Fatalf("stored groups were mutated through a returned copy")
	}

	if _, err := s.ByUsername(ctx, "bob"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRefreshTokens(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRefreshTokens()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	owner := uuid.New()

	older := refresh.Record{ID: uuid.New(), UserID: owner, TokenString: "a", Created: now.Add(-2 * time.Hour), Expires: now.Add(-time.Hour)}
	newer := refresh.Record{ID: uuid.New(), UserID: owner, TokenString: "b", Created: now.Add(-time.Minute), Expires: now.Add(time.Hour)}
	for _, rec := range []refresh.Record{newer, older} {
		if err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert error: %v", err)
		}
	}
	if err := s.Insert(ctx, older); !errors.Is(err, refresh.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if _, err := s.FindValid(ctx, "a", now); !errors.Is(err, refresh.ErrNotFound) {
		t.Fatalf("expired record should not be found, got %v", err)
	}
	if rec, err := s.FindValid(ctx, "b", now); err != nil || rec.ID != newer.ID {
		t.Fatalf("FindValid = %+v, %v", rec, err)
	}

	all, err := s.ListByUser(ctx, owner, false, now)
	if err != nil || len(all) != 2 || all[0].TokenString != "a" {
		t.Fatalf("ListByUser(all) = %+v, %v", all, err)
	}
	valid, _ := s.ListByUser(ctx, owner, true, now)
	if len(valid) != 1 || valid[0].TokenString != "b" {
		t.Fatalf("ListByUser(valid) = %+v", valid)
	}
	none, _ := s.ListByUser(ctx, uuid.New(), false, now)
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func TestMemoryRefreshTokensListBreaksTiesOnID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRefreshTokens()
	owner := uuid.New()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ids := make([]uuid.UUID, 0, 8)
	for i := range 8 {
		id := uuid.Must(uuid.NewV7())
		ids = append(ids, id)
		rec := refresh.Record{
			ID:          id,
			TokenString: "tie-" + string(rune('a'+i)),
			Created:     created,
			Expires:     created.Add(time.Hour),
			UserID:      owner,
		}
		if err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert error: %v", err)
		}
	}

	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	for attempt := 0; attempt < 20; attempt++ {
		got, err := s.ListByUser(ctx, owner, false, created)
		if err != nil {
			t.Fatalf("ListByUser error: %v", err)
		}
		if len(got) != len(ids) {
			t.Fatalf("expected %d records, got %d", len(ids), len(got))
		}
		for i := range got {
			if got[i].ID != ids[i] {
				t.Fatalf("attempt %d: position %d has %s, want %s", attempt, i, got[i].ID, ids[i])
			}
		}
	}
}
