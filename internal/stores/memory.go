package stores

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dia-accounts/dia/refresh"
	"github.com/dia-accounts/dia/user"
	"github.com/google/uuid"
)

// MemoryUsers is a process-local user.Store for development runs without a database.
type MemoryUsers struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]user.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byID: make(map[uuid.UUID]user.User)}
}

func (s *MemoryUsers) ByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *MemoryUsers) ByID(_ context.Context, id uuid.UUID) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryUsers) Create(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Username == u.Username {
			return user.User{}, user.ErrUsernameTaken
		}
	}
	if u.Groups == nil {
		u.Groups = []string{}
	}
	s.byID[u.ID] = cloneUser(u)
	return u, nil
}

func cloneUser(u user.User) user.User {
	u.Groups = append([]string(nil), u.Groups...)
	return u
}

// MemoryRefreshTokens is a process-local refresh.Store.
type MemoryRefreshTokens struct {
	mu      sync.RWMutex
	byToken map[string]refresh.Record
}

func NewMemoryRefreshTokens() *MemoryRefreshTokens {
	return &MemoryRefreshTokens{byToken: make(map[string]refresh.Record)}
}

func (s *MemoryRefreshTokens) Insert(_ context.Context, rec refresh.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byToken[rec.TokenString]; ok {
		return refresh.ErrDuplicate
	}
	s.byToken[rec.TokenString] = rec
	return nil
}

func (s *MemoryRefreshTokens) FindValid(_ context.Context, token string, now time.Time) (refresh.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byToken[token]
	if !ok || !rec.ValidAt(now) {
		return refresh.Record{}, refresh.ErrNotFound
	}
	return rec, nil
}

func (s *MemoryRefreshTokens) ListByUser(_ context.Context, userID uuid.UUID, validOnly bool, now time.Time) ([]refresh.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []refresh.Record{}
	for _, rec := range s.byToken {
		if rec.UserID != userID || (validOnly && !rec.ValidAt(now)) {
			continue
		}
		out = append(out, rec)
	}
	// Same order as the relational store: created, then id.
	slices.SortFunc(out, func(a, b refresh.Record) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}
