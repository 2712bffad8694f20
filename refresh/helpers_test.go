package refresh

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dia-accounts/dia/jwt"
	"github.com/dia-accounts/dia/user"
	"github.com/google/uuid"
)

var (
	testKeyOnce sync.Once
	testKey     *jwt.KeyPair
	testKeyErr  error
)

type memStore struct {
	mu      sync.Mutex
	records map[string]Record
	inserts int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]Record)}
}

func (s *memStore) Insert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.TokenString]; ok {
		return ErrDuplicate
	}
	s.records[rec.TokenString] = rec
	s.inserts++
	return nil
}

func (s *memStore) FindValid(_ context.Context, token string, now time.Time) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[token]
	if !ok || !rec.ValidAt(now) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *memStore) ListByUser(_ context.Context, userID uuid.UUID, validOnly bool, now time.Time) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.records {
		if rec.UserID != userID || (validOnly && !rec.ValidAt(now)) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, nil
}

type fakeUsers map[uuid.UUID]user.User

func (f fakeUsers) ByID(_ context.Context, id uuid.UUID) (user.User, error) {
	u, ok := f[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type ledgerFixture struct {
	ledger *Ledger
	store  *memStore
	clock  *fakeClock
	tokens *jwt.Manager
	owner  user.User
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	testKeyOnce.Do(func() {
		testKey, testKeyErr = jwt.GenerateKeyPairBits(jwt.MinKeyBits)
	})
	if testKeyErr != nil {
		t.Fatalf("generate key: %v", testKeyErr)
	}

	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens, err := jwt.NewManager(jwt.Config{Keys: testKey, Now: clock.Now})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	owner := user.User{
		ID:       uuid.New(),
		Username: "test_user",
		Email:    "test@example.com",
		Groups:   []string{user.DefaultGroup},
	}
	store := newMemStore()
	ledger, err := NewLedger(Config{
		Store:  store,
		Users:  fakeUsers{owner.ID: owner},
		Tokens: tokens,
		Now:    clock.Now,
	})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return &ledgerFixture{ledger: ledger, store: store, clock: clock, tokens: tokens, owner: owner}
}
