package dia

import (
	"context"
	"net/netip"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dia-accounts/dia/jwt"
	"github.com/dia-accounts/dia/refresh"
	"github.com/dia-accounts/dia/user"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	testKeyOnce sync.Once
	testKey     *jwt.KeyPair
	testKeyErr  error

	testClient = netip.MustParseAddr("198.51.100.20")
)

const testPassword = "correct horse battery staple"

func testKeyPair(tb testing.TB) *jwt.KeyPair {
	tb.Helper()
	testKeyOnce.Do(func() {
		testKey, testKeyErr = jwt.GenerateKeyPairBits(jwt.MinKeyBits)
	})
	if testKeyErr != nil {
		tb.Fatalf("generate key: %v", testKeyErr)
	}
	return testKey
}

type memUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]user.User
	calls int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[uuid.UUID]user.User)}
}

func (s *memUsers) ByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	for _, u := range s.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *memUsers) ByID(_ context.Context, id uuid.UUID) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (s *memUsers) Create(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Username == u.Username {
			return user.User{}, user.ErrUsernameTaken
		}
	}
	s.byID[u.ID] = u
	return u, nil
}

type memRefresh struct {
	mu      sync.Mutex
	records map[string]refresh.Record
}

func newMemRefresh() *memRefresh {
	return &memRefresh{records: make(map[string]refresh.Record)}
}

func (s *memRefresh) Insert(_ context.Context, rec refresh.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.TokenString]; ok {
		return refresh.ErrDuplicate
	}
	s.records[rec.TokenString] = rec
	return nil
}

func (s *memRefresh) FindValid(_ context.Context, token string, now time.Time) (refresh.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[token]
	if !ok || !rec.ValidAt(now) {
		return refresh.Record{}, refresh.ErrNotFound
	}
	return rec, nil
}

func (s *memRefresh) ListByUser(_ context.Context, userID uuid.UUID, validOnly bool, now time.Time) ([]refresh.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []refresh.Record
	for _, rec := range s.records {
		if rec.UserID != userID || (validOnly && !rec.ValidAt(now)) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEngine struct {
	*Engine
	redis   *miniredis.Miniredis
	users   *memUsers
	refresh *memRefresh
	clock   *testClock
}

func newTestEngine(t *testing.T, mutate func(*Config), opts ...func(*Builder)) *testEngine {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := DefaultConfig()
	cfg.Password.Workers = 2
	if mutate != nil {
		mutate(&cfg)
	}

	te := &testEngine{
		redis:   mr,
		users:   newMemUsers(),
		refresh: newMemRefresh(),
		clock:   &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)},
	}

	b := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(te.users).
		WithRefreshTokenStore(te.refresh).
		WithKeyPair(testKeyPair(t)).
		WithClock(te.clock.Now)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	te.Engine = engine
	return te
}

func (te *testEngine) mustCreateUser(t *testing.T, username string) user.User {
	t.Helper()
	u, err := te.CreateUser(context.Background(), testClient, CreateUserInput{
		Username: username,
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return u
}
