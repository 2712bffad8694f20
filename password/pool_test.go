package password

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPoolHashAndVerify(t *testing.T) {
	pool := NewPool(newTestHasher(t), 2)
	ctx := context.Background()

	hash, err := pool.Hash(ctx, "pool-password-0123456789")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if err := pool.Verify(ctx, hash, "pool-password-0123456789"); err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if err := pool.Verify(ctx, hash, "pool-password-9876543210"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestPoolHonoursCancelledContext(t *testing.T) {
	pool := NewPool(newTestHasher(t), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pool.Hash(ctx, "never-hashed"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPoolReleasesSlotAfterAbandonedWork(t *testing.T) {
	pool := NewPool(newTestHasher(t), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, _ = pool.Hash(ctx, "abandoned")

	hash, err := pool.Hash(context.Background(), "after-abandon")
	if err != nil {
		t.Fatalf("slot was not released: %v", err)
	}
	if err := pool.Verify(context.Background(), hash, "after-abandon"); err != nil {
		t.Fatalf("Verify error: %v", err)
	}
}

func TestPoolConcurrentVerify(t *testing.T) {
	pool := NewPool(newTestHasher(t), 2)
	hash, err := pool.Hash(context.Background(), "shared-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			candidate := "shared-password"
			if i%2 == 1 {
				candidate = "wrong-password"
			}
			err := pool.Verify(context.Background(), hash, candidate)
			if i%2 == 0 && err != nil {
				errs <- err
			}
			if i%2 == 1 && !errors.Is(err, ErrMismatch) {
				errs <- errors.New("wrong password accepted")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestVerifyDummyDoesNotPanic(t *testing.T) {
	pool := NewPool(newTestHasher(t), 1)
	pool.VerifyDummy(context.Background(), "anything")
	pool.VerifyDummy(context.Background(), "anything-else")
}

func TestPoolNeedsUpgrade(t *testing.T) {
	weak := newTestHasher(t)
	hash, err := weak.Hash("pool-password-0123456789")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if NewPool(weak, 1).NeedsUpgrade(hash) {
		t.Fatal("hash made with current parameters must not need upgrade")
	}

	stronger := DefaultConfig()
	stronger.Time++
	strongHasher, err := NewArgon2(stronger)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	pool := NewPool(strongHasher, 1)
	if !pool.NeedsUpgrade(hash) {
		t.Fatal("expected weaker hash to need upgrade")
	}
	if pool.NeedsUpgrade("not-a-phc-string") {
		t.Fatal("unparseable hashes must not report an upgrade")
	}
}
