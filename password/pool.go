package password

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool runs Argon2 work on dedicated goroutines, at most a fixed number at a time, so a
// burst of logins cannot occupy every scheduler thread. Callers block only on their own
// context; an abandoned computation still finishes and frees its slot.
type Pool struct {
	hasher *Argon2
	sem    *semaphore.Weighted

	dummyOnce sync.Once
	dummy     string
	dummyErr  error
}

// NewPool bounds concurrent hashing to workers, or GOMAXPROCS when workers <= 0.
func NewPool(hasher *Argon2, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		hasher: hasher,
		sem:    semaphore.NewWeighted(int64(workers)),
	}
}

// NeedsUpgrade parses encoded without taking a worker slot. Unparseable hashes
// report false; Verify rejects them anyway.
func (p *Pool) NeedsUpgrade(encoded string) bool {
	upgrade, err := p.hasher.NeedsUpgrade(encoded)
	return err == nil && upgrade
}

func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	var (
		encoded string
		err     error
	)
	if runErr := p.run(ctx, func() {
		encoded, err = p.hasher.Hash(password)
	}); runErr != nil {
		return "", runErr
	}
	return encoded, err
}

// Verify returns nil on match, ErrMismatch on a wrong password.
func (p *Pool) Verify(ctx context.Context, encoded, password string) error {
	var err error
	if runErr := p.run(ctx, func() {
		err = p.hasher.Verify(encoded, password)
	}); runErr != nil {
		return runErr
	}
	return err
}

// VerifyDummy spends the same work as Verify against a throwaway hash. Credential
// checks call it for unknown usernames so response time does not reveal existence.
func (p *Pool) VerifyDummy(ctx context.Context, password string) {
	p.dummyOnce.Do(func() {
		p.dummy, p.dummyErr = p.hasher.Hash("dummy-password-for-absent-users")
	})
	if p.dummyErr != nil {
		return
	}
	_ = p.Verify(ctx, p.dummy, password)
}

func (p *Pool) run(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer p.sem.Release(1)
		defer close(done)
		fn()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
