package refresh

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/dia-accounts/dia/internal"
	"github.com/dia-accounts/dia/jwt"
	"github.com/dia-accounts/dia/user"
	"github.com/google/uuid"
)

// TokenLength is the number of alphanumeric characters in a token string.
const TokenLength = 100

// Config wires a Ledger.
type Config struct {
	Store  Store
	Users  UserLookup
	Tokens *jwt.Manager
	Bounds Bounds
	// Now overrides the wall clock; nil means time.Now.
	Now func() time.Time
}

// Ledger creates refresh tokens and mints signed tokens from them.
type Ledger struct {
	store  Store
	users  UserLookup
	tokens *jwt.Manager
	bounds Bounds
	now    func() time.Time
}

// Minted is the result of MintJWT.
type Minted struct {
	Token  string
	Claims jwt.Claims
	Parent Record
}

func NewLedger(cfg Config) (*Ledger, error) {
	if cfg.Store == nil || cfg.Users == nil || cfg.Tokens == nil {
		return nil, errors.New("refresh ledger requires a store, a user lookup and a token manager")
	}
	if cfg.Bounds == (Bounds{}) {
		cfg.Bounds = DefaultBounds()
	}
	if err := cfg.Bounds.Validate(); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Ledger{
		store:  cfg.Store,
		users:  cfg.Users,
		tokens: cfg.Tokens,
		bounds: cfg.Bounds,
		now:    cfg.Now,
	}, nil
}

// Bounds returns the configured lifetime ranges.
func (l *Ledger) Bounds() Bounds {
	return l.bounds
}

// Create persists a new record for userID expiring expiresIn from now. Bounds are checked
// before the store is touched.
func (l *Ledger) Create(ctx context.Context, userID uuid.UUID, client netip.Addr, expiresIn, maxJWTLifetime time.Duration) (Record, error) {
	if err := l.bounds.Check(expiresIn, maxJWTLifetime); err != nil {
		return Record{}, err
	}
	if userID == uuid.Nil {
		return Record{}, errors.New("refresh: user id is required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("refresh: new id: %w", err)
	}
	token, err := internal.RandomAlphanumeric(TokenLength)
	if err != nil {
		return Record{}, fmt.Errorf("refresh: token string: %w", err)
	}

	now := l.now().UTC().Truncate(time.Microsecond)
	rec := Record{
		ID:             id,
		TokenString:    token,
		Created:        now,
		Modified:       now,
		Expires:        now.Add(expiresIn),
		UserID:         userID,
		ClientAddress:  clientAddress(client),
		MaxJWTLifetime: maxJWTLifetime,
	}
	if err := l.store.Insert(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("refresh: insert: %w", err)
	}
	return rec, nil
}

// Find returns the unexpired record for token.
func (l *Ledger) Find(ctx context.Context, token string) (Record, error) {
	if token == "" {
		return Record{}, ErrNotFound
	}
	rec, err := l.store.FindValid(ctx, token, l.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("refresh: lookup: %w", err)
	}
	return rec, nil
}

// List returns userID's records in creation order.
func (l *Ledger) List(ctx context.Context, userID uuid.UUID, validOnly bool) ([]Record, error) {
	recs, err := l.store.ListByUser(ctx, userID, validOnly, l.now())
	if err != nil {
		return nil, fmt.Errorf("refresh: list: %w", err)
	}
	return recs, nil
}

// MintJWT signs a token for the owner of the record identified by token. The token's
// exp - iat equals lifetime, which must not exceed the record's MaxJWTLifetime.
func (l *Ledger) MintJWT(ctx context.Context, token string, lifetime time.Duration) (Minted, error) {
	if lifetime < time.Second || lifetime%time.Second != 0 {
		return Minted{}, fmt.Errorf("%w: token lifetime must be a positive whole number of seconds", ErrOutOfRange)
	}

	rec, err := l.Find(ctx, token)
	if err != nil {
		return Minted{}, err
	}
	if lifetime > rec.MaxJWTLifetime {
		return Minted{}, fmt.Errorf("%w: requested %s, maximum %s", ErrLifetimeExceeded, lifetime, rec.MaxJWTLifetime)
	}

	owner, err := l.users.ByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Minted{}, ErrNotFound
		}
		return Minted{}, fmt.Errorf("refresh: load owner: %w", err)
	}

	claims := jwt.NewClaims(owner.Subject(), rec.ID, l.now(), lifetime)
	signed, err := l.tokens.Encode(claims)
	if err != nil {
		return Minted{}, err
	}
	return Minted{Token: signed, Claims: claims, Parent: rec}, nil
}

func clientAddress(addr netip.Addr) string {
	if !addr.IsValid() {
		return ""
	}
	return addr.Unmap().String()
}
