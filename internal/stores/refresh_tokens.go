package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dia-accounts/dia/refresh"
	"github.com/google/uuid"
)

// RefreshTokenRepository implements refresh.Store.
type RefreshTokenRepository struct {
	db DBTX
}

func NewRefreshTokenRepository(db DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

const refreshColumns = `id, token_string, created, modified, expires, user_id, client_address, max_jwt_lifetime`

func (r *RefreshTokenRepository) Insert(ctx context.Context, rec refresh.Record) error {
	query := `
		INSERT INTO refresh_tokens (id, token_string, created, modified, expires, user_id, client_address, max_jwt_lifetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.TokenString, rec.Created, rec.Modified, rec.Expires,
		rec.UserID, rec.ClientAddress, int64(rec.MaxJWTLifetime/time.Second))
	if err != nil {
		if isUniqueViolation(err) {
			return refresh.ErrDuplicate
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) FindValid(ctx context.Context, token string, now time.Time) (refresh.Record, error) {
	query := `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE token_string = $1 AND expires > $2`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, token, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return refresh.Record{}, refresh.ErrNotFound
		}
		return refresh.Record{}, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *RefreshTokenRepository) ListByUser(ctx context.Context, userID uuid.UUID, validOnly bool, now time.Time) ([]refresh.Record, error) {
	query := `SELECT ` + refreshColumns + ` FROM refresh_tokens
		WHERE user_id = $1 AND (NOT $2 OR expires > $3)
		ORDER BY created, id`

	rows, err := r.db.QueryContext(ctx, query, userID, validOnly, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []refresh.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (refresh.Record, error) {
	var (
		rec     refresh.Record
		seconds int64
	)
	err := row.Scan(&rec.ID, &rec.TokenString, &rec.Created, &rec.Modified, &rec.Expires,
		&rec.UserID, &rec.ClientAddress, &seconds)
	if err != nil {
		return refresh.Record{}, err
	}
	rec.MaxJWTLifetime = time.Duration(seconds) * time.Second
	return rec, nil
}
