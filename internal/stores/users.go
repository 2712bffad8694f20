package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dia-accounts/dia/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// UserRepository implements user.Store.
type UserRepository struct {
	db    DBTX
	types *pgtype.Map
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db, types: pgtype.NewMap()}
}

const userColumns = `id, created, modified, username, email, display_name, password_hash, groups`

func (r *UserRepository) ByUsername(ctx context.Context, username string) (user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) ByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// Create inserts u. A taken username yields user.ErrUsernameTaken.
func (r *UserRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	query := `
		INSERT INTO users (id, created, modified, username, email, display_name, password_hash, groups)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Created, u.Modified, u.Username,
		nullString(u.Email), nullString(u.DisplayName), u.PasswordHash, groups)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameTaken
		}
		return user.User{}, fmt.Errorf("db error: %w", err)
	}
	u.Groups = groups
	return u, nil
}

func (r *UserRepository) scanOne(row *sql.Row) (user.User, error) {
	var (
		u           user.User
		email, name sql.NullString
	)
	err := row.Scan(&u.ID, &u.Created, &u.Modified, &u.Username, &email, &name, &u.PasswordHash, r.types.SQLScanner(&u.Groups))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("db error: %w", err)
	}
	u.Email = email.String
	u.DisplayName = name.String
	return u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
