package stores

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dia-accounts/dia/refresh"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var refreshRowColumns = []string{"id", "token_string", "created", "modified", "expires", "user_id", "client_address", "max_jwt_lifetime"}

func TestRefreshInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	now := time.Now().UTC()
	rec := refresh.Record{
		ID: uuid.New(), TokenString: "tok", Created: now, Modified: now, Expires: now.Add(time.Hour),
		UserID: uuid.New(), ClientAddress: "127.0.0.1", MaxJWTLifetime: 300 * time.Second,
	}

	mock.ExpectExec(`(?s)^\s*INSERT INTO refresh_tokens .*VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8\)\s*$`).
		WithArgs(rec.ID, "tok", now, now, rec.Expires, rec.UserID, "127.0.0.1", int64(300)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Insert(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshInsert_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec(`(?s)^\s*INSERT INTO refresh_tokens`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	if err := repo.Insert(context.Background(), refresh.Record{ID: uuid.New()}); !errors.Is(err, refresh.ErrDuplicate) {
		t.Fatalf("want refresh.ErrDuplicate, got %v", err)
	}
}

func TestRefreshFindValid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	id, owner := uuid.New(), uuid.New()
	rows := sqlmock.NewRows(refreshRowColumns).
		AddRow(id.String(), "tok", now, now, now.Add(time.Hour), owner.String(), "10.0.0.1", int64(60))

	mock.ExpectQuery(`(?s)^SELECT .* FROM refresh_tokens WHERE token_string = \$1 AND expires > \$2$`).
		WithArgs("tok", now).
		WillReturnRows(rows)

	rec, err := repo.FindValid(context.Background(), "tok", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != id || rec.UserID != owner || rec.MaxJWTLifetime != time.Minute || rec.ClientAddress != "10.0.0.1" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestRefreshFindValid_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectQuery(`(?s)^SELECT .* FROM refresh_tokens`).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindValid(context.Background(), "gone", time.Now()); !errors.Is(err, refresh.ErrNotFound) {
		t.Fatalf("want refresh.ErrNotFound, got %v", err)
	}
}

func TestRefreshListByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	owner := uuid.New()
	first, second := uuid.New(), uuid.New()
	rows := sqlmock.NewRows(refreshRowColumns).
		AddRow(first.String(), "a", now, now, now.Add(time.Hour), owner.String(), "", int64(10)).
		AddRow(second.String(), "b", now.Add(time.Second), now, now.Add(time.Hour), owner.String(), "", int64(10))

	mock.ExpectQuery(`(?s)^SELECT .* FROM refresh_tokens\s+WHERE user_id = \$1 AND \(NOT \$2 OR expires > \$3\)\s+ORDER BY created, id$`).
		WithArgs(owner, true, now).
		WillReturnRows(rows)

	recs, err := repo.ListByUser(context.Background(), owner, true, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != first || recs[1].ID != second {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestRefreshListByUser_RowError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	rows := sqlmock.NewRows(refreshRowColumns).
		AddRow(uuid.NewString(), "a", time.Now(), time.Now(), time.Now(), uuid.NewString(), "", int64(10)).
		RowError(0, errors.New("broken row"))

	mock.ExpectQuery(`(?s)^SELECT .* FROM refresh_tokens`).WillReturnRows(rows)

	if _, err := repo.ListByUser(context.Background(), uuid.New(), false, time.Now()); err == nil {
		t.Fatal("expected row error")
	}
}
