package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/authapi/internal/models"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	p := newPostgresStore(sqlx.NewDb(db, "postgres"))
	p.now = func() time.Time { return fixedNow }
	return p, mock
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "username", "full_name", "hashed_password", "is_active", "is_superuser", "created_at", "updated_at"})
}

func TestPostgresStore_Create(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO accounts (email, username, full_name, hashed_password, is_active, is_superuser, created_at, updated_at)`)).
		WithArgs("a@x.com", "alice", nil, "hash", true, false, fixedNow, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	a, err := p.Create(context.Background(), models.NewAccount{Email: "a@x.com", Username: "alice", PasswordHash: "hash", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, fixedNow, a.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateUniqueViolation(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Message: "duplicate key value violates unique constraint \"accounts_email_key\""})

	_, err := p.Create(context.Background(), models.NewAccount{Email: "a@x.com", Username: "alice", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateOtherError(t *testing.T) {
	p, mock := newMockPostgres(t)

	boom := errors.New("connection reset")
	mock.ExpectQuery(`INSERT INTO accounts`).WillReturnError(boom)

	_, err := p.Create(context.Background(), models.NewAccount{Email: "a@x.com", Username: "alice", PasswordHash: "hash"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestPostgresStore_FindByEmailOrUsername(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE email = $1 OR username = $2 ORDER BY id LIMIT 1`)).
		WithArgs("alice", "alice").
		WillReturnRows(accountRows().AddRow(1, "a@x.com", "alice", nil, "hash", true, false, fixedNow, fixedNow))

	a, err := p.FindByEmailOrUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, int64(1), a.ID)
	assert.Nil(t, a.FullName)
	assert.True(t, a.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByIDMissing(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	a, err := p.FindByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestPostgresStore_List(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts ORDER BY id LIMIT $1 OFFSET $2`)).
		WithArgs(2, 1).
		WillReturnRows(accountRows().
			AddRow(2, "b@x.com", "bob", "Bob", "hash", true, false, fixedNow, fixedNow).
			AddRow(3, "c@x.com", "carol", nil, "hash", false, true, fixedNow, fixedNow))

	all, err := p.List(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].FullName)
	assert.Equal(t, "Bob", *all[0].FullName)
	assert.True(t, all[1].IsSuperuser)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateBuildsPatch(t *testing.T) {
	p, mock := newMockPostgres(t)

	active := false
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE accounts SET username = $1, is_active = $2, updated_at = $3 WHERE id = $4`)).
		WithArgs("alice2", false, fixedNow, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id = $1`)).
		WithArgs(int64(1)).
		WillReturnRows(accountRows().AddRow(1, "a@x.com", "alice2", nil, "hash", false, false, fixedNow, fixedNow))

	a, err := p.Update(context.Background(), 1, models.AccountPatch{Username: strPtr("alice2"), IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, "alice2", a.Username)
	assert.False(t, a.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateMissing(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE accounts SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := p.Update(context.Background(), 1, models.AccountPatch{Email: strPtr("x@x.com")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_Delete(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id = $1`)).
		WithArgs(int64(4)).
		WillReturnRows(accountRows().AddRow(4, "d@x.com", "dave", nil, "hash", true, false, fixedNow, fixedNow))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM accounts WHERE id = $1`)).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a, err := p.Delete(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "dave", a.Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteMissing(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectQuery(`FROM accounts WHERE id`).WillReturnError(sql.ErrNoRows)

	_, err := p.Delete(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
}
