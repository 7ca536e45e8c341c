package store

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// PostgresStore persists accounts in PostgreSQL through lib/pq. The schema is
// owned by the migrations directory.
type PostgresStore struct {
	sqlStore
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	p := newPostgresStore(db)
	// rely on migrations to create tables; just verify connectivity
	if err := p.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func newPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{sqlStore: sqlStore{db: db, isUnique: isPostgresUnique, now: time.Now}}
}

func isPostgresUnique(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
