// Package store persists accounts. It provides an in-memory adapter for
// development and tests and SQL adapters for SQLite and PostgreSQL.
package store

import (
	"context"
	"errors"

	"github.com/example/authapi/internal/models"
)

var (
	ErrNotFound = errors.New("account not found")
	ErrConflict = errors.New("unique constraint violated")
)

// Store is the persistence capability set used by the account service.
// Find methods return (nil, nil) when nothing matches.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByEmailOrUsername(ctx context.Context, identifier string) (*models.Account, error)
	FindByID(ctx context.Context, id int64) (*models.Account, error)
	List(ctx context.Context, skip, limit int) ([]*models.Account, error)
	Create(ctx context.Context, in models.NewAccount) (*models.Account, error)
	Update(ctx context.Context, id int64, patch models.AccountPatch) (*models.Account, error)
	Delete(ctx context.Context, id int64) (*models.Account, error)

	Ping(ctx context.Context) error
	Close() error
}
