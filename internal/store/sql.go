package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/authapi/internal/models"
)

const accountColumns = `id, email, username, full_name, hashed_password, is_active, is_superuser, created_at, updated_at`

// sqlStore implements Store over any sqlx-supported driver. Queries are
// written with '?' placeholders and rebound for the driver.
type sqlStore struct {
	db       *sqlx.DB
	isUnique func(error) bool
	now      func() time.Time
}

func (s *sqlStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
}

func (s *sqlStore) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return s.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
}

func (s *sqlStore) FindByEmailOrUsername(ctx context.Context, identifier string) (*models.Account, error) {
	return s.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ? OR username = ? ORDER BY id LIMIT 1`, identifier, identifier)
}

func (s *sqlStore) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (s *sqlStore) List(ctx context.Context, skip, limit int) ([]*models.Account, error) {
	accounts := []*models.Account{}
	q := s.db.Rebind(`SELECT ` + accountColumns + ` FROM accounts ORDER BY id LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &accounts, q, limit, skip); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	for _, a := range accounts {
		normalize(a)
	}
	return accounts, nil
}

func (s *sqlStore) Create(ctx context.Context, in models.NewAccount) (*models.Account, error) {
	now := s.now().UTC()
	a := &models.Account{
		Email:        in.Email,
		Username:     in.Username,
		FullName:     in.FullName,
		PasswordHash: in.PasswordHash,
		IsActive:     in.IsActive,
		IsSuperuser:  in.IsSuperuser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	q := s.db.Rebind(`INSERT INTO accounts (email, username, full_name, hashed_password, is_active, is_superuser, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := s.db.QueryRowxContext(ctx, q,
		a.Email, a.Username, a.FullName, a.PasswordHash, a.IsActive, a.IsSuperuser, a.CreatedAt, a.UpdatedAt).Scan(&a.ID)
	if err != nil {
		return nil, s.wrap("create account", err)
	}
	return a, nil
}

func (s *sqlStore) Update(ctx context.Context, id int64, patch models.AccountPatch) (*models.Account, error) {
	var (
		sets []string
		args []interface{}
	)
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *patch.Username)
	}
	if patch.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, *patch.FullName)
	}
	if patch.PasswordHash != nil {
		sets = append(sets, "hashed_password = ?")
		args = append(args, *patch.PasswordHash)
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *patch.IsActive)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.now().UTC(), id)

	q := s.db.Rebind(`UPDATE accounts SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, s.wrap("update account", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	a, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *sqlStore) Delete(ctx context.Context, id int64) (*models.Account, error) {
	a, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM accounts WHERE id = ?`), id)
	if err != nil {
		return nil, s.wrap("delete account", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *sqlStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *sqlStore) Close() error                   { return s.db.Close() }

func (s *sqlStore) get(ctx context.Context, query string, args ...interface{}) (*models.Account, error) {
	var a models.Account
	if err := s.db.GetContext(ctx, &a, s.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	normalize(&a)
	return &a, nil
}

func (s *sqlStore) wrap(op string, err error) error {
	if s.isUnique != nil && s.isUnique(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalize(a *models.Account) {
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
}
