// Package accounts implements registration, login, profile self-service,
// password change and administrative account management.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/authapi/internal/auth"
	"github.com/example/authapi/internal/models"
	"github.com/example/authapi/internal/store"
)

const TokenType = "bearer"

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer mints access tokens for an account.
type TokenIssuer interface {
	Issue(subject int64, username string) (string, auth.Claims, error)
	TTL() time.Duration
}

// Registration is a candidate account. Password is plaintext and is hashed
// before it reaches the store.
type Registration struct {
	Email    string
	Username string
	FullName *string
	Password string
}

// ProfileUpdate is a caller's change to their own record. Nil fields are kept.
type ProfileUpdate struct {
	Email    *string
	Username *string
	FullName *string
	IsActive *bool
}

// Service orchestrates account operations over a store, a hasher and a token
// issuer. It keeps no per-request state.
type Service struct {
	store     store.Store
	hasher    Hasher
	tokens    TokenIssuer
	log       *slog.Logger
	dummyHash string
}

func NewService(s store.Store, h Hasher, t TokenIssuer, log *slog.Logger) *Service {
	// verified against when the login identifier is unknown, so both paths pay for a hash compare
	dummy, _ := h.Hash("not-a-real-password-0")
	return &Service{store: s, hasher: h, tokens: t, log: log, dummyHash: dummy}
}

// Register creates an active, non-superuser account. Email and username are
// both checked before anything is written; when both are taken the returned
// error matches ErrDuplicateEmail and ErrDuplicateUsername.
func (s *Service) Register(ctx context.Context, r Registration) (models.PublicAccount, error) {
	if err := s.checkUnique(ctx, 0, &r.Email, &r.Username); err != nil {
		return models.PublicAccount{}, err
	}
	hash, err := s.hasher.Hash(r.Password)
	if err != nil {
		return models.PublicAccount{}, fmt.Errorf("hash password: %w", err)
	}
	a, err := s.store.Create(ctx, models.NewAccount{
		Email:        r.Email,
		Username:     r.Username,
		FullName:     r.FullName,
		PasswordHash: hash,
		IsActive:     true,
		IsSuperuser:  false,
	})
	if err != nil {
		return models.PublicAccount{}, err
	}
	s.log.InfoContext(ctx, "account registered", "account_id", a.ID, "username", a.Username)
	return a.Public(), nil
}

// Login resolves identifier as an email or username and issues a token.
// Unknown identifiers and wrong passwords are indistinguishable.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.Token, error) {
	a, err := s.store.FindByEmailOrUsername(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if a == nil {
		s.hasher.Verify(password, s.dummyHash)
		s.log.InfoContext(ctx, "login failed", "reason", "unknown identifier")
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, a.PasswordHash) {
		s.log.InfoContext(ctx, "login failed", "reason", "bad password", "account_id", a.ID)
		return nil, ErrInvalidCredentials
	}
	if !a.IsActive {
		return nil, ErrInactiveAccount
	}
	token, _, err := s.tokens.Issue(a.ID, a.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.log.InfoContext(ctx, "login succeeded", "account_id", a.ID, "username", a.Username)
	return &models.Token{
		AccessToken: token,
		TokenType:   TokenType,
		ExpiresIn:   int64(s.tokens.TTL() / time.Second),
	}, nil
}

func (s *Service) GetSelf(caller *models.Account) models.PublicAccount {
	return caller.Public()
}

// UpdateSelf applies a profile change to the caller. New email and username
// values are checked against all other accounts.
func (s *Service) UpdateSelf(ctx context.Context, caller *models.Account, u ProfileUpdate) (models.PublicAccount, error) {
	var email, username *string
	if u.Email != nil && *u.Email != caller.Email {
		email = u.Email
	}
	if u.Username != nil && *u.Username != caller.Username {
		username = u.Username
	}
	if err := s.checkUnique(ctx, caller.ID, email, username); err != nil {
		return models.PublicAccount{}, err
	}
	a, err := s.update(ctx, caller.ID, models.AccountPatch{
		Email:    email,
		Username: username,
		FullName: u.FullName,
		IsActive: u.IsActive,
	})
	if err != nil {
		return models.PublicAccount{}, err
	}
	s.audit(ctx).InfoContext(ctx, "account updated", "account_id", a.ID)
	return a.Public(), nil
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, caller *models.Account, current, next string) error {
	if !s.hasher.Verify(current, caller.PasswordHash) {
		return ErrInvalidCurrentPassword
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.update(ctx, caller.ID, models.AccountPatch{PasswordHash: &hash}); err != nil {
		return err
	}
	s.audit(ctx).InfoContext(ctx, "password changed", "account_id", caller.ID)
	return nil
}

func (s *Service) List(ctx context.Context, skip, limit int) ([]models.PublicAccount, error) {
	all, err := s.store.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	return models.PublicAccounts(all), nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.PublicAccount, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return models.PublicAccount{}, err
	}
	if a == nil {
		return models.PublicAccount{}, ErrNotFound
	}
	return a.Public(), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return ErrNotFound
	}
	if _, err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.audit(ctx).InfoContext(ctx, "account deleted", "account_id", id)
	return nil
}

// SetActive activates or deactivates an account on behalf of an administrator.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (models.PublicAccount, error) {
	a, err := s.update(ctx, id, models.AccountPatch{IsActive: &active})
	if err != nil {
		return models.PublicAccount{}, err
	}
	s.audit(ctx).InfoContext(ctx, "account activation changed", "account_id", id, "active", active)
	return a.Public(), nil
}

// audit returns the logger annotated with the caller identity carried by ctx.
func (s *Service) audit(ctx context.Context) *slog.Logger {
	if id, ok := auth.IdentityFromContext(ctx); ok {
		return s.log.With("actor_id", id.Subject, "actor", id.Username)
	}
	return s.log
}

func (s *Service) update(ctx context.Context, id int64, patch models.AccountPatch) (*models.Account, error) {
	a, err := s.store.Update(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return a, err
}

// checkUnique looks up both values before reporting, so a caller learns about
// every conflicting field at once. self excludes the caller's own record.
func (s *Service) checkUnique(ctx context.Context, self int64, email, username *string) error {
	var errs []error
	if email != nil {
		a, err := s.store.FindByEmail(ctx, *email)
		if err != nil {
			return err
		}
		if a != nil && a.ID != self {
			errs = append(errs, ErrDuplicateEmail)
		}
	}
	if username != nil {
		a, err := s.store.FindByUsername(ctx, *username)
		if err != nil {
			return err
		}
		if a != nil && a.ID != self {
			errs = append(errs, ErrDuplicateUsername)
		}
	}
	return errors.Join(errs...)
}
