package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/authapi/internal/models"
)

var (
	ErrUnauthenticated = errors.New("could not validate credentials")
	ErrForbidden       = errors.New("insufficient privileges")
	ErrInactive        = fmt.Errorf("%w: inactive account", ErrForbidden)
)

// AccountFinder is the lookup capability the Gate needs from persistence.
type AccountFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Account, error)
}

// Requirement is a privilege predicate evaluated against a resolved, active
// account. It returns ErrForbidden (or an error wrapping it) to reject.
type Requirement func(*models.Account) error

// Authenticated accepts any active account.
func Authenticated(*models.Account) error { return nil }

// Superuser accepts only accounts flagged as superuser.
func Superuser(a *models.Account) error {
	if !a.IsSuperuser {
		return ErrForbidden
	}
	return nil
}

// Gate resolves bearer tokens to accounts and enforces privilege requirements.
// It holds no per-request state.
type Gate struct {
	codec    *TokenCodec
	accounts AccountFinder
}

func NewGate(codec *TokenCodec, accounts AccountFinder) *Gate {
	return &Gate{codec: codec, accounts: accounts}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrUnauthenticated
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrUnauthenticated
	}
	return parts[1], nil
}

// Authenticate runs the gate state machine for an Authorization header value.
// Missing, malformed, invalid and expired credentials, and subjects that no
// longer resolve, all yield ErrUnauthenticated. An inactive account yields
// ErrInactive. A failing requirement yields its error. Lookup failures are
// returned wrapped and unclassified.
func (g *Gate) Authenticate(ctx context.Context, header string, req Requirement) (*models.Account, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	claims, ok := g.codec.Decode(token)
	if !ok {
		return nil, ErrUnauthenticated
	}
	account, err := g.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}
	if account == nil {
		return nil, ErrUnauthenticated
	}
	if !account.IsActive {
		return nil, ErrInactive
	}
	if req != nil {
		if err := req(account); err != nil {
			return nil, err
		}
	}
	return account, nil
}

// Identify is the optional-identity variant: every rejection, including
// lookup failures, collapses to nil.
func (g *Gate) Identify(ctx context.Context, header string) *models.Account {
	account, err := g.Authenticate(ctx, header, Authenticated)
	if err != nil {
		return nil
	}
	return account
}
