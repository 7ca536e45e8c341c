package auth

import (
	"context"

	"github.com/example/authapi/internal/models"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	accountKey  contextKey = "account"
)

// Identity is the caller identity attached to a request context for
// downstream consumers such as audit logging.
type Identity struct {
	Subject  int64
	Username string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithAccount attaches the resolved caller account to ctx.
func WithAccount(ctx context.Context, a *models.Account) context.Context {
	return context.WithValue(ctx, accountKey, a)
}

// AccountFromContext returns the account attached by WithAccount, or nil.
func AccountFromContext(ctx context.Context) *models.Account {
	a, _ := ctx.Value(accountKey).(*models.Account)
	return a
}
