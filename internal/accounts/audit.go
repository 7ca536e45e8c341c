package accounts

import (
	"context"
	"log/slog"

	"github.com/example/authapi/internal/auth"
)

// Auditor records session events that touch no storage. Tokens are stateless,
// so logout cannot invalidate anything server side; the client discards it.
type Auditor struct {
	log *slog.Logger
}

func NewAuditor(log *slog.Logger) *Auditor {
	return &Auditor{log: log}
}

func (a *Auditor) Logout(ctx context.Context, caller auth.Identity) {
	a.log.InfoContext(ctx, "logout", "account_id", caller.Subject, "username", caller.Username)
}
