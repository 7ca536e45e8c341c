package models

import "time"

// Account represents a user account in the system
type Account struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	Username     string    `db:"username"`
	FullName     *string   `db:"full_name"`
	PasswordHash string    `db:"hashed_password"`
	IsActive     bool      `db:"is_active"`
	IsSuperuser  bool      `db:"is_superuser"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// NewAccount holds the fields needed to persist a new account.
// PasswordHash must already be hashed.
type NewAccount struct {
	Email        string
	Username     string
	FullName     *string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
}

// AccountPatch describes a partial update. Nil fields are left untouched.
type AccountPatch struct {
	Email        *string
	Username     *string
	FullName     *string
	PasswordHash *string
	IsActive     *bool
}

// Empty reports whether the patch changes nothing.
func (p AccountPatch) Empty() bool {
	return p.Email == nil && p.Username == nil && p.FullName == nil && p.PasswordHash == nil && p.IsActive == nil
}

// PublicAccount is the outward projection of an Account. It never carries the hash.
type PublicAccount struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FullName    *string   `json:"full_name"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:          a.ID,
		Email:       a.Email,
		Username:    a.Username,
		FullName:    a.FullName,
		IsActive:    a.IsActive,
		IsSuperuser: a.IsSuperuser,
		CreatedAt:   a.CreatedAt,
	}
}

// PublicAccounts projects a slice of accounts.
func PublicAccounts(accounts []*Account) []PublicAccount {
	out := make([]PublicAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Public())
	}
	return out
}

// Token is the login response body
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
