package accounts

import "errors"

var (
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrDuplicateUsername      = errors.New("username already in use")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInactiveAccount        = errors.New("inactive account")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
	ErrNotFound               = errors.New("account not found")
)
