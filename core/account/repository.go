package account

import (
	"context"
	"errors"
	"time"
)

var (
	// errors
	ErrNotFound             = errors.New("account not found")
	ErrUsernameExists       = errors.New("an account with this username already exists")
	ErrEmailExists          = errors.New("an account with this email already exists")
	ErrAccountInUse         = errors.New("account is still referenced by a profile")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotVerified          = errors.New("account not verified")
)

type Repository interface {
	// CheckUniqueness returns ErrUsernameExists or ErrEmailExists if another Account uses username or email.
	CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error
	// CreateAccount generates the Account ID when it is empty.
	CreateAccount(ctx context.Context, acc Account) (Account, error)
	UpdateAccount(ctx context.Context, upd Update) (Account, error)
	SetLastLogin(ctx context.Context, id string, t time.Time) error
	GetAccount(ctx context.Context, filter GetFilter) (Account, error)
	// DeleteAccount returns ErrAccountInUse while a Profile still references the Account.
	DeleteAccount(ctx context.Context, id string) error
}
