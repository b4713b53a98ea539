package account

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// NewAdmin contains information needed to bootstrap an ADMIN Account (no Profile).
type NewAdmin struct {
	Username string `json:"username" validate:"required,min=3,alphanum_"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (na *NewAdmin) Clean() {
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CheckUniqueness reports username/email collisions as field level validation errors.
func (svc *Service) CheckUniqueness(ctx context.Context, uname, email string, excludedIDs ...string) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, excludedIDs...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking account uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, login string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{UsernameOrEmail: core.CleanString(login, true /* lower */)})
}

// Authenticate checks the credentials of an Account and records the login time.
func (svc *Service) Authenticate(ctx context.Context, login, pwd string) (Account, error) {
	acc, err := svc.GetByUsernameOrEmail(ctx, login)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, ErrAuthenticationFailed
		}
		return Account{}, errors.Wrap(err, "finding account by username or email")
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, ErrAuthenticationFailed
	}
	if !acc.IsVerified() {
		return Account{}, ErrNotVerified
	}

	now := time.Now().UTC()
	if err = svc.repo.SetLastLogin(ctx, acc.ID, now); err != nil {
		return Account{}, errors.Wrap(err, "setting last login")
	}
	acc.LastLogin.SetValid(now)
	return acc, nil
}

// CreateAdmin updates or creates a verified ADMIN Account.
func (svc *Service) CreateAdmin(ctx context.Context, na NewAdmin) (Account, error) {
	na.Clean()
	hash, err := HashPassword(na.Password, PasswordCost)
	if err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}

	now := time.Now().UTC()
	acc, err := svc.repo.GetAccount(ctx, GetFilter{Username: na.Username})
	switch {
	case err == nil:
		if acc.Role != RoleAdmin {
			return Account{}, errors.Errorf("%q is a %s account", acc.Username, acc.Role)
		}
		return svc.repo.UpdateAccount(ctx, Update{
			ID:           acc.ID,
			Username:     na.Username,
			Email:        core.NullString(na.Email),
			PasswordHash: hash,
			UpdatedAt:    now,
		})
	case errors.Cause(err) == ErrNotFound:
		acc = Account{
			Username:     na.Username,
			Email:        core.NullString(na.Email),
			PasswordHash: hash,
			Role:         RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		acc.VerifiedAt.SetValid(now)
		return svc.repo.CreateAccount(ctx, acc)
	default:
		return Account{}, errors.Wrap(err, "finding account by username")
	}
}

// ResetPassword replaces the credential of the Account identified by login (username or email).
func (svc *Service) ResetPassword(ctx context.Context, login, pwd string) error {
	acc, err := svc.GetByUsernameOrEmail(ctx, login)
	if err != nil {
		return err
	}
	hash, err := HashPassword(pwd, PasswordCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateAccount(ctx, Update{
		ID:           acc.ID,
		Username:     acc.Username,
		Email:        acc.Email,
		PasswordHash: hash,
		UpdatedAt:    time.Now().UTC(),
	})
	return errors.Wrap(err, "updating account")
}
