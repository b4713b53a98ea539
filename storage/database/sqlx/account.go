package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/account"
)

type accountRepository struct {
	exec executor
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *sqlx.DB) account.Repository {
	return &accountRepository{exec: db}
}

// accountErr maps constraint violations to account errors.
func accountErr(err error, msg string) error {
	if pqErr, ok := pqError(err); ok {
		switch pqErr.Code {
		case uniqueViolation:
			if pqErr.Constraint == "accounts_email_key" {
				return account.ErrEmailExists
			}
			return account.ErrUsernameExists
		case foreignKeyViolation:
			return account.ErrAccountInUse
		}
	}
	return errors.Wrap(err, msg)
}

func (repo *accountRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	if excludedIDs == nil {
		excludedIDs = []string{}
	}
	var matches []struct {
		Username string  `db:"username"`
		Email    *string `db:"email"`
	}
	q := `SELECT username, email FROM accounts
		WHERE (username = $1 OR ($2 <> '' AND email = $2)) AND NOT (id::text = ANY($3))`
	if err := repo.exec.SelectContext(ctx, &matches, q, username, email, pq.Array(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking account uniqueness")
	}
	for _, m := range matches {
		if m.Username == username {
			return account.ErrUsernameExists
		}
	}
	if len(matches) > 0 {
		return account.ErrEmailExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	if acc.PasswordHash == nil {
		acc.PasswordHash = []byte{}
	}
	q := `INSERT INTO accounts (id, username, email, password_hash, role, verified_at, created_at, updated_at, last_login)
		VALUES (:id, :username, :email, :password_hash, :role, :verified_at, :created_at, :updated_at, :last_login)`
	if _, err := repo.exec.NamedExecContext(ctx, q, acc); err != nil {
		return account.Account{}, accountErr(err, "inserting account")
	}
	return acc, nil
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, upd account.Update) (account.Account, error) {
	if !isValidUUID(upd.ID) {
		return account.Account{}, account.ErrNotFound
	}
	var hash interface{} // NULL keeps the stored hash
	if upd.PasswordHash != nil {
		hash = upd.PasswordHash
	}
	var acc account.Account
	q := `UPDATE accounts
		SET username = $2, email = $3, password_hash = COALESCE($4, password_hash), updated_at = $5
		WHERE id = $1 RETURNING *`
	if err := repo.exec.GetContext(ctx, &acc, q, upd.ID, upd.Username, upd.Email, hash, upd.UpdatedAt.UTC()); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, accountErr(err, "updating account")
	}
	return acc, nil
}

func (repo *accountRepository) SetLastLogin(ctx context.Context, id string, t time.Time) error {
	if !isValidUUID(id) {
		return account.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `UPDATE accounts SET last_login = $2 WHERE id = $1`, id, t.UTC())
	if err != nil {
		return errors.Wrap(err, "setting last login")
	}
	return checkAffected(res, account.ErrNotFound)
}

func (repo *accountRepository) GetAccount(ctx context.Context, filter account.GetFilter) (account.Account, error) {
	var (
		cond string
		arg  interface{}
	)
	switch {
	case filter.ID != "":
		if !isValidUUID(filter.ID) {
			return account.Account{}, account.ErrNotFound
		}
		cond, arg = "id = $1", filter.ID
	case filter.Username != "":
		cond, arg = "username = $1", filter.Username
	case filter.Email != "":
		cond, arg = "email = $1", filter.Email
	case filter.UsernameOrEmail != "":
		cond, arg = "username = $1 OR email = $1", filter.UsernameOrEmail
	default:
		return account.Account{}, account.ErrNotFound
	}

	var acc account.Account
	if err := repo.exec.GetContext(ctx, &acc, "SELECT * FROM accounts WHERE "+cond+" LIMIT 1", arg); err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "finding account")
	}
	return acc, nil
}

func (repo *accountRepository) DeleteAccount(ctx context.Context, id string) error {
	if !isValidUUID(id) {
		return account.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return accountErr(err, "deleting account")
	}
	return checkAffected(res, account.ErrNotFound)
}
