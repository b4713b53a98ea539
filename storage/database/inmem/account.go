package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/account"
)

type accountRepository struct {
	conn
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{conn: conn{db: db}}
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, excl := range excludedIDs {
		if id == excl {
			return true
		}
	}
	return false
}

func checkUniqueness(t *tables, username, email string, excludedIDs ...string) error {
	for _, acc := range t.accounts {
		if isExcluded(acc.ID, excludedIDs) {
			continue
		}
		if acc.Username == username {
			return account.ErrUsernameExists
		}
		if email != "" && acc.Email.Valid && acc.Email.String == email {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *accountRepository) CheckUniqueness(_ context.Context, username, email string, excludedIDs ...string) error {
	t, unlock := repo.read()
	defer unlock()
	return checkUniqueness(t, username, email, excludedIDs...)
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	err := repo.apply(func(t *tables) error {
		if acc.ID == "" {
			acc.ID = uuid.NewString()
		}
		if _, ok := t.accounts[acc.ID]; ok {
			return account.ErrUsernameExists
		}
		if err := checkUniqueness(t, acc.Username, acc.Email.String); err != nil {
			return err
		}
		t.accounts[acc.ID] = acc
		return nil
	})
	if err != nil {
		return account.Account{}, err
	}
	return acc, nil
}

func (repo *accountRepository) UpdateAccount(_ context.Context, upd account.Update) (account.Account, error) {
	var acc account.Account
	err := repo.apply(func(t *tables) error {
		var ok bool
		if acc, ok = t.accounts[upd.ID]; !ok {
			return account.ErrNotFound
		}
		if err := checkUniqueness(t, upd.Username, upd.Email.String, upd.ID); err != nil {
			return err
		}
		acc.Username = upd.Username
		acc.Email = upd.Email
		if upd.PasswordHash != nil {
			acc.PasswordHash = upd.PasswordHash
		}
		acc.UpdatedAt = upd.UpdatedAt
		t.accounts[acc.ID] = acc
		return nil
	})
	if err != nil {
		return account.Account{}, err
	}
	return acc, nil
}

func (repo *accountRepository) SetLastLogin(_ context.Context, id string, tstamp time.Time) error {
	return repo.apply(func(t *tables) error {
		acc, ok := t.accounts[id]
		if !ok {
			return account.ErrNotFound
		}
		acc.LastLogin.SetValid(tstamp)
		t.accounts[id] = acc
		return nil
	})
}

func (repo *accountRepository) GetAccount(_ context.Context, filter account.GetFilter) (account.Account, error) {
	t, unlock := repo.read()
	defer unlock()

	if filter.ID != "" {
		if acc, ok := t.accounts[filter.ID]; ok {
			return acc, nil
		}
		return account.Account{}, account.ErrNotFound
	}
	for _, acc := range t.accounts {
		email := acc.Email.Valid && acc.Email.String != ""
		switch {
		case filter.Username != "":
			if acc.Username == filter.Username {
				return acc, nil
			}
		case filter.Email != "":
			if email && acc.Email.String == filter.Email {
				return acc, nil
			}
		case filter.UsernameOrEmail != "":
			if acc.Username == filter.UsernameOrEmail || (email && acc.Email.String == filter.UsernameOrEmail) {
				return acc, nil
			}
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) DeleteAccount(_ context.Context, id string) error {
	return repo.apply(func(t *tables) error {
		if _, ok := t.accounts[id]; !ok {
			return account.ErrNotFound
		}
		if _, ok := t.teachers[id]; ok {
			return account.ErrAccountInUse
		}
		if _, ok := t.students[id]; ok {
			return account.ErrAccountInUse
		}
		if _, ok := t.parents[id]; ok {
			return account.ErrAccountInUse
		}
		delete(t.accounts, id)
		return nil
	})
}
