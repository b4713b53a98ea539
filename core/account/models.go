package account

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Role is the authorization role of an Account.
type Role string

// Roles
const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
	RoleParent  Role = "PARENT"
)

var AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Account is an authentication identity. Profiles share its ID as their own primary key.
type Account struct {
	ID           string      `json:"id" db:"id"`
	Username     string      `json:"username" db:"username"`
	Email        null.String `json:"email" db:"email"`
	PasswordHash []byte      `json:"-" db:"password_hash"`
	Role         Role        `json:"role" db:"role"`
	VerifiedAt   null.Time   `json:"verifiedAt" db:"verified_at"` // UTC
	CreatedAt    time.Time   `json:"createdAt" db:"created_at"`   // UTC
	UpdatedAt    time.Time   `json:"updatedAt" db:"updated_at"`   // UTC
	LastLogin    null.Time   `json:"lastLogin" db:"last_login"`   // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := HashPassword(pwd, PasswordCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a Account) CheckPassword(pwd string) error {
	return CheckPassword(a.PasswordHash, pwd)
}

func (a Account) IsVerified() bool {
	return a.VerifiedAt.Valid
}

func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Update defines what may change on an existing Account.
// A nil PasswordHash leaves the stored credential untouched.
type Update struct {
	ID           string
	Username     string
	Email        null.String
	PasswordHash []byte
	UpdatedAt    time.Time
}

// GetFilter selects a single Account. The first non-empty field wins.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}
