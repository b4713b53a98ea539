package account

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt work factor used for every stored credential.
const PasswordCost = 10

// HashPassword returns the one-way hash of pwd.
func HashPassword(pwd string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), cost)
}

// CheckPassword reports whether pwd matches hash. It returns nil on success.
func CheckPassword(hash []byte, pwd string) error {
	if len(hash) == 0 {
		return ErrAuthenticationFailed
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(pwd))
}
