package services

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// bcryptCost is lowered by tests.
var bcryptCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches the bcrypt hash. The
// comparison always runs, so timing does not reveal whether an account exists.
func VerifyPassword(hash, password string) bool {
	if hash == "" {
		hash = dummyHash()
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

var (
	dummyOnce sync.Once
	dummy     string
)

func dummyHash() string {
	dummyOnce.Do(func() {
		hashed, err := bcrypt.GenerateFromPassword([]byte("hrdesk-unused-password"), bcryptCost)
		if err == nil {
			dummy = string(hashed)
		}
	})
	return dummy
}

func validateNewPassword(v *ValidationError, password, confirm string) {
	if len(password) < minPasswordLength {
		v.Add("password", "Password must be at least 6 characters")
		return
	}
	if password != confirm {
		v.Add("confirm_password", "Passwords do not match")
	}
}
