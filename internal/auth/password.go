package auth

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var ErrWeakPassword = errors.New("password must be at least 8 characters and contain a letter and a digit")

// HashPassword hashes a plaintext password using bcrypt with DefaultCost.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword compares a bcrypt hash with a candidate plaintext password.
func CheckPassword(hash, pw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
}

// ValidatePassword enforces the minimum strength policy applied on
// registration, password change and reset.
func ValidatePassword(pw string) error {
	var letter, digit bool
	n := 0
	for _, r := range pw {
		n++
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if n < 8 || !letter || !digit {
		return ErrWeakPassword
	}
	return nil
}
