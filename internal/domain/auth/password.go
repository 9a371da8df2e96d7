package auth

import (
	"net/mail"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// PasswordIssues lists every policy rule the password breaks. Symbols are allowed but not required.
func PasswordIssues(password string) []string {
	var issues []string
	if len(password) < MinPasswordLength {
		issues = append(issues, "password must be at least 6 characters")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		issues = append(issues, "password must contain an uppercase letter")
	}
	if !lower {
		issues = append(issues, "password must contain a lowercase letter")
	}
	if !digit {
		issues = append(issues, "password must contain a digit")
	}
	return issues
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
