package identity

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares plaintext password with stored hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// PasswordPolicy is the minimum strength a local password must meet.
// MinDistinctClasses counts character classes among lower, upper, digit,
// and other.
type PasswordPolicy struct {
	MinLength          int
	MinDistinctClasses int
}

// DefaultPasswordPolicy requires ten characters drawn from at least three
// character classes.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 10, MinDistinctClasses: 3}
}

// Validate checks the password against the policy. The returned error wraps
// ErrValidation and lists every unmet rule.
func (p PasswordPolicy) Validate(password string) error {
	var reasons []string
	if len([]rune(password)) < p.MinLength {
		reasons = append(reasons, fmt.Sprintf("must be at least %d characters", p.MinLength))
	}
	if classes := countCharClasses(password); classes < p.MinDistinctClasses {
		reasons = append(reasons, fmt.Sprintf("must use at least %d character classes (lower, upper, digit, symbol)", p.MinDistinctClasses))
	}
	if len(reasons) > 0 {
		return fmt.Errorf("%w: password %s", ErrValidation, strings.Join(reasons, "; "))
	}
	return nil
}

func countCharClasses(password string) int {
	var lower, upper, digit, other bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}
	classes := 0
	for _, present := range []bool{lower, upper, digit, other} {
		if present {
			classes++
		}
	}
	return classes
}
