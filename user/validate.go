package user

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Registration bounds.
const (
	MinPasswordLength    = 20
	MaxPasswordLength    = 50
	MaxDisplayNameLength = 64
)

// ErrInvalid wraps every registration validation failure.
var ErrInvalid = errors.New("invalid user input")

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,20}$`)

// ValidateUsername checks the 4..20 character [A-Za-z0-9_-] policy.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username must be 4-20 characters of letters, digits, '_' or '-'", ErrInvalid)
	}
	return nil
}

// ValidatePassword checks the length policy in characters, not bytes.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalid, MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

// NormalizeEmail validates an optional email. Empty input is allowed and stays empty.
// Display-name forms like "Ann <ann@example.com>" are rejected.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", fmt.Errorf("%w: email is not a valid address", ErrInvalid)
	}
	return addr.Address, nil
}

// NormalizeDisplayName trims the name and bounds its length.
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", fmt.Errorf("%w: display name exceeds %d characters", ErrInvalid, MaxDisplayNameLength)
	}
	return name, nil
}
