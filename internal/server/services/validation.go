package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/lemonauth/internal/common"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 30
	minPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return common.WithMessage(common.ErrValidationFailed, "username must be between 3 and 30 characters")
	}
	if strings.Contains(username, "@") {
		return common.WithMessage(common.ErrValidationFailed, "username must not contain @")
	}
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return common.WithMessage(common.ErrValidationFailed, "invalid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return common.WithMessage(common.ErrValidationFailed, "password must be at least 6 characters")
	}
	return nil
}

func validateRegistration(username, email, password string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	return validatePassword(password)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
