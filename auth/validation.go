package auth

import (
	"strings"

	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
)

// Validator checks login input before anything is sent to the backend.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCredentials validates login credentials
func (v *Validator) ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidCredentials, "email is required")
	}

	// Basic email format validation
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return apperrors.Wrapf(apperrors.ErrInvalidCredentials, "invalid email format")
	}

	if password == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidCredentials, "password is required")
	}

	return nil
}
