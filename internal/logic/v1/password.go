package v1

import "fmt"

// PasswordValidator is the pluggable password-strength capability. The
// account flows run every candidate password through it before hashing.
type PasswordValidator interface {
	ValidatePassword(password string) error
}

// MinLengthValidator rejects passwords shorter than Min runes.
type MinLengthValidator struct {
	Min int
}

// ValidatePassword implements PasswordValidator.
func (v MinLengthValidator) ValidatePassword(password string) error {
	if len([]rune(password)) < v.Min {
		return fmt.Errorf("password must be at least %d characters: %w", v.Min, ErrWeakPassword)
	}
	return nil
}
