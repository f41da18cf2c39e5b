package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordHashCost is the bcrypt work factor for account passwords.
	PasswordHashCost = 12

	minNameLength     = 2
	maxNameLength     = 100
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes
	maxPasswordBytes = 72

	msgInvalidRegistration = "Please check your details and try again"
)

// RegistrationInput is the raw registration form. Website is a honeypot that
// humans never fill in.
type RegistrationInput struct {
	Name     string
	Email    string
	Password string
	Website  string
}

// ValidatedCredential is registration input that passed every rule.
type ValidatedCredential struct {
	Name     string
	Email    string
	Password string
}

type CredentialManager interface {
	ValidateRegistration(input RegistrationInput) (*ValidatedCredential, error)
	ValidateEmail(email string) error
	ValidatePassword(password string) error
	HashPassword(plain string) (string, error)
	// VerifyPassword reports whether plain matches hash. A malformed hash is
	// an error, a mismatch is not.
	VerifyPassword(plain, hash string) (bool, error)
}

type credentialManager struct {
	validate *validator.Validate
	cost     int
}

func NewCredentialManager() CredentialManager {
	return &credentialManager{
		validate: validator.New(),
		cost:     PasswordHashCost,
	}
}

func (m *credentialManager) ValidateRegistration(input RegistrationInput) (*ValidatedCredential, error) {
	if strings.TrimSpace(input.Website) != "" {
		return nil, newValidationError("", msgInvalidRegistration)
	}

	name := strings.TrimSpace(input.Name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return nil, newValidationError("name", "Name is required")
	case n < minNameLength:
		return nil, newValidationError("name", fmt.Sprintf("Name must be at least %d characters", minNameLength))
	case n > maxNameLength:
		return nil, newValidationError("name", fmt.Sprintf("Name must be at most %d characters", maxNameLength))
	}

	email := strings.TrimSpace(input.Email)
	if err := m.ValidateEmail(email); err != nil {
		return nil, err
	}

	if err := m.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	return &ValidatedCredential{
		Name:     name,
		Email:    email,
		Password: input.Password,
	}, nil
}

func (m *credentialManager) ValidateEmail(email string) error {
	if email == "" {
		return newValidationError("email", "Email is required")
	}
	if err := m.validate.Var(email, "email,max=255"); err != nil {
		return newValidationError("email", "Please enter a valid email address")
	}
	return nil
}

func (m *credentialManager) ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return newValidationError("password", fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return newValidationError("password", fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	switch {
	case !hasUpper:
		return newValidationError("password", "Password must contain at least one uppercase letter")
	case !hasLower:
		return newValidationError("password", "Password must contain at least one lowercase letter")
	case !hasDigit:
		return newValidationError("password", "Password must contain at least one number")
	}
	return nil
}

func (m *credentialManager) HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), m.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (m *credentialManager) VerifyPassword(plain, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}
