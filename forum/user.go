package forum

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 14

// HashPassword derives the stored credential for a local account.
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// VerifyPassword reports whether input matches the stored hash. A mismatch is
// not an error; anything else is.
func VerifyPassword(hash []byte, input string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, []byte(input))
	if err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}
	return true, nil
}

// NewUser builds a local-credential user. The caller is expected to have
// produced hash with HashPassword.
func NewUser(username, email string, hash []byte) *User {
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
}

// NewGoogleUser builds a user carrying only the provider's subject id. The
// username is derived from the subject so the unique constraint holds without
// asking the user to pick one.
func NewGoogleUser(subject string) *User {
	return &User{
		ID:        uuid.New().String(),
		Username:  "g-" + subject,
		GoogleID:  &subject,
		CreatedAt: time.Now().UTC(),
	}
}
