package forum

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password; handlers must not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUsernameTaken is returned by signup when the username is already
	// registered.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("not found")
)
