package store

import (
	"errors"
	"fmt"
)

type (
	UserNotFound struct {
		ID string
	}
)

var (
	// ErrDuplicateUsername indicates the username is already taken by a
	// local account.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrInvalidCredentials is returned for a bad password and for an
	// unknown username alike, callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func (u UserNotFound) Error() string {
	return fmt.Sprintf("user %v not found", u.ID)
}
