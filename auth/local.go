package auth

import (
	"context"

	"github.com/whisperwall/whisperwall/store"
)

type (
	// LocalStrategy authenticates username/password pairs against the
	// credential store.
	LocalStrategy struct {
		users *store.S
	}
)

func NewLocalStrategy(users *store.S) *LocalStrategy {
	return &LocalStrategy{users: users}
}

// Authenticate yields the user on success and store.ErrInvalidCredentials
// otherwise, without revealing which of the two fields was wrong.
func (l *LocalStrategy) Authenticate(ctx context.Context, username, password string) (store.User, error) {
	return l.users.VerifyLocal(ctx, username, password)
}
