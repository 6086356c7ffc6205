package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

type (
	// TokenStore keeps the server-side token -> user id mapping.
	TokenStore interface {
		Save(ctx context.Context, token string, userID string) error
		Lookup(ctx context.Context, token string) (string, bool, error)
		Delete(ctx context.Context, token string) error
	}

	memStore struct {
		cache *bigcache.BigCache
	}
)

// InMemoryTokenStore builds a token store whose entries vanish after ttl.
// Tokens are also lost on restart, clients just log in again.
func InMemoryTokenStore(ttl time.Duration) (TokenStore, error) {
	cache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(ttl))
	if err != nil {
		return nil, fmt.Errorf("unable to setup token cache, cause %w", err)
	}
	return &memStore{cache: cache}, nil
}

func (m *memStore) Save(ctx context.Context, token string, userID string) error {
	return m.cache.Set(token, []byte(userID))
}

func (m *memStore) Lookup(ctx context.Context, token string) (string, bool, error) {
	buf, err := m.cache.Get(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return string(buf), true, nil
}

func (m *memStore) Delete(ctx context.Context, token string) error {
	err := m.cache.Delete(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}
