// Package ratelimit caps requests per client address inside a time window.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cespare/xxhash/v2"
	"github.com/whisperwall/whisperwall/internal/logutil"
)

type (
	// Limiter counts hits per client key in a bigcache whose life window
	// doubles as the rate window. Counters are refreshed on every hit, so a
	// client only leaves the limited state after staying quiet for a full
	// window.
	Limiter struct {
		cache   *bigcache.BigCache
		max     int
		message string
	}
)

// New builds a limiter allowing max requests per client per window.
// message is sent with the 429 response on breach.
func New(window time.Duration, max int, message string) (*Limiter, error) {
	cfg := bigcache.DefaultConfig(window)
	cfg.CleanWindow = window
	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to setup rate-limit cache, cause %w", err)
	}
	return &Limiter{cache: cache, max: max, message: message}, nil
}

// Wrap gates next behind the limiter.
func (l *Limiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		count := l.bump(r.Context(), key)
		if count > l.max {
			http.Error(w, l.message, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) bump(ctx context.Context, key string) int {
	count := 1
	buf, err := l.cache.Get(key)
	if err == nil {
		prev, _ := strconv.Atoi(string(buf))
		count = prev + 1
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		logger := logutil.GetOrDefault(ctx)
		logger.Error().Err(err).Msg("Unexpected error reading rate-limit counter")
	}
	err = l.cache.Set(key, []byte(strconv.Itoa(count)))
	if err != nil {
		logger := logutil.GetOrDefault(ctx)
		logger.Error().Err(err).Msg("Unexpected error storing rate-limit counter")
	}
	return count
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return strconv.FormatUint(xxhash.Sum64String(host), 16)
}
