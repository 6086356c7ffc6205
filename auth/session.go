package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/whisperwall/whisperwall/internal/logutil"
)

const (
	// SessionCookie names the cookie carrying the opaque session token.
	SessionCookie = "whisperwall_session"

	tokenBytes = 32
)

type (
	// AuthContext is the identity resolved for one request. Handlers
	// receive it as a value instead of digging it out of the request.
	AuthContext struct {
		UserID string
	}

	// Sessions issues, resolves and destroys cookie-backed sessions.
	Sessions struct {
		tokens         TokenStore
		insecureCookie bool
	}
)

// NewSessions wires a token store into a session manager. Set
// allowHTTPCookie only for local development without TLS.
func NewSessions(tokens TokenStore, allowHTTPCookie bool) *Sessions {
	return &Sessions{
		tokens:         tokens,
		insecureCookie: allowHTTPCookie,
	}
}

// Create mints a fresh random token for userID and plants it in the
// response cookie.
func (s *Sessions) Create(ctx context.Context, w http.ResponseWriter, userID string) (string, error) {
	buf := make([]byte, tokenBytes)
	_, err := rand.Read(buf)
	if err != nil {
		return "", fmt.Errorf("unable to generate session token, cause %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	err = s.tokens.Save(ctx, token, userID)
	if err != nil {
		return "", fmt.Errorf("unable to persist session token, cause %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   !s.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// Resolve turns the request's session cookie into an identity. Anything
// short of a valid live token means anonymous, never an error.
func (s *Sessions) Resolve(ctx context.Context, r *http.Request) (AuthContext, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return AuthContext{}, false
	}
	userID, found, err := s.tokens.Lookup(ctx, cookie.Value)
	if err != nil {
		logger := logutil.GetOrDefault(ctx)
		logger.Error().Err(err).Msg("Unexpected error while resolving session token")
		return AuthContext{}, false
	}
	if !found {
		return AuthContext{}, false
	}
	return AuthContext{UserID: userID}, true
}

// Destroy drops the session behind the request's cookie, if any, and
// expires the cookie. Safe to call for anonymous requests.
func (s *Sessions) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		err = s.tokens.Delete(ctx, cookie.Value)
		if err != nil {
			logger := logutil.GetOrDefault(ctx)
			logger.Error().Err(err).Msg("Unexpected error while deleting session token")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !s.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
