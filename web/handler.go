// Package web exposes the HTTP surface of whisperwall: the public pages,
// the authenticated submit flow and the Google OAuth round trip.
package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/whisperwall/whisperwall/auth"
	"github.com/whisperwall/whisperwall/internal/logutil"
	"github.com/whisperwall/whisperwall/internal/ratelimit"
	"github.com/whisperwall/whisperwall/store"
)

const (
	stateCookie = "whisperwall_oauth_state"
)

type (
	// Handler carries every collaborator the routes need. It is built
	// once and passed around explicitly, there are no package-level
	// singletons to register strategies on.
	Handler struct {
		users    *store.S
		sessions *auth.Sessions
		local    *auth.LocalStrategy
		google   *auth.GoogleStrategy

		insecureCookie bool
	}

	// Options tunes the optional middleware layered on the canonical
	// routes. Nil limiters disable limiting, which tests rely on.
	Options struct {
		// GeneralLimiter caps the landing and login pages.
		GeneralLimiter *ratelimit.Limiter
		// RegisterLimiter caps account creation.
		RegisterLimiter *ratelimit.Limiter
		// Google enables the OAuth routes when non-nil.
		Google *auth.GoogleStrategy
		// AllowHTTPCookie drops the Secure attribute from the oauth state
		// cookie, for local development without TLS.
		AllowHTTPCookie bool
	}
)

// NewHandler wires the route table.
func NewHandler(users *store.S, sessions *auth.Sessions, opts Options) (http.Handler, error) {
	h := &Handler{
		users:          users,
		sessions:       sessions,
		local:          auth.NewLocalStrategy(users),
		google:         opts.Google,
		insecureCookie: opts.AllowHTTPCookie,
	}
	assets, err := loadStaticAssets()
	if err != nil {
		return nil, err
	}

	limited := func(l *ratelimit.Limiter, fn http.HandlerFunc) http.Handler {
		if l == nil {
			return fn
		}
		return l.Wrap(fn)
	}

	router := httprouter.New()
	router.Handler("GET", "/", limited(opts.GeneralLimiter, h.getHome))
	router.Handler("GET", "/login", limited(opts.GeneralLimiter, h.getLogin))
	router.Handler("GET", "/register", limited(opts.RegisterLimiter, h.getRegister))
	router.HandlerFunc("GET", "/terms", h.getTerms)
	router.HandlerFunc("GET", "/secrets", h.getSecrets)
	router.HandlerFunc("GET", "/submit", h.getSubmit)
	router.HandlerFunc("POST", "/submit", h.postSubmit)
	router.Handler("POST", "/register", limited(opts.RegisterLimiter, h.postRegister))
	router.Handler("POST", "/login", limited(opts.GeneralLimiter, h.postLogin))
	router.HandlerFunc("GET", "/logout", h.getLogout)
	router.HandlerFunc("GET", "/auth/google", h.getAuthGoogle)
	router.HandlerFunc("GET", "/auth/google/secrets", h.getAuthGoogleCallback)
	router.HandlerFunc("GET", "/healthcheck", h.getHealthcheck)
	router.GET("/static/*asset", serveStatic(assets))
	return logutil.AccessLog(router), nil
}

func (h *Handler) getHome(w http.ResponseWriter, r *http.Request) {
	render(w, r, "home.html", nil)
}

func (h *Handler) getLogin(w http.ResponseWriter, r *http.Request) {
	render(w, r, "login.html", nil)
}

func (h *Handler) getRegister(w http.ResponseWriter, r *http.Request) {
	render(w, r, "register.html", nil)
}

func (h *Handler) getTerms(w http.ResponseWriter, r *http.Request) {
	render(w, r, "terms.html", nil)
}

func (h *Handler) getSecrets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	secrets, err := h.users.ListSecrets(ctx)
	if err != nil {
		logger := logutil.GetOrDefault(ctx)
		logger.Error().Err(err).Msg("Unable to list secrets")
		http.Error(w, "unable to load secrets right now", http.StatusServiceUnavailable)
		return
	}
	render(w, r, "secrets.html", secrets)
}

func (h *Handler) getSubmit(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Resolve(r.Context(), r); !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	render(w, r, "submit.html", nil)
}

func (h *Handler) postSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	// anonymous POSTs are bounced exactly like anonymous GETs, an absent
	// identity is never trusted
	authCtx, ok := h.sessions.Resolve(ctx, r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	secret := strings.TrimSpace(r.PostFormValue("secret"))
	if secret == "" {
		http.Redirect(w, r, "/submit", http.StatusFound)
		return
	}
	err := h.users.SetSecret(ctx, authCtx.UserID, secret)
	if err != nil {
		logger := logutil.GetOrDefault(ctx)
		logger.Error().Err(err).Msg("Unable to store secret")
		http.Redirect(w, r, "/submit", http.StatusFound)
		return
	}
	h.audit(r, authCtx.UserID, "submitted a secret", secret)
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (h *Handler) postRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}
	user, err := h.users.CreateLocal(ctx, username, password)
	if errors.Is(err, store.ErrDuplicateUsername) {
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	} else if err != nil {
		logger := logutil.GetOrDefault(ctx)
		logger.Error().Err(err).Msg("Unable to create account")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}
	h.startSession(w, r, user.ID)
}

func (h *Handler) postLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	user, err := h.local.Authenticate(ctx, username, password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	} else if err != nil {
		logger := logutil.GetOrDefault(ctx)
		logger.Error().Err(err).Msg("Unable to verify credentials")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.audit(r, user.ID, "logged in", "-")
	h.startSession(w, r, user.ID)
}

func (h *Handler) getLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(r.Context(), w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) getAuthGoogle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.google == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	state, err := auth.RandomState()
	if err != nil {
		logger := logutil.GetOrDefault(ctx)
		logger.Error().Err(err).Msg("Unable to generate oauth state")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   !h.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) getAuthGoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logutil.GetOrDefault(ctx)
	if h.google == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		log.Warn().Msg("OAuth callback with missing or mismatched state")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/auth/google",
		MaxAge: -1,
	})
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	user, err := h.google.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("Unable to complete oauth exchange")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.startSession(w, r, user.ID)
}

func (h *Handler) getHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// startSession turns a fresh identity into a cookie-backed session and
// lands the user on the secrets page.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()
	_, err := h.sessions.Create(ctx, w, userID)
	if err != nil {
		logger := logutil.GetOrDefault(ctx)
		logger.Error().Err(err).Msg("Unable to create session")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// audit records who did what, both in the store and in the log stream.
// Audit failures never fail the request they describe.
func (h *Handler) audit(r *http.Request, userID, action, target string) {
	ctx := r.Context()
	log := logutil.GetOrDefault(ctx)
	actor := userID
	if user, err := h.users.FindByID(ctx, userID); err == nil && user.Username != "" {
		actor = user.Username
	}
	err := h.users.AppendAudit(ctx, actor, action, target)
	if err != nil {
		log.Error().Err(err).Msg("Unable to append audit event")
	}
	log.Info().Str("audit.actor", actor).Str("audit.action", action).Msg("Audit event")
}
