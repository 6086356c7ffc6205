package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/caarlos0/env/v11"
	"github.com/whisperwall/whisperwall/store"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

type (
	// GoogleConfig is read from the environment, never from flags, so the
	// client secret does not leak into process listings. The endpoint
	// overrides exist to point the flow at a stand-in provider.
	GoogleConfig struct {
		ClientID     string `env:"GOOGLE_CLIENT_ID"`
		ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
		CallbackURL  string `env:"GOOGLE_CALLBACK_URL" envDefault:"https://localhost/auth/google/secrets"`
		AuthURL      string `env:"GOOGLE_AUTH_URL"`
		TokenURL     string `env:"GOOGLE_TOKEN_URL"`
		UserinfoURL  string `env:"GOOGLE_USERINFO_URL"`
	}

	// GoogleStrategy exchanges a provider profile for a local account,
	// creating the account on first sight. It never sees a password.
	GoogleStrategy struct {
		conf        *oauth2.Config
		users       *store.S
		userinfoURL string
	}

	googleProfile struct {
		Sub string `json:"sub"`
	}
)

// GoogleConfigFromEnv parses GOOGLE_* variables.
func GoogleConfigFromEnv() (GoogleConfig, error) {
	var cfg GoogleConfig
	err := env.Parse(&cfg)
	if err != nil {
		return GoogleConfig{}, fmt.Errorf("unable to parse google oauth config from environment, cause %w", err)
	}
	return cfg, nil
}

// Enabled reports whether the environment carried a usable client id.
func (c GoogleConfig) Enabled() bool { return c.ClientID != "" }

func NewGoogleStrategy(cfg GoogleConfig, users *store.S) *GoogleStrategy {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	userinfoURL := cfg.UserinfoURL
	if userinfoURL == "" {
		userinfoURL = defaultUserinfoURL
	}
	return &GoogleStrategy{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "profile"},
		},
		users:       users,
		userinfoURL: userinfoURL,
	}
}

// AuthCodeURL builds the consent-screen redirect for the given state.
func (g *GoogleStrategy) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

// Exchange trades the callback code for the provider profile and maps its
// subject id onto a local account.
func (g *GoogleStrategy) Exchange(ctx context.Context, code string) (store.User, error) {
	token, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return store.User{}, fmt.Errorf("unable to exchange authorization code, cause %w", err)
	}
	profile, err := g.fetchProfile(ctx, token)
	if err != nil {
		return store.User{}, err
	}
	if profile.Sub == "" {
		return store.User{}, fmt.Errorf("provider profile carries no subject id")
	}
	return g.users.FindOrCreateByGoogleID(ctx, profile.Sub)
}

func (g *GoogleStrategy) fetchProfile(ctx context.Context, token *oauth2.Token) (googleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return googleProfile{}, fmt.Errorf("unable to build userinfo request, cause %w", err)
	}
	res, err := g.conf.Client(ctx, token).Do(req)
	if err != nil {
		return googleProfile{}, fmt.Errorf("unable to fetch userinfo, cause %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return googleProfile{}, fmt.Errorf("userinfo endpoint answered %v", res.Status)
	}
	var profile googleProfile
	err = json.NewDecoder(res.Body).Decode(&profile)
	if err != nil {
		return googleProfile{}, fmt.Errorf("unable to decode userinfo payload, cause %w", err)
	}
	return profile, nil
}

// RandomState generates the anti-CSRF state for one consent round trip.
func RandomState() (string, error) {
	buf := make([]byte, 16)
	_, err := rand.Read(buf)
	if err != nil {
		return "", fmt.Errorf("unable to generate oauth state, cause %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
