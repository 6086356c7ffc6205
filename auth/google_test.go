package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/whisperwall/whisperwall/internal/testutil"
)

func fakeProvider(t *testing.T, sub string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fake-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fake-token" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub":"` + sub + `"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func fakeProviderConfig(provider *httptest.Server) GoogleConfig {
	return GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		CallbackURL:  "http://localhost/auth/google/secrets",
		AuthURL:      provider.URL + "/auth",
		TokenURL:     provider.URL + "/token",
		UserinfoURL:  provider.URL + "/userinfo",
	}
}

func TestGoogleExchangeFindsOrCreates(t *testing.T) {
	ctx := context.Background()
	users, cleanup := testutil.AcquireStore(ctx, t)
	defer cleanup()
	provider := fakeProvider(t, "g-123")
	strategy := NewGoogleStrategy(fakeProviderConfig(provider), users)

	first, err := strategy.Exchange(ctx, "any-code")
	if err != nil {
		t.Fatal(err)
	}
	if first.GoogleID != "g-123" {
		t.Fatalf("expected google id g-123, got %v", first.GoogleID)
	}
	second, err := strategy.Exchange(ctx, "any-code")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatal("repeated exchanges for the same subject must map to the same account")
	}
}

func TestGoogleExchangeRejectsEmptySubject(t *testing.T) {
	ctx := context.Background()
	users, cleanup := testutil.AcquireStore(ctx, t)
	defer cleanup()
	provider := fakeProvider(t, "")
	strategy := NewGoogleStrategy(fakeProviderConfig(provider), users)

	_, err := strategy.Exchange(ctx, "any-code")
	if err == nil {
		t.Fatal("a profile without a subject id must be rejected")
	}
}

func TestAuthCodeURLCarriesState(t *testing.T) {
	users, cleanup := testutil.AcquireStore(context.Background(), t)
	defer cleanup()
	strategy := NewGoogleStrategy(GoogleConfig{
		ClientID:    "client",
		CallbackURL: "https://localhost/auth/google/secrets",
	}, users)
	state, err := RandomState()
	if err != nil {
		t.Fatal(err)
	}
	url := strategy.AuthCodeURL(state)
	if !strings.Contains(url, "state="+state) {
		t.Fatalf("consent url should carry the state, got %v", url)
	}
	if !strings.Contains(url, "accounts.google.com") {
		t.Fatalf("consent url should point at the default provider, got %v", url)
	}
}
