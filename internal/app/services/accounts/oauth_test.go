package accounts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPOAuthProviderExchange(t *testing.T) {
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-token-1" {
			t.Errorf("userinfo auth header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"sub":   "g-42",
			"email": "ada@example.com",
			"name":  "Ada",
		})
	}))
	defer userinfo.Close()

	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("code"); got != "the-code" {
			t.Errorf("code = %q", got)
		}
		if got := r.FormValue("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "access-token-1"})
	}))
	defer token.Close()

	p := NewHTTPOAuthProvider(OAuthEndpoints{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     token.URL,
		UserInfoURL:  userinfo.URL,
	}, nil)

	profile, err := p.Exchange(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if profile.ProviderID != "g-42" || profile.Email != "ada@example.com" || profile.Name != "Ada" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestHTTPOAuthProviderFacebookShape(t *testing.T) {
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"id":    "fb-9",
			"email": "ada@example.com",
			"name":  "Ada",
		})
	}))
	defer userinfo.Close()

	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "t"})
	}))
	defer token.Close()

	p := NewHTTPOAuthProvider(OAuthEndpoints{TokenURL: token.URL, UserInfoURL: userinfo.URL}, nil)

	profile, err := p.Exchange(context.Background(), "code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if profile.ProviderID != "fb-9" {
		t.Fatalf("provider id = %q, want fb-9", profile.ProviderID)
	}
}

func TestHTTPOAuthProviderTokenRejected(t *testing.T) {
	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer token.Close()

	p := NewHTTPOAuthProvider(OAuthEndpoints{TokenURL: token.URL, UserInfoURL: "http://unused"}, nil)

	if _, err := p.Exchange(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected error for rejected code")
	}
}
