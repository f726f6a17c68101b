package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/astrobite/storefront/internal/app/domain/user"
	"github.com/astrobite/storefront/internal/app/storage"
)

// OAuthProfile is the subset of provider userinfo the storefront needs.
type OAuthProfile struct {
	ProviderID string
	Email      string
	Name       string
}

// OAuthProvider exchanges an authorization code for the user's profile.
type OAuthProvider interface {
	Exchange(ctx context.Context, code string) (OAuthProfile, error)
}

// OAuthEndpoints configures an HTTPOAuthProvider.
type OAuthEndpoints struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenURL     string
	UserInfoURL  string
}

// HTTPOAuthProvider implements the standard authorization-code flow:
// POST the code to the token endpoint, then fetch userinfo with the access
// token. Google and Facebook both fit this shape; their userinfo field
// names differ and are both accepted.
type HTTPOAuthProvider struct {
	endpoints OAuthEndpoints
	client    *http.Client
}

var _ OAuthProvider = (*HTTPOAuthProvider)(nil)

// NewHTTPOAuthProvider builds a provider. A nil client gets a 10s-timeout
// default.
func NewHTTPOAuthProvider(endpoints OAuthEndpoints, client *http.Client) *HTTPOAuthProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPOAuthProvider{endpoints: endpoints, client: client}
}

func (p *HTTPOAuthProvider) Exchange(ctx context.Context, code string) (OAuthProfile, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {p.endpoints.ClientID},
		"client_secret": {p.endpoints.ClientSecret},
		"redirect_uri":  {p.endpoints.RedirectURI},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoints.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return OAuthProfile{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return OAuthProfile{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return OAuthProfile{}, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&tokenResp); err != nil {
		return OAuthProfile{}, fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return OAuthProfile{}, fmt.Errorf("no access token in response")
	}

	return p.fetchProfile(ctx, tokenResp.AccessToken)
}

func (p *HTTPOAuthProvider) fetchProfile(ctx context.Context, accessToken string) (OAuthProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoints.UserInfoURL, nil)
	if err != nil {
		return OAuthProfile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return OAuthProfile{}, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return OAuthProfile{}, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var info struct {
		Sub       string `json:"sub"` // google
		ID        string `json:"id"`  // facebook
		Email     string `json:"email"`
		Name      string `json:"name"`
		GivenName string `json:"given_name"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return OAuthProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}

	profile := OAuthProfile{ProviderID: info.Sub, Email: info.Email, Name: info.Name}
	if profile.ProviderID == "" {
		profile.ProviderID = info.ID
	}
	if profile.Name == "" {
		profile.Name = info.GivenName
	}
	if profile.ProviderID == "" || profile.Email == "" {
		return OAuthProfile{}, fmt.Errorf("provider profile missing id or email")
	}
	return profile, nil
}

// OAuthLogin exchanges the authorization code and signs the user in,
// creating or linking the account as needed: an existing (provider,
// provider_id) match wins; otherwise an account with the same email is
// linked to the provider; otherwise a fresh account is created with no
// password.
func (s *Service) OAuthLogin(ctx context.Context, providerName, code string) (AuthResult, error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	provider, ok := s.oauth[providerName]
	if !ok {
		return AuthResult{}, fmt.Errorf("unknown oauth provider %q", providerName)
	}
	if code == "" {
		return AuthResult{}, fmt.Errorf("authorization code is required")
	}

	profile, err := provider.Exchange(ctx, code)
	if err != nil {
		return AuthResult{}, fmt.Errorf("oauth exchange: %w", err)
	}

	u, err := s.users.GetUserByProvider(ctx, providerName, profile.ProviderID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("lookup provider account: %w", err)
	}
	if err != nil {
		u, err = s.users.GetUserByEmail(ctx, strings.ToLower(profile.Email))
		switch {
		case err == nil:
			// Link the provider to the existing account.
			u.Provider = providerName
			u.ProviderID = profile.ProviderID
			if u, err = s.users.UpdateUser(ctx, u); err != nil {
				return AuthResult{}, fmt.Errorf("link provider: %w", err)
			}
		case errors.Is(err, storage.ErrNotFound):
			u, err = s.users.CreateUser(ctx, user.User{
				Name:       profile.Name,
				Email:      strings.ToLower(profile.Email),
				Role:       user.RoleUser,
				Provider:   providerName,
				ProviderID: profile.ProviderID,
			})
			if err != nil {
				return AuthResult{}, fmt.Errorf("create user: %w", err)
			}
			s.log.WithField("user_id", u.ID).
				WithField("provider", providerName).
				Info("user created via oauth")
		default:
			return AuthResult{}, fmt.Errorf("lookup account by email: %w", err)
		}
	}

	return s.startSession(ctx, u)
}
