package accounts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/astrobite/storefront/internal/app/auth"
	"github.com/astrobite/storefront/internal/app/domain/user"
	"github.com/astrobite/storefront/internal/app/storage/memory"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return New(store, auth.NewIssuer("test-secret", time.Hour), nil), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)

	u, err := svc.Register(context.Background(), "Ada", "ada@example.com", "hunter2secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.PasswordHash == "hunter2secret" {
		t.Fatal("password stored in plain text")
	}
	if u.Role != user.RoleUser {
		t.Fatalf("role = %q, want user", u.Role)
	}

	result, err := svc.Login(context.Background(), "ada@example.com", "hunter2secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" {
		t.Fatal("login returned empty token")
	}
	if result.User.ID != u.ID {
		t.Fatalf("logged in as %d, want %d", result.User.ID, u.ID)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc, _ := newService(t)

	if _, err := svc.Register(context.Background(), "Ada", "not-an-email", "hunter2secret"); err == nil {
		t.Fatal("expected error for bad email")
	}
	if _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "short"); err == nil {
		t.Fatal("expected error for short password")
	}
	if _, err := svc.Register(context.Background(), "", "ada@example.com", "hunter2secret"); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newService(t)

	if _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "hunter2secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "Other Ada", "ada@example.com", "different-pw"); err == nil {
		t.Fatal("expected error for duplicate email")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newService(t)

	if _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "hunter2secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(context.Background(), "ada@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownUserSameError(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, store := newService(t)

	if _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "hunter2secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	result, err := svc.Login(context.Background(), "ada@example.com", "hunter2secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), result.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := store.GetSessionByTokenHash(context.Background(), auth.HashToken(result.Token)); err == nil {
		t.Fatal("session still present after logout")
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newService(t)

	u, err := svc.Register(context.Background(), "Ada", "ada@example.com", "hunter2secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), u.ID, "wrong", "newpassword1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
	if err := svc.ChangePassword(context.Background(), u.ID, "hunter2secret", "short"); err == nil {
		t.Fatal("expected error for short new password")
	}
	if err := svc.ChangePassword(context.Background(), u.ID, "hunter2secret", "newpassword1"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := svc.Login(context.Background(), "ada@example.com", "newpassword1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := svc.Login(context.Background(), "ada@example.com", "hunter2secret"); err == nil {
		t.Fatal("old password still accepted")
	}
}

// stubProvider returns a fixed profile without talking to any endpoint.
type stubProvider struct {
	profile OAuthProfile
	err     error
}

func (p stubProvider) Exchange(context.Context, string) (OAuthProfile, error) {
	return p.profile, p.err
}

func TestOAuthLoginCreatesUser(t *testing.T) {
	svc, store := newService(t)
	svc.RegisterOAuthProvider("google", stubProvider{profile: OAuthProfile{
		ProviderID: "g-123",
		Email:      "ada@example.com",
		Name:       "Ada",
	}})

	result, err := svc.OAuthLogin(context.Background(), "google", "auth-code")
	if err != nil {
		t.Fatalf("oauth login: %v", err)
	}
	if result.User.Provider != "google" || result.User.ProviderID != "g-123" {
		t.Fatalf("provider not recorded: %+v", result.User)
	}
	if result.User.PasswordHash != "" {
		t.Fatal("oauth user must have no password")
	}

	if _, err := store.GetUserByProvider(context.Background(), "google", "g-123"); err != nil {
		t.Fatalf("user not findable by provider: %v", err)
	}
}

func TestOAuthLoginLinksExistingEmail(t *testing.T) {
	svc, _ := newService(t)

	registered, err := svc.Register(context.Background(), "Ada", "ada@example.com", "hunter2secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	svc.RegisterOAuthProvider("google", stubProvider{profile: OAuthProfile{
		ProviderID: "g-123",
		Email:      "ada@example.com",
		Name:       "Ada",
	}})

	result, err := svc.OAuthLogin(context.Background(), "google", "auth-code")
	if err != nil {
		t.Fatalf("oauth login: %v", err)
	}
	if result.User.ID != registered.ID {
		t.Fatalf("linked to user %d, want existing %d", result.User.ID, registered.ID)
	}
	if result.User.Provider != "google" {
		t.Fatalf("provider = %q, want google", result.User.Provider)
	}
}

func TestOAuthLoginMatchesProviderFirst(t *testing.T) {
	svc, _ := newService(t)
	svc.RegisterOAuthProvider("google", stubProvider{profile: OAuthProfile{
		ProviderID: "g-123",
		Email:      "ada@example.com",
		Name:       "Ada",
	}})

	first, err := svc.OAuthLogin(context.Background(), "google", "code-1")
	if err != nil {
		t.Fatalf("first oauth login: %v", err)
	}
	second, err := svc.OAuthLogin(context.Background(), "google", "code-2")
	if err != nil {
		t.Fatalf("second oauth login: %v", err)
	}
	if first.User.ID != second.User.ID {
		t.Fatalf("repeat login created new user: %d vs %d", first.User.ID, second.User.ID)
	}
}

// brokenUserStore fails every provider lookup to simulate a backend outage.
type brokenUserStore struct {
	*memory.Store
}

func (b brokenUserStore) GetUserByProvider(context.Context, string, string) (user.User, error) {
	return user.User{}, fmt.Errorf("connection reset by peer")
}

func TestOAuthLoginStoreFailureDoesNotUpsert(t *testing.T) {
	store := memory.New()
	svc := New(brokenUserStore{store}, auth.NewIssuer("test-secret", time.Hour), nil)
	svc.RegisterOAuthProvider("google", stubProvider{profile: OAuthProfile{
		ProviderID: "g-123",
		Email:      "ada@example.com",
		Name:       "Ada",
	}})

	if _, err := svc.OAuthLogin(context.Background(), "google", "code"); err == nil {
		t.Fatal("expected error when provider lookup fails")
	}

	// A transient lookup failure must not fall through to account creation.
	if _, err := store.GetUserByEmail(context.Background(), "ada@example.com"); err == nil {
		t.Fatal("user was created despite store failure")
	}
}

func TestOAuthLoginPasswordRejectedForOAuthOnlyUser(t *testing.T) {
	svc, _ := newService(t)
	svc.RegisterOAuthProvider("google", stubProvider{profile: OAuthProfile{
		ProviderID: "g-123",
		Email:      "ada@example.com",
		Name:       "Ada",
	}})

	if _, err := svc.OAuthLogin(context.Background(), "google", "code"); err != nil {
		t.Fatalf("oauth login: %v", err)
	}

	_, err := svc.Login(context.Background(), "ada@example.com", "anything")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestOAuthLoginUnknownProvider(t *testing.T) {
	svc, _ := newService(t)

	if _, err := svc.OAuthLogin(context.Background(), "myspace", "code"); err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}

func TestOAuthLoginExchangeFailure(t *testing.T) {
	svc, _ := newService(t)
	svc.RegisterOAuthProvider("google", stubProvider{err: errors.New("token endpoint returned 400")})

	if _, err := svc.OAuthLogin(context.Background(), "google", "bad-code"); err == nil {
		t.Fatal("expected error when exchange fails")
	}
}
