package user

import "time"

// Roles recognised by the storefront.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a storefront account. PasswordHash is empty for accounts created
// through an OAuth provider; Provider and ProviderID are empty for
// password-only accounts.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Provider     string
	ProviderID   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session backs one issued token. TokenHash is the SHA-256 of the JWT so the
// raw token never touches the database.
type Session struct {
	ID        string
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
