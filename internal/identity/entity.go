package identity

import "time"

// Identity is the authenticated principal as known to the auth backend.
// Metadata is the raw signup metadata attached to the account; it acts as a
// staging area for profile fields collected at registration time, before any
// profile row exists.
type Identity struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	EmailConfirmed bool           `json:"email_confirmed"`
	Metadata       map[string]any `json:"user_metadata"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Session is an authenticated backend session.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        Identity  `json:"user"`
}

// AuthEvent names a session state change reported by the provider.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)
