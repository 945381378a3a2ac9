package identity

import (
	"context"
	"errors"
)

// Sentinel errors surfaced verbatim to login/register callers.
var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
)

// SignUpResult reports the outcome of a registration attempt.
// NeedsConfirmation is true when the backend requires email confirmation
// before a session exists; no profile can be created until the first login.
type SignUpResult struct {
	User              Identity
	NeedsConfirmation bool
}

// Provider abstracts the backend identity service. Two implementations exist:
// Remote (HTTP, GoTrue-compatible) and Memory (demo mode and tests).
type Provider interface {
	// SignUp registers a new account. Metadata is stored on the identity as
	// staged signup metadata and survives until explicitly purged.
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error)

	// SignIn performs password authentication and establishes a session.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignOut terminates the current session. A nil error is returned when
	// there was no session to terminate.
	SignOut(ctx context.Context) error

	// CurrentSession returns the active session, or nil when none exists.
	// Errors indicate transport or configuration failures, not absence.
	CurrentSession(ctx context.Context) (*Session, error)

	// UpdateMetadata applies a partial update to the current identity's
	// metadata. A nil value removes the key.
	UpdateMetadata(ctx context.Context, changes map[string]any) error

	// OnAuthChange registers a listener for session state changes. The
	// returned function removes the listener.
	OnAuthChange(fn func(event AuthEvent, session *Session)) (unsubscribe func())
}
