package identity

import (
	"context"
	"errors"
	"testing"
)

func TestMemorySignUpAutoSignsIn(t *testing.T) {
	m := NewMemory()

	var events []AuthEvent
	unsubscribe := m.OnAuthChange(func(event AuthEvent, session *Session) {
		events = append(events, event)
	})
	defer unsubscribe()

	result, err := m.SignUp(context.Background(), "ada@example.com", "secret-pass", map[string]any{"app_role": "Client"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if result.NeedsConfirmation {
		t.Error("confirmation must be off by default")
	}
	if result.User.Metadata["app_role"] != "Client" {
		t.Errorf("metadata not staged: %v", result.User.Metadata)
	}

	sess, err := m.CurrentSession(context.Background())
	if err != nil || sess == nil {
		t.Fatalf("expected active session, got %v, %v", sess, err)
	}
	if len(events) != 1 || events[0] != EventSignedIn {
		t.Errorf("expected one SIGNED_IN event, got %v", events)
	}
}

func TestMemorySignUpValidation(t *testing.T) {
	m := NewMemory()
	m.Seed("taken@example.com", "secret-pass", nil)

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"weak password", "new@example.com", "short", ErrWeakPassword},
		{"duplicate email", "taken@example.com", "secret-pass", ErrEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.SignUp(context.Background(), tt.email, tt.password, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMemorySignInChecksPasswordAndConfirmation(t *testing.T) {
	m := NewMemory()
	m.RequireConfirmation = true

	if _, err := m.SignUp(context.Background(), "ada@example.com", "secret-pass", nil); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if _, err := m.SignIn(context.Background(), "ada@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := m.SignIn(context.Background(), "nobody@example.com", "secret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if _, err := m.SignIn(context.Background(), "ada@example.com", "secret-pass"); !errors.Is(err, ErrEmailNotConfirmed) {
		t.Errorf("expected ErrEmailNotConfirmed, got %v", err)
	}

	m.Confirm("ada@example.com")
	sess, err := m.SignIn(context.Background(), "ada@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("sign in after confirm: %v", err)
	}
	if sess.User.Email != "ada@example.com" {
		t.Errorf("unexpected session user: %+v", sess.User)
	}
}

func TestMemorySignOutDispatchesOnce(t *testing.T) {
	m := NewMemory()
	m.Seed("ada@example.com", "secret-pass", nil)
	if _, err := m.SignIn(context.Background(), "ada@example.com", "secret-pass"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	var signedOut int
	unsubscribe := m.OnAuthChange(func(event AuthEvent, session *Session) {
		if event == EventSignedOut {
			if session != nil {
				t.Error("SIGNED_OUT must carry a nil session")
			}
			signedOut++
		}
	})
	defer unsubscribe()

	if err := m.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	// A second sign-out has no session to terminate and stays silent.
	if err := m.SignOut(context.Background()); err != nil {
		t.Fatalf("repeat sign out: %v", err)
	}
	if signedOut != 1 {
		t.Errorf("expected one SIGNED_OUT dispatch, got %d", signedOut)
	}

	if sess, _ := m.CurrentSession(context.Background()); sess != nil {
		t.Errorf("expected no session after sign out, got %+v", sess)
	}
}

func TestMemoryUpdateMetadataDeletesNilKeys(t *testing.T) {
	m := NewMemory()
	m.Seed("ada@example.com", "secret-pass", map[string]any{
		"app_role":   "Client",
		"first_name": "Ada",
	})
	if _, err := m.SignIn(context.Background(), "ada@example.com", "secret-pass"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	err := m.UpdateMetadata(context.Background(), map[string]any{
		"app_role":   nil,
		"first_name": nil,
		"theme":      "dark",
	})
	if err != nil {
		t.Fatalf("update metadata: %v", err)
	}

	meta := m.Metadata("ada@example.com")
	if _, present := meta["app_role"]; present {
		t.Error("nil value must delete the key")
	}
	if meta["theme"] != "dark" {
		t.Errorf("expected new key to be written, got %v", meta)
	}

	sess, _ := m.CurrentSession(context.Background())
	if _, present := sess.User.Metadata["app_role"]; present {
		t.Error("session view must reflect the purge")
	}
}

func TestMemoryUnsubscribeStopsEvents(t *testing.T) {
	m := NewMemory()
	m.Seed("ada@example.com", "secret-pass", nil)

	var count int
	unsubscribe := m.OnAuthChange(func(AuthEvent, *Session) { count++ })
	unsubscribe()

	if _, err := m.SignIn(context.Background(), "ada@example.com", "secret-pass"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no events after unsubscribe, got %d", count)
	}
}
