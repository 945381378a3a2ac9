package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type memoryAccount struct {
	identity     Identity
	passwordHash string
}

// Memory is an in-process Provider used in demo mode and in tests. Passwords
// are bcrypt-hashed so authentication behaves like the real backend.
type Memory struct {
	// RequireConfirmation makes SignUp withhold the session until the
	// account is confirmed, mirroring backends with email confirmation on.
	RequireConfirmation bool

	mu        sync.Mutex
	accounts  map[string]*memoryAccount // keyed by lowercased email
	session   *Session
	listeners map[int]func(AuthEvent, *Session)
	nextID    int
}

func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[string]*memoryAccount),
		listeners: make(map[int]func(AuthEvent, *Session)),
	}
}

// Seed creates a pre-confirmed account without dispatching events. Used to
// provision the demo organizer and test fixtures.
func (m *Memory) Seed(email, password string, metadata map[string]any) Identity {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	ident := Identity{
		ID:             uuid.NewString(),
		Email:          strings.ToLower(strings.TrimSpace(email)),
		EmailConfirmed: true,
		Metadata:       cloneMetadata(metadata),
		CreatedAt:      time.Now().UTC(),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[ident.Email] = &memoryAccount{identity: ident, passwordHash: string(hash)}
	return ident
}

// Confirm marks an account's email as confirmed.
func (m *Memory) Confirm(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct, ok := m.accounts[strings.ToLower(email)]; ok {
		acct.identity.EmailConfirmed = true
	}
}

func (m *Memory) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, exists := m.accounts[email]; exists {
		m.mu.Unlock()
		return nil, ErrEmailTaken
	}
	ident := Identity{
		ID:             uuid.NewString(),
		Email:          email,
		EmailConfirmed: !m.RequireConfirmation,
		Metadata:       cloneMetadata(metadata),
		CreatedAt:      time.Now().UTC(),
	}
	m.accounts[email] = &memoryAccount{identity: ident, passwordHash: string(hash)}
	if m.RequireConfirmation {
		m.mu.Unlock()
		return &SignUpResult{User: ident, NeedsConfirmation: true}, nil
	}
	sess := m.startSessionLocked(ident)
	m.mu.Unlock()

	m.dispatch(EventSignedIn, sess)
	return &SignUpResult{User: ident, NeedsConfirmation: false}, nil
}

func (m *Memory) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	m.mu.Lock()
	acct, ok := m.accounts[email]
	if !ok {
		m.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.passwordHash), []byte(password)) != nil {
		m.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	if !acct.identity.EmailConfirmed {
		m.mu.Unlock()
		return nil, ErrEmailNotConfirmed
	}
	sess := m.startSessionLocked(acct.identity)
	m.mu.Unlock()

	m.dispatch(EventSignedIn, sess)
	return sess, nil
}

func (m *Memory) SignOut(ctx context.Context) error {
	m.mu.Lock()
	had := m.session != nil
	m.session = nil
	m.mu.Unlock()

	if had {
		m.dispatch(EventSignedOut, nil)
	}
	return nil
}

func (m *Memory) CurrentSession(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	sess := *m.session
	return &sess, nil
}

func (m *Memory) UpdateMetadata(ctx context.Context, changes map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ErrInvalidCredentials
	}
	acct := m.accounts[m.session.User.Email]
	if acct.identity.Metadata == nil {
		acct.identity.Metadata = make(map[string]any)
	}
	for k, v := range changes {
		if v == nil {
			delete(acct.identity.Metadata, k)
			continue
		}
		acct.identity.Metadata[k] = v
	}
	m.session.User = acct.identity
	return nil
}

func (m *Memory) OnAuthChange(fn func(event AuthEvent, session *Session)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Metadata returns a copy of an account's current metadata. Test helper for
// asserting staged-key purges.
func (m *Memory) Metadata(email string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[strings.ToLower(email)]
	if !ok {
		return nil
	}
	return cloneMetadata(acct.identity.Metadata)
}

func (m *Memory) startSessionLocked(ident Identity) *Session {
	sess := &Session{
		AccessToken: uuid.NewString(),
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        ident,
	}
	m.session = sess
	copied := *sess
	return &copied
}

// dispatch invokes listeners outside the account lock so a listener may call
// back into the provider.
func (m *Memory) dispatch(event AuthEvent, session *Session) {
	m.mu.Lock()
	fns := make([]func(AuthEvent, *Session), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}

func cloneMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
