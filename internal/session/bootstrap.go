package session

import (
	"context"

	"github.com/eventhive/ticketcore/internal/identity"
)

// Start bootstraps the session: if the backend already holds a session it is
// resolved to a user before Start returns, otherwise the state becomes
// Anonymous. Start also subscribes to the provider's auth-change stream for
// the life of the process; pair it with Close.
//
// Backend outages degrade to Anonymous so anonymous browsing stays available.
func (m *Manager) Start(ctx context.Context) {
	sess, err := m.provider.CurrentSession(ctx)
	switch {
	case err != nil:
		m.logger.Warnw("session bootstrap failed, starting anonymous", "err", err)
		m.clear()
	case sess == nil:
		m.setAnonymous()
	default:
		m.resolveAndApply(ctx, sess.User)
	}

	m.unsubscribe = m.provider.OnAuthChange(m.handleAuthChange)
}

// Close drops the auth-change subscription.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// handleAuthChange reacts to sign-ins from anywhere (login call, token
// refresh, external sign-in) and to session loss.
func (m *Manager) handleAuthChange(event identity.AuthEvent, sess *identity.Session) {
	if sess == nil {
		m.setAnonymous()
		return
	}
	m.resolveAndApply(context.Background(), sess.User)
}

// resolveAndApply runs profile resolution and installs the result unless a
// sign-out happened in the meantime.
func (m *Manager) resolveAndApply(ctx context.Context, ident identity.Identity) {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	userProfile, role, err := m.resolver.Resolve(ctx, ident)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		m.logger.Debugw("dropping stale resolution", "identity_id", ident.ID)
		return
	}
	if err != nil {
		// Resolution failures are not user-facing here: the identity is
		// authenticated but unprovisioned, which reads as anonymous to the
		// UI and as this warning to support.
		m.logger.Warnw("profile resolution failed", "identity_id", ident.ID, "email", ident.Email, "err", err)
		m.state = StateAnonymous
		m.user = nil
		return
	}
	m.state = StateAuthenticated
	m.user = &AuthUser{CurrentRole: role, Profile: userProfile}
}

func (m *Manager) setAnonymous() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAnonymous
	m.user = nil
}
