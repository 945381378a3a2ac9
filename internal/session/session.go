// Package session owns the process-wide authenticated-user value. The
// Manager is the sole writer; every other part of the application reads the
// snapshot it exposes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/eventhive/ticketcore/internal/identity"
	"github.com/eventhive/ticketcore/internal/prefs"
	"github.com/eventhive/ticketcore/internal/profile"
	"github.com/eventhive/ticketcore/internal/profile/entity"
)

// State describes the session lifecycle explicitly so illegal combinations
// (authenticated with no user, user while unresolved) cannot be expressed.
type State int

const (
	// StateUnresolved is the initial state before bootstrap completes.
	StateUnresolved State = iota
	// StateAnonymous means no session exists or no profile could be resolved.
	StateAnonymous
	// StateAuthenticated means a user with at least one role is signed in.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// AuthUser is the resolved session value: one current role plus the full
// multi-role profile. Constructed only by the Manager, so CurrentRole is
// always a member of Profile.AvailableRoles.
type AuthUser struct {
	CurrentRole entity.Role         `json:"current_role"`
	Profile     *entity.UserProfile `json:"profile"`
}

// Data returns the profile record for the current role.
func (u *AuthUser) Data() any { return u.Profile.Data(u.CurrentRole) }

// Snapshot is a point-in-time read of the session. User is non-nil exactly
// when State is StateAuthenticated.
type Snapshot struct {
	State State
	User  *AuthUser
}

// Role-mutation failures returned synchronously to callers.
var (
	ErrNotAuthenticated = errors.New("no authenticated user")
	ErrRoleUnavailable  = errors.New("role not available for this account")
	ErrRoleExists       = errors.New("role already provisioned for this account")
)

// Registration is the input to Register. Exactly one of Customer/Organizer
// is consulted, selected by Role.
type Registration struct {
	Role      entity.Role
	Email     string
	Password  string
	Customer  profile.CustomerInput
	Organizer profile.OrganizerInput
}

// RoleGrant is the input to AddRole.
type RoleGrant struct {
	Role      entity.Role
	Customer  profile.CustomerInput
	Organizer profile.OrganizerInput
}

// Manager coordinates the identity provider, profile resolver and preference
// store into the single session value the UI reads.
type Manager struct {
	provider identity.Provider
	store    profile.Store
	resolver *profile.Resolver
	prefs    prefs.Store
	logger   *zap.SugaredLogger

	mu    sync.Mutex
	state State
	user  *AuthUser
	// gen invalidates in-flight resolutions: it is bumped on every explicit
	// sign-out so a logout issued while a login is resolving wins.
	gen         uint64
	unsubscribe func()
}

func NewManager(provider identity.Provider, store profile.Store, resolver *profile.Resolver, pref prefs.Store, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		provider: provider,
		store:    store,
		resolver: resolver,
		prefs:    pref,
		logger:   logger,
		state:    StateUnresolved,
	}
}

// Current returns the latest session snapshot.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{State: m.state, User: m.user}
}

// Login performs password sign-in. It does not set the session value itself;
// the provider's auth-change notification re-enters the resolver. Provider
// errors pass through verbatim.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	_, err := m.provider.SignIn(ctx, email, password)
	return err
}

// Register signs up a new account, staging the profile fields and the role
// marker in the identity metadata. The real profile row is created on first
// login by the resolver. Returns true when the backend requires email
// confirmation before a session exists.
func (m *Manager) Register(ctx context.Context, reg Registration) (needsConfirmation bool, err error) {
	var metadata map[string]any
	switch reg.Role {
	case entity.RoleClient:
		metadata = profile.StageCustomer(reg.Customer)
	case entity.RoleOrganizer:
		metadata = profile.StageOrganizer(reg.Organizer)
	default:
		return false, fmt.Errorf("%w: %s", ErrRoleUnavailable, reg.Role)
	}
	metadata["app_role"] = string(reg.Role)

	result, err := m.provider.SignUp(ctx, reg.Email, reg.Password, metadata)
	if err != nil {
		return false, err
	}
	// When confirmation is off the provider auto-signs-in and its event has
	// already driven resolution.
	return result.NeedsConfirmation, nil
}

// Logout signs out of the backend and clears the session value immediately,
// without waiting for the auth-change notification, so the UI never flashes
// a stale authenticated view.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Warnw("backend sign-out failed", "err", err)
	}
	m.clear()
}

// SwitchRole changes the current role to one already in the available set.
// All role profiles were loaded at resolution time, so this is synchronous
// and performs no provider or storage calls.
func (m *Manager) SwitchRole(role entity.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		m.logger.Errorw("switch role without session", "role", role)
		return ErrNotAuthenticated
	}
	if !m.user.Profile.HasRole(role) {
		m.logger.Errorw("switch to unavailable role", "role", role, "available", m.user.Profile.AvailableRoles)
		return ErrRoleUnavailable
	}
	m.user = &AuthUser{CurrentRole: role, Profile: m.user.Profile}
	if err := m.prefs.Put(prefs.KeyPreferredRole, string(role)); err != nil {
		m.logger.Warnw("persist role preference failed", "err", err)
	}
	return nil
}

// AddRole provisions an additional role profile for the authenticated
// identity, makes it current and persists the preference. This is the only
// path that may create a second profile for an already-provisioned identity.
func (m *Manager) AddRole(ctx context.Context, grant RoleGrant) error {
	m.mu.Lock()
	user := m.user
	gen := m.gen
	m.mu.Unlock()

	if user == nil {
		return ErrNotAuthenticated
	}
	if user.Profile.HasRole(grant.Role) {
		return ErrRoleExists
	}
	identityID := user.Profile.IdentityID()
	if identityID == "" {
		// Super admin carries no identity-backed rows to attach to.
		return ErrRoleUnavailable
	}
	email := user.Profile.Email()

	updated := &entity.UserProfile{
		Customer:       user.Profile.Customer,
		Organizer:      user.Profile.Organizer,
		SuperAdmin:     user.Profile.SuperAdmin,
		AvailableRoles: append([]entity.Role(nil), user.Profile.AvailableRoles...),
	}

	switch grant.Role {
	case entity.RoleClient:
		if err := m.store.InsertCustomer(ctx, identityID, email, grant.Customer); err != nil {
			return fmt.Errorf("add client role: %w", err)
		}
		customer, err := m.store.CustomerByIdentity(ctx, identityID)
		if err != nil {
			return fmt.Errorf("reload client profile: %w", err)
		}
		updated.Customer = customer
	case entity.RoleOrganizer:
		if err := m.store.InsertOrganizer(ctx, identityID, email, grant.Organizer); err != nil {
			return fmt.Errorf("add organizer role: %w", err)
		}
		organizer, err := m.store.OrganizerByIdentity(ctx, identityID)
		if err != nil {
			return fmt.Errorf("reload organizer profile: %w", err)
		}
		updated.Organizer = organizer
	default:
		return fmt.Errorf("%w: %s", ErrRoleUnavailable, grant.Role)
	}
	updated.AvailableRoles = append(updated.AvailableRoles, grant.Role)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || m.user == nil {
		// Signed out while the insert was in flight. The row exists and a
		// retry of AddRole will report ErrRoleExists, which is the
		// discoverable state the caller can recover from.
		m.logger.Warnw("discarding role grant applied after sign-out", "role", grant.Role)
		return ErrNotAuthenticated
	}
	m.user = &AuthUser{CurrentRole: grant.Role, Profile: updated}
	m.state = StateAuthenticated
	if err := m.prefs.Put(prefs.KeyPreferredRole, string(grant.Role)); err != nil {
		m.logger.Warnw("persist role preference failed", "err", err)
	}
	return nil
}

// clear moves to Anonymous and invalidates any in-flight resolution.
func (m *Manager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.state = StateAnonymous
	m.user = nil
}
