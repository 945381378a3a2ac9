package profile_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/eventhive/ticketcore/internal/identity"
	"github.com/eventhive/ticketcore/internal/prefs"
	"github.com/eventhive/ticketcore/internal/profile"
	"github.com/eventhive/ticketcore/internal/profile/entity"
	"github.com/eventhive/ticketcore/internal/profile/repo"
)

const adminEmail = "root@tickets.test"

type resolverFixture struct {
	provider *identity.Memory
	store    *repo.Memory
	prefs    *prefs.Memory
	resolver *profile.Resolver
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	f := &resolverFixture{
		provider: identity.NewMemory(),
		store:    repo.NewMemory(),
		prefs:    prefs.NewMemory(),
	}
	f.resolver = profile.NewResolver(f.store, f.provider, f.prefs, adminEmail, zap.NewNop().Sugar())
	return f
}

func (f *resolverFixture) seedCustomer(t *testing.T, identityID, email string) {
	t.Helper()
	err := f.store.InsertCustomer(context.Background(), identityID, email, profile.CustomerInput{
		Prefix:    "Ms.",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
}

func (f *resolverFixture) seedOrganizer(t *testing.T, identityID, email string) {
	t.Helper()
	err := f.store.InsertOrganizer(context.Background(), identityID, email, profile.OrganizerInput{
		OrganizerName: "Ada Events",
		CompanyName:   "Ada Events Ltd.",
	})
	if err != nil {
		t.Fatalf("seed organizer: %v", err)
	}
}

func TestResolveSuperAdminIsExclusive(t *testing.T) {
	f := newResolverFixture(t)
	ident := f.provider.Seed(adminEmail, "secret-pass", nil)
	// Matching rows must be ignored for the allowlisted email.
	f.seedCustomer(t, ident.ID, adminEmail)
	f.seedOrganizer(t, ident.ID, adminEmail)

	userProfile, role, err := f.resolver.Resolve(context.Background(), ident)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != entity.RoleSuperAdmin {
		t.Errorf("expected super admin role, got %q", role)
	}
	if len(userProfile.AvailableRoles) != 1 || userProfile.AvailableRoles[0] != entity.RoleSuperAdmin {
		t.Errorf("expected available roles [Super Admin], got %v", userProfile.AvailableRoles)
	}
	if userProfile.Customer != nil || userProfile.Organizer != nil {
		t.Error("super admin profile must not carry table-backed profiles")
	}
	if userProfile.SuperAdmin == nil || userProfile.SuperAdmin.ID != 0 || userProfile.SuperAdmin.Email != adminEmail {
		t.Errorf("unexpected super admin data: %+v", userProfile.SuperAdmin)
	}
}

func TestResolveDualRoleUsesPreference(t *testing.T) {
	f := newResolverFixture(t)
	ident := f.provider.Seed("ada@example.com", "secret-pass", nil)
	f.seedCustomer(t, ident.ID, ident.Email)
	f.seedOrganizer(t, ident.ID, ident.Email)
	if err := f.prefs.Put(prefs.KeyPreferredRole, string(entity.RoleOrganizer)); err != nil {
		t.Fatalf("put pref: %v", err)
	}

	userProfile, role, err := f.resolver.Resolve(context.Background(), ident)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != entity.RoleOrganizer {
		t.Errorf("expected organizer from preference, got %q", role)
	}
	want := []entity.Role{entity.RoleClient, entity.RoleOrganizer}
	if len(userProfile.AvailableRoles) != 2 || userProfile.AvailableRoles[0] != want[0] || userProfile.AvailableRoles[1] != want[1] {
		t.Errorf("expected discovery order %v, got %v", want, userProfile.AvailableRoles)
	}
	org, ok := userProfile.Data(role).(*entity.Organizer)
	if !ok || org.OrganizerName != "Ada Events" {
		t.Errorf("expected organizer data for current role, got %#v", userProfile.Data(role))
	}
}

func TestResolvePreferenceOutsideAvailableFallsBack(t *testing.T) {
	f := newResolverFixture(t)
	ident := f.provider.Seed("ada@example.com", "secret-pass", nil)
	f.seedCustomer(t, ident.ID, ident.Email)
	if err := f.prefs.Put(prefs.KeyPreferredRole, string(entity.RoleOrganizer)); err != nil {
		t.Fatalf("put pref: %v", err)
	}

	_, role, err := f.resolver.Resolve(context.Background(), ident)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != entity.RoleClient {
		t.Errorf("expected fallback to first discovered role, got %q", role)
	}
}

func TestResolveStagedClientCreatesOnceAndPurges(t *testing.T) {
	f := newResolverFixture(t)
	f.provider.Seed("new@example.com", "secret-pass", map[string]any{
		"app_role":     string(entity.RoleClient),
		"prefix":       "Mr.",
		"first_name":   "Linus",
		"last_name":    "T",
		"gender":       "Male",
		"birthday":     "1969-12-28",
		"id_number":    "X-100",
		"phone":        "+661234567",
		"country_code": "TH",
	})
	// The purge goes through the provider session, so sign in first.
	sess, err := f.provider.SignIn(context.Background(), "new@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	userProfile, role, err := f.resolver.Resolve(context.Background(), sess.User)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != entity.RoleClient {
		t.Errorf("expected client role, got %q", role)
	}
	customer := userProfile.Customer
	if customer == nil {
		t.Fatal("expected customer profile to be created")
	}
	if customer.FirstName != "Linus" || customer.IDNumber != "X-100" || customer.Email != "new@example.com" {
		t.Errorf("created profile does not match staged fields: %+v", customer)
	}
	if customer.IdentityID != sess.User.ID {
		t.Errorf("expected identity back-reference %q, got %q", sess.User.ID, customer.IdentityID)
	}

	meta := f.provider.Metadata("new@example.com")
	for _, key := range []string{"app_role", "first_name", "last_name", "phone", "id_number"} {
		if _, present := meta[key]; present {
			t.Errorf("staged key %q not purged", key)
		}
	}

	// A second login must go through the query path and insert nothing.
	refreshed, err := f.provider.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if _, _, err := f.resolver.Resolve(context.Background(), refreshed.User); err != nil {
		t.Fatalf("second resolution failed: %v", err)
	}
	if got := f.store.Inserts(); got != 1 {
		t.Errorf("expected exactly one insert across resolutions, got %d", got)
	}
}

func TestResolveStagedOrganizer(t *testing.T) {
	f := newResolverFixture(t)
	f.provider.Seed("org@example.com", "secret-pass", map[string]any{
		"app_role":        string(entity.RoleOrganizer),
		"organizer_name":  "Big Shows",
		"business_type":   "Concerts",
		"company_name":    "Big Shows Co.",
		"tax_id":          "TAX-1",
		"billing_address": "1 Main St",
		"contact_person":  "Mr. Big",
		"invoice_email":   "billing@bigshows.com",
		"maps_link":       "https://maps.example.com/bigshows",
		"phone":           "+15550100",
	})
	sess, err := f.provider.SignIn(context.Background(), "org@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	userProfile, role, err := f.resolver.Resolve(context.Background(), sess.User)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != entity.RoleOrganizer {
		t.Errorf("expected organizer role, got %q", role)
	}
	org := userProfile.Organizer
	if org == nil {
		t.Fatal("expected organizer profile to be created")
	}
	if org.OrganizerName != "Big Shows" || org.InvoiceEmail != "billing@bigshows.com" {
		t.Errorf("created profile does not match staged fields: %+v", org)
	}
	if org.MapsLink == nil || *org.MapsLink != "https://maps.example.com/bigshows" {
		t.Errorf("expected maps link to survive staging, got %v", org.MapsLink)
	}
	if org.AdditionalNotes != nil {
		t.Errorf("expected absent optional field to stay nil, got %v", org.AdditionalNotes)
	}
}

func TestResolveFreshIdentityIsUnprovisioned(t *testing.T) {
	f := newResolverFixture(t)
	ident := f.provider.Seed("ghost@example.com", "secret-pass", nil)

	userProfile, _, err := f.resolver.Resolve(context.Background(), ident)
	if !errors.Is(err, profile.ErrUnprovisioned) {
		t.Fatalf("expected ErrUnprovisioned, got %v", err)
	}
	if userProfile != nil {
		t.Errorf("expected nil profile, got %+v", userProfile)
	}
}

func TestResolveStagedInsertFailure(t *testing.T) {
	f := newResolverFixture(t)
	f.store.FailInserts = errors.New("constraint violated")
	ident := f.provider.Seed("new@example.com", "secret-pass", map[string]any{
		"app_role":   string(entity.RoleClient),
		"first_name": "Linus",
	})

	userProfile, _, err := f.resolver.Resolve(context.Background(), ident)
	if err == nil {
		t.Fatal("expected resolution to fail when the insert fails")
	}
	if userProfile != nil {
		t.Errorf("expected nil profile on failure, got %+v", userProfile)
	}
}

func TestResolveUnknownStagedRole(t *testing.T) {
	f := newResolverFixture(t)
	ident := f.provider.Seed("odd@example.com", "secret-pass", map[string]any{
		"app_role":   "Moderator",
		"first_name": "Linus",
	})

	_, _, err := f.resolver.Resolve(context.Background(), ident)
	if !errors.Is(err, profile.ErrUnprovisioned) {
		t.Fatalf("expected ErrUnprovisioned for unknown staged role, got %v", err)
	}
	if got := f.store.Inserts(); got != 0 {
		t.Errorf("expected no inserts, got %d", got)
	}
}
