package profile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eventhive/ticketcore/internal/identity"
	"github.com/eventhive/ticketcore/internal/prefs"
	"github.com/eventhive/ticketcore/internal/profile/entity"
)

// ErrUnprovisioned marks an authenticated identity for which no role profile
// exists and none could be created from staged metadata. The session layer
// treats it as anonymous but logs it distinctly: "logged in, no profile" is a
// different support case than "not logged in".
var ErrUnprovisioned = errors.New("identity has no role profile")

// metadataKey is the staged-role marker written at registration time.
const metadataKey = "app_role"

// stagedKeys are every metadata key the resolver may consume when
// materializing a first profile. All of them are purged after a successful
// creation so a second login cannot re-insert.
var stagedKeys = []string{
	metadataKey,
	// customer fields
	"prefix", "first_name", "last_name", "gender", "birthday", "id_number", "country_code",
	// organizer fields
	"organizer_name", "business_type", "maps_link", "company_name",
	"tax_id", "billing_address", "contact_person", "invoice_email", "additional_notes",
	// shared
	"phone",
}

// Resolver maps an authenticated identity to its multi-role profile.
type Resolver struct {
	store           Store
	provider        identity.Provider
	prefs           prefs.Store
	superAdminEmail string
	logger          *zap.SugaredLogger
}

func NewResolver(store Store, provider identity.Provider, pref prefs.Store, superAdminEmail string, logger *zap.SugaredLogger) *Resolver {
	return &Resolver{
		store:           store,
		provider:        provider,
		prefs:           pref,
		superAdminEmail: superAdminEmail,
		logger:          logger,
	}
}

// Resolve discovers or creates the role profiles for ident and picks the
// current role. The returned role is always a member of the profile's
// available set.
func (r *Resolver) Resolve(ctx context.Context, ident identity.Identity) (*entity.UserProfile, entity.Role, error) {
	// The allowlisted super admin never carries table-backed profiles, even
	// if matching rows exist.
	if r.superAdminEmail != "" && ident.Email == r.superAdminEmail {
		profile := &entity.UserProfile{
			SuperAdmin: &entity.SuperAdmin{
				ID:        0,
				FirstName: "Admin",
				LastName:  "User",
				Email:     r.superAdminEmail,
			},
			AvailableRoles: []entity.Role{entity.RoleSuperAdmin},
		}
		return profile, entity.RoleSuperAdmin, nil
	}

	profile := &entity.UserProfile{}

	customer, err := r.store.CustomerByIdentity(ctx, ident.ID)
	switch {
	case err == nil:
		profile.Customer = customer
		profile.AvailableRoles = append(profile.AvailableRoles, entity.RoleClient)
	case !errors.Is(err, ErrNotFound):
		// Lookup failures degrade to "absent" so an outage on one table does
		// not block the other role.
		r.logger.Warnw("customer lookup failed", "identity_id", ident.ID, "err", err)
	}

	organizer, err := r.store.OrganizerByIdentity(ctx, ident.ID)
	switch {
	case err == nil:
		profile.Organizer = organizer
		profile.AvailableRoles = append(profile.AvailableRoles, entity.RoleOrganizer)
	case !errors.Is(err, ErrNotFound):
		r.logger.Warnw("organizer lookup failed", "identity_id", ident.ID, "err", err)
	}

	// First login after signup: no rows yet, but registration staged the
	// intended role and its fields on the identity.
	if len(profile.AvailableRoles) == 0 {
		created, err := r.materializeStaged(ctx, ident, profile)
		if err != nil {
			return nil, "", err
		}
		if !created {
			return nil, "", fmt.Errorf("%w: %s", ErrUnprovisioned, ident.ID)
		}
	}

	return profile, r.pickRole(profile), nil
}

// materializeStaged creates the profile row described by the identity's
// staged signup metadata, re-reads it and purges the consumed keys. Returns
// false when the metadata does not describe a creatable profile.
func (r *Resolver) materializeStaged(ctx context.Context, ident identity.Identity, profile *entity.UserProfile) (bool, error) {
	roleStr := metaString(ident.Metadata, metadataKey)
	firstName := metaString(ident.Metadata, "first_name")
	organizerName := metaString(ident.Metadata, "organizer_name")
	if roleStr == "" || (firstName == "" && organizerName == "") {
		return false, nil
	}

	role, ok := entity.ParseRole(roleStr)
	if !ok {
		r.logger.Warnw("staged metadata carries unknown role", "identity_id", ident.ID, "role", roleStr)
		return false, nil
	}

	switch role {
	case entity.RoleClient:
		in := CustomerInput{
			Prefix:      metaString(ident.Metadata, "prefix"),
			FirstName:   firstName,
			LastName:    metaString(ident.Metadata, "last_name"),
			Phone:       metaString(ident.Metadata, "phone"),
			CountryCode: metaString(ident.Metadata, "country_code"),
			Gender:      metaString(ident.Metadata, "gender"),
			Birthday:    metaString(ident.Metadata, "birthday"),
			IDNumber:    metaString(ident.Metadata, "id_number"),
		}
		// ErrAlreadyExists means a concurrent resolution won the insert; the
		// re-read below picks up its row.
		if err := r.store.InsertCustomer(ctx, ident.ID, ident.Email, in); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return false, fmt.Errorf("create staged customer profile: %w", err)
		}
		customer, err := r.store.CustomerByIdentity(ctx, ident.ID)
		if err != nil {
			return false, fmt.Errorf("reload created customer profile: %w", err)
		}
		profile.Customer = customer
		profile.AvailableRoles = append(profile.AvailableRoles, entity.RoleClient)

	case entity.RoleOrganizer:
		in := OrganizerInput{
			OrganizerName:   organizerName,
			Phone:           metaString(ident.Metadata, "phone"),
			BusinessType:    metaString(ident.Metadata, "business_type"),
			CompanyName:     metaString(ident.Metadata, "company_name"),
			TaxID:           metaString(ident.Metadata, "tax_id"),
			BillingAddress:  metaString(ident.Metadata, "billing_address"),
			ContactPerson:   metaString(ident.Metadata, "contact_person"),
			InvoiceEmail:    metaString(ident.Metadata, "invoice_email"),
			MapsLink:        metaOptional(ident.Metadata, "maps_link"),
			AdditionalNotes: metaOptional(ident.Metadata, "additional_notes"),
		}
		if err := r.store.InsertOrganizer(ctx, ident.ID, ident.Email, in); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return false, fmt.Errorf("create staged organizer profile: %w", err)
		}
		organizer, err := r.store.OrganizerByIdentity(ctx, ident.ID)
		if err != nil {
			return false, fmt.Errorf("reload created organizer profile: %w", err)
		}
		profile.Organizer = organizer
		profile.AvailableRoles = append(profile.AvailableRoles, entity.RoleOrganizer)

	default:
		// Super admin is allowlist-only; there is nothing to create.
		return false, nil
	}

	// Purge the consumed keys so the next login goes straight through the
	// query path. A purge failure is survivable: the rows now exist and the
	// lookup above finds them first.
	purge := make(map[string]any, len(stagedKeys))
	for _, k := range stagedKeys {
		purge[k] = nil
	}
	if err := r.provider.UpdateMetadata(ctx, purge); err != nil {
		r.logger.Warnw("staged metadata purge failed", "identity_id", ident.ID, "err", err)
	}
	return true, nil
}

// pickRole applies the persisted role preference, falling back to the first
// discovered role when the preference is missing or no longer available.
func (r *Resolver) pickRole(profile *entity.UserProfile) entity.Role {
	if stored, ok := r.prefs.Get(prefs.KeyPreferredRole); ok {
		if role, valid := entity.ParseRole(stored); valid && profile.HasRole(role) {
			return role
		}
	}
	return profile.AvailableRoles[0]
}

func metaString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func metaOptional(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok && s != "" {
		return &s
	}
	return nil
}
