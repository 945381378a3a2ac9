package entity

import "time"

// Role is a capability an identity can assume.
type Role string

const (
	RoleClient     Role = "Client"
	RoleOrganizer  Role = "Organizer"
	RoleSuperAdmin Role = "Super Admin"
)

// ParseRole maps a stored role string back to a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleClient, RoleOrganizer, RoleSuperAdmin:
		return Role(s), true
	}
	return "", false
}

// Customer is the ticket-buyer profile row. At most one exists per identity.
type Customer struct {
	ID          int64     `db:"id" json:"id"`
	Prefix      string    `db:"prefix" json:"prefix"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Email       string    `db:"email" json:"email"`
	Phone       string    `db:"phone" json:"phone"`
	CountryCode string    `db:"country_code" json:"country_code"`
	Gender      string    `db:"gender" json:"gender"`
	Birthday    string    `db:"birthday" json:"birthday"`
	IDNumber    string    `db:"id_number" json:"id_number"`
	IdentityID  string    `db:"identity_id" json:"identity_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Organizer is the event-hosting profile row. At most one exists per identity.
type Organizer struct {
	ID              int64     `db:"id" json:"id"`
	OrganizerName   string    `db:"organizer_name" json:"organizer_name"`
	Email           string    `db:"email" json:"email"`
	Phone           string    `db:"phone" json:"phone"`
	BusinessType    string    `db:"business_type" json:"business_type"`
	CompanyName     string    `db:"company_name" json:"company_name"`
	TaxID           string    `db:"tax_id" json:"tax_id"`
	BillingAddress  string    `db:"billing_address" json:"billing_address"`
	ContactPerson   string    `db:"contact_person" json:"contact_person"`
	InvoiceEmail    string    `db:"invoice_email" json:"invoice_email"`
	MapsLink        *string   `db:"maps_link" json:"maps_link"`
	AdditionalNotes *string   `db:"additional_notes" json:"additional_notes"`
	IdentityID      string    `db:"identity_id" json:"identity_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// SuperAdmin is the allowlist-derived privileged profile. It has no table;
// the fixed zero ID marks it as synthetic.
type SuperAdmin struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// UserProfile is the set of role profiles known for one identity.
// AvailableRoles lists the provisioned roles in discovery order.
type UserProfile struct {
	Customer       *Customer   `json:"customer,omitempty"`
	Organizer      *Organizer  `json:"organizer,omitempty"`
	SuperAdmin     *SuperAdmin `json:"super_admin,omitempty"`
	AvailableRoles []Role      `json:"available_roles"`
}

// Data returns the role-specific profile record, or nil when the role is not
// provisioned.
func (p *UserProfile) Data(r Role) any {
	switch r {
	case RoleClient:
		if p.Customer != nil {
			return p.Customer
		}
	case RoleOrganizer:
		if p.Organizer != nil {
			return p.Organizer
		}
	case RoleSuperAdmin:
		if p.SuperAdmin != nil {
			return p.SuperAdmin
		}
	}
	return nil
}

// HasRole reports whether r is in the available role set.
func (p *UserProfile) HasRole(r Role) bool {
	for _, have := range p.AvailableRoles {
		if have == r {
			return true
		}
	}
	return false
}

// IdentityID returns the backend identity the profile belongs to. Empty for
// the synthetic super-admin profile.
func (p *UserProfile) IdentityID() string {
	if p.Customer != nil {
		return p.Customer.IdentityID
	}
	if p.Organizer != nil {
		return p.Organizer.IdentityID
	}
	return ""
}

// Email returns the contact email of the first provisioned profile.
func (p *UserProfile) Email() string {
	switch {
	case p.Customer != nil:
		return p.Customer.Email
	case p.Organizer != nil:
		return p.Organizer.Email
	case p.SuperAdmin != nil:
		return p.SuperAdmin.Email
	}
	return ""
}
