package profile

import (
	"context"
	"errors"

	"github.com/eventhive/ticketcore/internal/profile/entity"
)

var (
	// ErrNotFound is returned by lookups when no profile row exists for the
	// identity.
	ErrNotFound = errors.New("profile not found")

	// ErrAlreadyExists is returned by inserts when a profile row for the
	// identity already exists (one profile per role per identity).
	ErrAlreadyExists = errors.New("profile already exists")
)

// CustomerInput carries the fields needed to create a customer profile.
type CustomerInput struct {
	Prefix      string `json:"prefix"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	CountryCode string `json:"country_code"`
	Gender      string `json:"gender"`
	Birthday    string `json:"birthday"`
	IDNumber    string `json:"id_number"`
}

// OrganizerInput carries the fields needed to create an organizer profile.
type OrganizerInput struct {
	OrganizerName   string  `json:"organizer_name"`
	Phone           string  `json:"phone"`
	BusinessType    string  `json:"business_type"`
	CompanyName     string  `json:"company_name"`
	TaxID           string  `json:"tax_id"`
	BillingAddress  string  `json:"billing_address"`
	ContactPerson   string  `json:"contact_person"`
	InvoiceEmail    string  `json:"invoice_email"`
	MapsLink        *string `json:"maps_link"`
	AdditionalNotes *string `json:"additional_notes"`
}

// Store abstracts the two profile tables. Implementations: Postgres (repo
// package) and an in-memory fake for tests and demo mode.
type Store interface {
	CustomerByIdentity(ctx context.Context, identityID string) (*entity.Customer, error)
	OrganizerByIdentity(ctx context.Context, identityID string) (*entity.Organizer, error)
	InsertCustomer(ctx context.Context, identityID, email string, in CustomerInput) error
	InsertOrganizer(ctx context.Context, identityID, email string, in OrganizerInput) error
}

// StageCustomer converts registration fields into staged signup metadata for
// the identity record. The resolver drains these keys on first login.
func StageCustomer(in CustomerInput) map[string]any {
	return map[string]any{
		"prefix":       in.Prefix,
		"first_name":   in.FirstName,
		"last_name":    in.LastName,
		"phone":        in.Phone,
		"country_code": in.CountryCode,
		"gender":       in.Gender,
		"birthday":     in.Birthday,
		"id_number":    in.IDNumber,
	}
}

// StageOrganizer converts registration fields into staged signup metadata.
func StageOrganizer(in OrganizerInput) map[string]any {
	m := map[string]any{
		"organizer_name":  in.OrganizerName,
		"phone":           in.Phone,
		"business_type":   in.BusinessType,
		"company_name":    in.CompanyName,
		"tax_id":          in.TaxID,
		"billing_address": in.BillingAddress,
		"contact_person":  in.ContactPerson,
		"invoice_email":   in.InvoiceEmail,
	}
	if in.MapsLink != nil {
		m["maps_link"] = *in.MapsLink
	}
	if in.AdditionalNotes != nil {
		m["additional_notes"] = *in.AdditionalNotes
	}
	return m
}
