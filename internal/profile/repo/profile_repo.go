package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eventhive/ticketcore/internal/profile"
	"github.com/eventhive/ticketcore/internal/profile/entity"
)

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// Repo provides data access for the customers and organizers tables using
// sqlx. The backend's row-level policies own authorization; this layer only
// shapes queries.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo { return &Repo{db: db} }

// EnsureTables creates both profile tables if they do not exist (idempotent).
// Convenience for early development; prefer migrations in production.
func (r *Repo) EnsureTables(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS customers (
  id BIGSERIAL PRIMARY KEY,
  prefix TEXT NOT NULL DEFAULT '',
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  country_code TEXT NOT NULL DEFAULT '',
  gender TEXT NOT NULL DEFAULT '',
  birthday TEXT NOT NULL DEFAULT '',
  id_number TEXT NOT NULL DEFAULT '',
  identity_id TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_identity_id ON customers(identity_id);

CREATE TABLE IF NOT EXISTS organizers (
  id BIGSERIAL PRIMARY KEY,
  organizer_name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  business_type TEXT NOT NULL DEFAULT '',
  company_name TEXT NOT NULL DEFAULT '',
  tax_id TEXT NOT NULL DEFAULT '',
  billing_address TEXT NOT NULL DEFAULT '',
  contact_person TEXT NOT NULL DEFAULT '',
  invoice_email TEXT NOT NULL DEFAULT '',
  maps_link TEXT,
  additional_notes TEXT,
  identity_id TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_organizers_identity_id ON organizers(identity_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// CustomerByIdentity returns the customer profile for an identity or
// profile.ErrNotFound.
func (r *Repo) CustomerByIdentity(ctx context.Context, identityID string) (*entity.Customer, error) {
	const q = `SELECT id, prefix, first_name, last_name, email, phone, country_code,
		gender, birthday, id_number, identity_id, created_at
	  FROM customers WHERE identity_id=$1`
	var row entity.Customer
	if err := r.db.GetContext(ctx, &row, q, identityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// OrganizerByIdentity returns the organizer profile for an identity or
// profile.ErrNotFound.
func (r *Repo) OrganizerByIdentity(ctx context.Context, identityID string) (*entity.Organizer, error) {
	const q = `SELECT id, organizer_name, email, phone, business_type, company_name,
		tax_id, billing_address, contact_person, invoice_email, maps_link,
		additional_notes, identity_id, created_at
	  FROM organizers WHERE identity_id=$1`
	var row entity.Organizer
	if err := r.db.GetContext(ctx, &row, q, identityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// InsertCustomer creates the customer row for an identity. The unique index
// on identity_id enforces the one-profile-per-role invariant; violations map
// to profile.ErrAlreadyExists.
func (r *Repo) InsertCustomer(ctx context.Context, identityID, email string, in profile.CustomerInput) error {
	const q = `INSERT INTO customers
		(prefix, first_name, last_name, email, phone, country_code, gender, birthday, id_number, identity_id)
	  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.db.ExecContext(ctx, q,
		in.Prefix, in.FirstName, in.LastName, email, in.Phone,
		in.CountryCode, in.Gender, in.Birthday, in.IDNumber, identityID,
	)
	return translateInsertErr(err)
}

// InsertOrganizer creates the organizer row for an identity.
func (r *Repo) InsertOrganizer(ctx context.Context, identityID, email string, in profile.OrganizerInput) error {
	const q = `INSERT INTO organizers
		(organizer_name, email, phone, business_type, company_name, tax_id,
		 billing_address, contact_person, invoice_email, maps_link, additional_notes, identity_id)
	  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.db.ExecContext(ctx, q,
		in.OrganizerName, email, in.Phone, in.BusinessType, in.CompanyName,
		in.TaxID, in.BillingAddress, in.ContactPerson, in.InvoiceEmail,
		in.MapsLink, in.AdditionalNotes, identityID,
	)
	return translateInsertErr(err)
}

func translateInsertErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return profile.ErrAlreadyExists
	}
	return err
}
