package repo

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/eventhive/ticketcore/internal/profile"
	"github.com/eventhive/ticketcore/internal/profile/entity"
	"github.com/eventhive/ticketcore/pkg/utilities"
)

// Memory is an in-memory profile.Store for demo mode and tests. It counts
// every call so tests can assert that role switching performs no storage
// round trips.
type Memory struct {
	// FailInserts makes insert calls fail, for exercising the resolver's
	// failure path.
	FailInserts error

	mu         sync.Mutex
	node       *snowflake.Node
	customers  map[string]*entity.Customer  // keyed by identity id
	organizers map[string]*entity.Organizer // keyed by identity id
	calls      int
	inserts    int
}

func NewMemory() *Memory {
	node, err := utilities.NewSnowflakeNode()
	if err != nil {
		panic(err)
	}
	return &Memory{
		node:       node,
		customers:  make(map[string]*entity.Customer),
		organizers: make(map[string]*entity.Organizer),
	}
}

func (m *Memory) CustomerByIdentity(ctx context.Context, identityID string) (*entity.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if c, ok := m.customers[identityID]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, profile.ErrNotFound
}

func (m *Memory) OrganizerByIdentity(ctx context.Context, identityID string) (*entity.Organizer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if o, ok := m.organizers[identityID]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, profile.ErrNotFound
}

func (m *Memory) InsertCustomer(ctx context.Context, identityID, email string, in profile.CustomerInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.FailInserts != nil {
		return m.FailInserts
	}
	if _, exists := m.customers[identityID]; exists {
		return profile.ErrAlreadyExists
	}
	m.inserts++
	m.customers[identityID] = &entity.Customer{
		ID:          m.node.Generate().Int64(),
		Prefix:      in.Prefix,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       email,
		Phone:       in.Phone,
		CountryCode: in.CountryCode,
		Gender:      in.Gender,
		Birthday:    in.Birthday,
		IDNumber:    in.IDNumber,
		IdentityID:  identityID,
		CreatedAt:   time.Now().UTC(),
	}
	return nil
}

func (m *Memory) InsertOrganizer(ctx context.Context, identityID, email string, in profile.OrganizerInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.FailInserts != nil {
		return m.FailInserts
	}
	if _, exists := m.organizers[identityID]; exists {
		return profile.ErrAlreadyExists
	}
	m.inserts++
	m.organizers[identityID] = &entity.Organizer{
		ID:              m.node.Generate().Int64(),
		OrganizerName:   in.OrganizerName,
		Email:           email,
		Phone:           in.Phone,
		BusinessType:    in.BusinessType,
		CompanyName:     in.CompanyName,
		TaxID:           in.TaxID,
		BillingAddress:  in.BillingAddress,
		ContactPerson:   in.ContactPerson,
		InvoiceEmail:    in.InvoiceEmail,
		MapsLink:        in.MapsLink,
		AdditionalNotes: in.AdditionalNotes,
		IdentityID:      identityID,
		CreatedAt:       time.Now().UTC(),
	}
	return nil
}

// Calls returns how many store operations have run.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Inserts returns how many rows have been created.
func (m *Memory) Inserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}
