package session

import (
	"sync"

	"github.com/eventhive/ticketcore/internal/profile/entity"
)

// ModalTab selects which form the auth modal shows.
type ModalTab string

const (
	TabLogin    ModalTab = "login"
	TabRegister ModalTab = "register"
)

// Modal is the auth-modal presentation state: open/closed, active tab and
// the default role for the register form. It lives next to the Manager
// because the UI treats them as one context, but it is plain view state and
// touches nothing else.
type Modal struct {
	mu   sync.Mutex
	open bool
	tab  ModalTab
	role entity.Role
}

func NewModal() *Modal {
	return &Modal{tab: TabLogin, role: entity.RoleClient}
}

// Open shows the modal on the given tab with the given default role.
func (m *Modal) Open(tab ModalTab, role entity.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tab == TabLogin || tab == TabRegister {
		m.tab = tab
	}
	if role != "" {
		m.role = role
	}
	m.open = true
}

func (m *Modal) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
}

// SetTab switches the visible tab while the modal is open.
func (m *Modal) SetTab(tab ModalTab) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tab == TabLogin || tab == TabRegister {
		m.tab = tab
	}
}

// State returns the current modal state.
func (m *Modal) State() (open bool, tab ModalTab, role entity.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open, m.tab, m.role
}
