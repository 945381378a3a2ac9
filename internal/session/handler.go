package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/eventhive/ticketcore/internal/identity"
	"github.com/eventhive/ticketcore/internal/profile"
	"github.com/eventhive/ticketcore/internal/profile/entity"
)

// Handler exposes the session manager to UI collaborators over HTTP.
type Handler struct {
	mgr    *Manager
	modal  *Modal
	logger *zap.SugaredLogger
}

func NewHandler(mgr *Manager, modal *Modal, logger *zap.SugaredLogger) *Handler {
	return &Handler{mgr: mgr, modal: modal, logger: logger}
}

// LoginRequest is the password sign-in payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.mgr.Login(r.Context(), req.Email, req.Password); err != nil {
		h.logger.Debugw("login failed", "email", req.Email, "err", err)
		h.writeJSON(w, identityStatus(err), map[string]string{"error": err.Error()})
		return
	}
	h.writeMe(w, http.StatusOK)
}

// RegisterRequest is the sign-up payload. Role decides which field set is
// consulted.
type RegisterRequest struct {
	Role      entity.Role            `json:"role"`
	Email     string                 `json:"email"`
	Password  string                 `json:"password"`
	Customer  profile.CustomerInput  `json:"customer"`
	Organizer profile.OrganizerInput `json:"organizer"`
}

// RegisterResponse reports whether email confirmation is pending.
type RegisterResponse struct {
	NeedsConfirmation bool `json:"needs_confirmation"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	needsConfirmation, err := h.mgr.Register(r.Context(), Registration{
		Role:      req.Role,
		Email:     req.Email,
		Password:  req.Password,
		Customer:  req.Customer,
		Organizer: req.Organizer,
	})
	if err != nil {
		h.logger.Debugw("registration failed", "email", req.Email, "role", req.Role, "err", err)
		h.writeJSON(w, identityStatus(err), map[string]string{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusCreated, RegisterResponse{NeedsConfirmation: needsConfirmation})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.mgr.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// RoleRequest selects a role for switch and carries the profile fields for
// add.
type RoleRequest struct {
	Role      entity.Role            `json:"role"`
	Customer  profile.CustomerInput  `json:"customer"`
	Organizer profile.OrganizerInput `json:"organizer"`
}

func (h *Handler) SwitchRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.mgr.SwitchRole(req.Role); err != nil {
		h.writeJSON(w, roleStatus(err), map[string]string{"error": err.Error()})
		return
	}
	h.writeMe(w, http.StatusOK)
}

func (h *Handler) AddRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	err := h.mgr.AddRole(r.Context(), RoleGrant{
		Role:      req.Role,
		Customer:  req.Customer,
		Organizer: req.Organizer,
	})
	if err != nil {
		h.logger.Debugw("add role failed", "role", req.Role, "err", err)
		h.writeJSON(w, roleStatus(err), map[string]string{"error": err.Error()})
		return
	}
	h.writeMe(w, http.StatusOK)
}

// MeResponse is the UI-facing session view.
type MeResponse struct {
	State string    `json:"state"`
	User  *userView `json:"user"`
}

type userView struct {
	CurrentRole    entity.Role   `json:"current_role"`
	AvailableRoles []entity.Role `json:"available_roles"`
	Data           any           `json:"data"`
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	h.writeMe(w, http.StatusOK)
}

// ModalState reports and mutates the auth-modal view state.
func (h *Handler) ModalState(w http.ResponseWriter, r *http.Request) {
	open, tab, role := h.modal.State()
	h.writeJSON(w, http.StatusOK, map[string]any{"open": open, "tab": tab, "role": role})
}

type modalRequest struct {
	Open bool        `json:"open"`
	Tab  ModalTab    `json:"tab"`
	Role entity.Role `json:"role"`
}

func (h *Handler) SetModal(w http.ResponseWriter, r *http.Request) {
	var req modalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if req.Open {
		h.modal.Open(req.Tab, req.Role)
	} else {
		h.modal.Close()
	}
	h.ModalState(w, r)
}

func (h *Handler) writeMe(w http.ResponseWriter, status int) {
	snap := h.mgr.Current()
	resp := MeResponse{State: snap.State.String()}
	if snap.User != nil {
		resp.User = &userView{
			CurrentRole:    snap.User.CurrentRole,
			AvailableRoles: snap.User.Profile.AvailableRoles,
			Data:           snap.User.Data(),
		}
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// identityStatus maps provider sentinels onto HTTP statuses without
// rewording the messages.
func identityStatus(err error) int {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrEmailNotConfirmed):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, ErrRoleUnavailable):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func roleStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRoleExists):
		return http.StatusConflict
	case errors.Is(err, ErrRoleUnavailable):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
