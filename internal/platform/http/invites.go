package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/crewbase/crewbase/internal/platform/domain"
	"github.com/crewbase/crewbase/internal/platform/service"
	"github.com/crewbase/crewbase/internal/platform/store"
	"github.com/crewbase/crewbase/pkg/httpx"
)

// InviteHandler serves the tenant invite lifecycle.
type InviteHandler struct {
	Users   *service.UserService
	Tenants *service.TenantService
	Members *service.MembershipService
	Invites *service.InviteService
}

type createInviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type acceptInviteRequest struct {
	Token string `json:"token"`
}

type inviteResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`

	// Token is only present in the creation response. It is not
	// recoverable afterwards.
	Token string `json:"token,omitempty"`
}

func toInviteResponse(inv domain.Invite) inviteResponse {
	return inviteResponse{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      string(inv.Role),
		Status:    string(inv.Status),
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
	}
}

func (h *InviteHandler) requireTenantAdmin(w http.ResponseWriter, r *http.Request) (domain.Tenant, string, bool) {
	tenant, err := h.Tenants.ResolveSlug(r.Context(), r.PathValue("tenant"))
	if err != nil {
		writeServiceError(w, r, err)
		return domain.Tenant{}, "", false
	}

	actorID := httpx.UserIDFromContext(r.Context())
	if _, err := h.Members.RequireAdmin(r.Context(), tenant.ID, actorID); err != nil {
		writeServiceError(w, r, err)
		return domain.Tenant{}, "", false
	}

	return tenant, actorID, true
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, actorID, ok := h.requireTenantAdmin(w, r)
	if !ok {
		return
	}

	var req createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	invite, token, err := h.Invites.Create(r.Context(), tenant.ID, actorID, req.Email, domain.TenantRole(req.Role))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := toInviteResponse(invite)
	resp.Token = token
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, _, ok := h.requireTenantAdmin(w, r)
	if !ok {
		return
	}

	filter := store.InviteFilter{
		Email: r.URL.Query().Get("email"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = domain.InviteStatus(s)
	}

	invites, err := h.Invites.List(r.Context(), tenant.ID, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]inviteResponse, 0, len(invites))
	for _, inv := range invites {
		out = append(out, toInviteResponse(inv))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"invites": out})
}

func (h *InviteHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	tenant, actorID, ok := h.requireTenantAdmin(w, r)
	if !ok {
		return
	}

	if err := h.Invites.Revoke(r.Context(), tenant.ID, r.PathValue("id"), actorID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Accept redeems an invite token for the authenticated caller. No
// membership gate: acceptance is how the membership comes to exist.
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.Tenants.ResolveSlug(r.Context(), r.PathValue("tenant"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req acceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	user, err := h.Users.GetByID(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = service.ErrForbidden
		}
		writeServiceError(w, r, err)
		return
	}

	if err := h.Invites.Accept(r.Context(), tenant.ID, req.Token, user); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
