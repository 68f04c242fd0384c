package http

import (
	"encoding/json"
	"net/http"

	"github.com/crewbase/crewbase/internal/platform/domain"
	"github.com/crewbase/crewbase/internal/platform/service"
	"github.com/crewbase/crewbase/pkg/httpx"
)

// MemberHandler serves tenant membership administration. Every endpoint
// resolves the tenant first and gates on a live tenantAdmin membership.
type MemberHandler struct {
	Tenants *service.TenantService
	Members *service.MembershipService
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// requireTenantAdmin resolves the slug and checks the caller's admin
// membership against live data.
func (h *MemberHandler) requireTenantAdmin(w http.ResponseWriter, r *http.Request) (domain.Tenant, string, bool) {
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

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, _, ok := h.requireTenantAdmin(w, r)
	if !ok {
		return
	}

	members, err := h.Members.List(r.Context(), tenant.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (h *MemberHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	tenant, actorID, ok := h.requireTenantAdmin(w, r)
	if !ok {
		return
	}

	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	err := h.Members.SetRole(r.Context(), tenant.ID, r.PathValue("user"), domain.TenantRole(req.Role), actorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	tenant, actorID, ok := h.requireTenantAdmin(w, r)
	if !ok {
		return
	}

	if err := h.Members.Remove(r.Context(), tenant.ID, r.PathValue("user"), actorID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Restore re-activates a previously removed member with their old role.
func (h *MemberHandler) Restore(w http.ResponseWriter, r *http.Request) {
	tenant, actorID, ok := h.requireTenantAdmin(w, r)
	if !ok {
		return
	}

	if err := h.Members.Restore(r.Context(), tenant.ID, r.PathValue("user"), actorID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
