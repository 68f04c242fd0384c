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

// TenantHandler serves tenant provisioning, archival and resolution.
type TenantHandler struct {
	Users   *service.UserService
	Tenants *service.TenantService
	Members *service.MembershipService
}

type createTenantRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type tenantResponse struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toTenantResponse(t domain.Tenant) tenantResponse {
	return tenantResponse{ID: t.ID, Slug: t.Slug, Name: t.Name, CreatedAt: t.CreatedAt}
}

// requirePlatformAdmin reads the caller's platform role live from storage.
// Tokens carry identity only, so a role change is effective immediately.
func (h *TenantHandler) requirePlatformAdmin(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	user, err := h.Users.GetByID(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		// A valid token whose subject no longer exists is just forbidden.
		if errors.Is(err, store.ErrNotFound) {
			err = service.ErrForbidden
		}
		writeServiceError(w, r, err)
		return domain.User{}, false
	}
	if user.PlatformRole != domain.PlatformRoleAdmin {
		writeServiceError(w, r, service.ErrForbidden)
		return domain.User{}, false
	}
	return user, true
}

func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requirePlatformAdmin(w, r)
	if !ok {
		return
	}

	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	tenant, err := h.Tenants.Create(r.Context(), req.Slug, req.Name, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toTenantResponse(tenant))
}

func (h *TenantHandler) Archive(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requirePlatformAdmin(w, r)
	if !ok {
		return
	}

	tenant, err := h.Tenants.ResolveSlug(r.Context(), r.PathValue("tenant"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.Tenants.Archive(r.Context(), tenant.ID, user.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get resolves a tenant for one of its members. Non-members of a live
// tenant get 403; archived and unknown slugs both get 404.
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.Tenants.ResolveSlug(r.Context(), r.PathValue("tenant"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if _, err := h.Members.Require(r.Context(), tenant.ID, httpx.UserIDFromContext(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toTenantResponse(tenant))
}
