package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/crewbase/crewbase/internal/platform/service"
	"github.com/crewbase/crewbase/pkg/httpx"
	"github.com/crewbase/crewbase/pkg/slogx"
)

// writeServiceError maps service sentinels onto HTTP statuses with fixed,
// generic bodies. A missing tenant and an archived tenant produce the exact
// same bytes; so do unknown-email and wrong-password logins.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, service.ErrRefreshRejected):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "refresh token rejected")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
	case errors.Is(err, service.ErrTenantNotFound),
		errors.Is(err, service.ErrMemberNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, service.ErrLastAdmin),
		errors.Is(err, service.ErrTenantInUse),
		errors.Is(err, service.ErrSlugTaken),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrDuplicateInvite),
		errors.Is(err, service.ErrInviteNotPending):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrInvalidSlug),
		errors.Is(err, service.ErrInvalidTenantRole),
		errors.Is(err, service.ErrInvalidInvite):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}
