package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/crewbase/crewbase/pkg/jwtx"
	"github.com/crewbase/crewbase/pkg/slogx"
)

// AccessVerifier validates an access token and yields the identity it
// asserts. Satisfied by *jwtx.Codec.
type AccessVerifier interface {
	VerifyAccess(token string) (jwtx.AccessIdentity, error)
}

// AuthnMiddleware authenticates the bearer access token and injects the
// caller's identity into the request context. It asserts nothing about
// tenants or roles; those gates run later in the pipeline against live data.
func AuthnMiddleware(v AccessVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			id, err := v.VerifyAccess(raw)
			if err != nil {
				log.Warn("access token verification failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx := context.WithValue(r.Context(), CtxKeyUserID, id.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
