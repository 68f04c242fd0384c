// Package http wires the platform's HTTP surface: session endpoints,
// tenant administration, membership and invite management, and the
// operational endpoints.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crewbase/crewbase/internal/platform/metrics"
	"github.com/crewbase/crewbase/internal/platform/service"
	"github.com/crewbase/crewbase/internal/platform/store"
	"github.com/crewbase/crewbase/pkg/httpx"
	"github.com/crewbase/crewbase/pkg/jwtx"
	"github.com/crewbase/crewbase/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec         *jwtx.Codec
	buildVersion  string
	startTime     time.Time
	logger        *slog.Logger
	metrics       *metrics.Metrics
	secureCookies bool

	store store.Store

	UserService       *service.UserService
	SessionService    *service.SessionService
	TenantService     *service.TenantService
	MembershipService *service.MembershipService
	InviteService     *service.InviteService
}

func NewRouter(
	codec *jwtx.Codec,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	m *metrics.Metrics,
	secureCookies bool,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		codec:         codec,
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		logger:        logger,
		metrics:       m,
		secureCookies: secureCookies,
		store:         st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		m.HTTPMiddleware,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTenants()
	r.registerMembers()
	r.registerInvites()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Users:         r.UserService,
		Sessions:      r.SessionService,
		AccessTTL:     r.codec.AccessTTL,
		RefreshTTL:    r.codec.RefreshTTL,
		SecureCookies: r.secureCookies,
	}

	// Credential endpoints get the strict profile: they are the brute
	// force surface.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.Register), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.Login), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.Refresh), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/logout", http.HandlerFunc(h.Logout))
}

func (r *Router) registerTenants() {
	h := &TenantHandler{
		Users:   r.UserService,
		Tenants: r.TenantService,
		Members: r.MembershipService,
	}

	authn := httpx.AuthnMiddleware(r.codec)

	r.Mux.Handle("POST /v1/tenants",
		httpx.Chain(http.HandlerFunc(h.Create), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("POST /v1/tenants/{tenant}/archive",
		httpx.Chain(http.HandlerFunc(h.Archive), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("GET /v1/tenants/{tenant}",
		httpx.Chain(http.HandlerFunc(h.Get), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
}

func (r *Router) registerMembers() {
	h := &MemberHandler{
		Tenants: r.TenantService,
		Members: r.MembershipService,
	}

	authn := httpx.AuthnMiddleware(r.codec)

	r.Mux.Handle("GET /v1/tenants/{tenant}/members",
		httpx.Chain(http.HandlerFunc(h.List), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("PUT /v1/tenants/{tenant}/members/{user}",
		httpx.Chain(http.HandlerFunc(h.SetRole), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("DELETE /v1/tenants/{tenant}/members/{user}",
		httpx.Chain(http.HandlerFunc(h.Remove), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("POST /v1/tenants/{tenant}/members/{user}/restore",
		httpx.Chain(http.HandlerFunc(h.Restore), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
}

func (r *Router) registerInvites() {
	h := &InviteHandler{
		Users:   r.UserService,
		Tenants: r.TenantService,
		Members: r.MembershipService,
		Invites: r.InviteService,
	}

	authn := httpx.AuthnMiddleware(r.codec)

	r.Mux.Handle("POST /v1/tenants/{tenant}/invites",
		httpx.Chain(http.HandlerFunc(h.Create), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("GET /v1/tenants/{tenant}/invites",
		httpx.Chain(http.HandlerFunc(h.List), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("DELETE /v1/tenants/{tenant}/invites/{id}",
		httpx.Chain(http.HandlerFunc(h.Revoke), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))

	// Accepting only needs authentication; membership is what acceptance
	// creates.
	r.Mux.Handle("POST /v1/tenants/{tenant}/invites/accept",
		httpx.Chain(http.HandlerFunc(h.Accept), authn, httpx.RateLimitByUser(httpx.StrictLimit)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
