package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumina-hr/lumina-backoffice/internal/authz"
	"github.com/lumina-hr/lumina-backoffice/internal/grants"
	"github.com/lumina-hr/lumina-backoffice/internal/identity"
	"github.com/lumina-hr/lumina-backoffice/internal/registry"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	IdentityService *identity.Service
	IdentityHandler *identity.Handler
	RegistryHandler *registry.Handler
	GrantsHandler   *grants.Handler
	AuthzHandler    *authz.Handler
	AuthzMiddleware authz.Middleware
}

// NewRouter constructs the chi.Router. Identity resolution runs once per
// request; route groups decide how much identity they require. Registry and
// grant mutations are superadmin-only, the /me surface needs any
// authenticated admin.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(params.Config) {
		r.Use(mw)
	}
	r.Use(identity.Authenticate(params.IdentityService, params.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.IdentityHandler.MountRoutes)

	r.Route("/me", func(r chi.Router) {
		r.Use(params.AuthzMiddleware.RequireAuthenticated)
		params.AuthzHandler.MountRoutes(r)
	})

	r.Route("/registry", func(r chi.Router) {
		r.Use(params.AuthzMiddleware.RequireSuperadmin)
		params.RegistryHandler.MountRoutes(r)
	})

	r.Route("/grants", func(r chi.Router) {
		r.Use(params.AuthzMiddleware.RequireSuperadmin)
		params.GrantsHandler.MountRoutes(r)
	})

	return r
}
