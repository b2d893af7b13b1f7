package authz

import (
	"log/slog"
	"net/http"

	"github.com/lumina-hr/lumina-backoffice/internal/grants"
	"github.com/lumina-hr/lumina-backoffice/internal/platform/httpx"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// Middleware wires authorization guards for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAuthenticated rejects requests that carry no resolved identity.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.IdentityFromContext(r.Context()) == nil {
			httpx.RespondError(w, m.Logger, shared.ErrAuthentication)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSuperadmin guards the registry and grant mutation surface. The
// denial is uniform so non-superadmins learn nothing about what exists
// behind the guard.
func (m Middleware) RequireSuperadmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin := shared.IdentityFromContext(r.Context())
		if admin == nil {
			httpx.RespondError(w, m.Logger, shared.ErrAuthentication)
			return
		}
		if !admin.IsSuperadmin {
			httpx.RespondError(w, m.Logger, shared.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCapability guards a feature handler with a single verb check. The
// capability is re-resolved from the stores on every request, so a revoke or
// dashboard deactivation takes effect on the very next call. The denial is
// uniform whether the feature is ungranted, unknown, or behind an inactive
// dashboard.
func (m Middleware) RequireCapability(featureID int64, verb grants.Verb) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin := shared.IdentityFromContext(r.Context())
			if admin == nil {
				httpx.RespondError(w, m.Logger, shared.ErrAuthentication)
				return
			}
			allowed, err := m.Service.CheckCapability(r.Context(), *admin, featureID, verb)
			if err != nil {
				httpx.RespondError(w, m.Logger, err)
				return
			}
			if !allowed {
				httpx.RespondError(w, m.Logger, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
