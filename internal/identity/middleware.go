package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lumina-hr/lumina-backoffice/internal/platform/httpx"
	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// Authenticate resolves the Authorization bearer token once per request and
// stores the identity in context. Requests without a valid token pass
// through unauthenticated; route-level guards decide whether that matters.
// A token store outage is not an invalid token: it surfaces as a retryable
// failure rather than silently downgrading the request to unauthenticated.
func Authenticate(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := service.ResolveIdentity(r.Context(), token)
			if err != nil {
				if errors.Is(err, shared.ErrAuthentication) {
					if logger != nil {
						logger.Debug("resolve identity", slog.Any("error", err))
					}
					next.ServeHTTP(w, r)
					return
				}
				httpx.RespondError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
