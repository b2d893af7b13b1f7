package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Forbidden
// and authentication failures produce uniform denial bodies: a caller cannot
// tell "no such dashboard" apart from "dashboard you may not see". Unexpected
// errors are logged with a correlation id that is echoed to the caller.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrImmutableField):
		Problem(w, http.StatusUnprocessableEntity, "Immutable Field", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "insufficient permission")
	case errors.Is(err, shared.ErrAuthentication):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
	case errors.Is(err, shared.ErrStoreUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Unavailable", shared.UserSafeMessage(err))
	default:
		ref := uuid.NewString()
		if logger != nil {
			logger.Error("unhandled error", slog.String("correlation_id", ref), slog.Any("error", err))
		}
		JSON(w, http.StatusInternalServerError, ProblemDetail{
			Title:         "Internal Error",
			Status:        http.StatusInternalServerError,
			CorrelationID: ref,
		})
	}
}
