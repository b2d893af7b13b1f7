package shared

import "errors"

var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrImmutableField indicates an attempt to change a write-once field.
	ErrImmutableField = errors.New("immutable field")
	// ErrValidation indicates a grant profile that violates an invariant.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates an authorization denial. Callers must not be able
	// to distinguish it from a nonexistent resource.
	ErrForbidden = errors.New("forbidden")
	// ErrStoreUnavailable indicates a transient storage failure. This is the
	// only retryable condition; retrying is the caller's responsibility.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrAuthentication indicates bearer-token resolution failed.
	ErrAuthentication = errors.New("authentication failed")
)

// UserSafeMessage returns a message suitable for external callers. Denials and
// validation failures carry their own text; everything else collapses to a
// generic message so internal detail never leaks.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "resource not found"
	case errors.Is(err, ErrConflict):
		return "resource already exists"
	case errors.Is(err, ErrImmutableField):
		return "field cannot be changed"
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrAuthentication):
		return "insufficient permission"
	case errors.Is(err, ErrStoreUnavailable):
		return "temporarily unavailable, retry later"
	default:
		return "internal error"
	}
}
