package shared

import "context"

// Identity describes the authenticated admin as seen by this core. It is
// produced by the identity collaborator and referenced, never mutated, here.
type Identity struct {
	ID           int64
	Username     string
	Email        string
	IsSuperadmin bool
}

type identityContextKey struct{}

// ContextWithIdentity stores the resolved admin identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the admin identity from context, nil when the
// request never passed authentication.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
