package auth

import "context"

// Identity is the acting user attached to a request context.
type Identity struct {
	UserID string
	Name   string
	Guest  bool
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored in ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// FromClaims maps verified token claims to an Identity.
func FromClaims(claims Claims) Identity {
	return Identity{UserID: claims.Sub, Name: claims.Name, Guest: claims.Guest}
}
