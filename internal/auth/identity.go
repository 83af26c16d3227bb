package auth

import "context"

// Identity is the requester resolved from a bearer token. The zero value is
// an anonymous requester.
type Identity struct {
	UserID        string
	Email         string
	Name          string
	Role          string
	Authenticated bool
}

func (i Identity) String() string {
	if !i.Authenticated {
		return "anonymous"
	}
	if i.Email != "" {
		return i.Email
	}
	return i.UserID
}

type identityKey struct{}

// WithIdentity attaches the requester identity to the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the requester identity, anonymous when absent.
func IdentityFromContext(ctx context.Context) Identity {
	if identity, ok := ctx.Value(identityKey{}).(Identity); ok {
		return identity
	}
	return Identity{}
}
