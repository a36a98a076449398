package auth

import (
	"context"

	"opsdesk.org/internal/identity"
)

type identityContextKey struct{}
type tokenContextKey struct{}

// ContextWithIdentity attaches the resolved identity to the request context.
func ContextWithIdentity(ctx context.Context, ident *identity.Identity) context.Context {
	if ident == nil {
		return ctx
	}
	return context.WithValue(ctx, identityContextKey{}, ident)
}

// IdentityFromContext extracts the resolved identity, if any.
func IdentityFromContext(ctx context.Context) (*identity.Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(identityContextKey{}).(*identity.Identity)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// HasRole reports whether the context carries an identity with the role.
func HasRole(ctx context.Context, role identity.Role) bool {
	ident, ok := IdentityFromContext(ctx)
	return ok && ident.Role == role
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
