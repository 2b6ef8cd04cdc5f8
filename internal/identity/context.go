package identity

import "context"

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

type principalIDContextKey struct{}

// ContextWithPrincipalID stores the authenticated principal id in context.
// The transport layer sets this; the dispatcher resolves it into a Principal.
func ContextWithPrincipalID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, principalIDContextKey{}, id)
}

// PrincipalIDFromContext extracts the authenticated principal id.
func PrincipalIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(principalIDContextKey{}).(int64)
	return id, ok
}
