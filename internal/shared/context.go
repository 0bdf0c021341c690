package shared

import "context"

// Principal describes the authenticated actor attached to a request.
// LocalID is zero when the external identity has no local mapping yet.
type Principal struct {
	LocalID    int64
	ExternalID string
}

// HasLocalID reports whether the principal resolved to a local account.
func (p Principal) HasLocalID() bool {
	return p.LocalID > 0
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
