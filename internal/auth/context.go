package auth

import (
	"context"

	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
)

type principalContextKey struct{}

// SetPrincipalContext stores the bound principal on the context for
// downstream handlers. Handlers read it and never re-run resolution.
func SetPrincipalContext(ctx context.Context, principal *identity.BoundPrincipal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// GetPrincipalFromContext retrieves the bound principal from the context.
func GetPrincipalFromContext(ctx context.Context) (*identity.BoundPrincipal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(*identity.BoundPrincipal)
	return principal, ok && principal != nil
}
