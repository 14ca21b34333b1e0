package identity

import (
	"context"
	"fmt"

	"github.com/xenitab/go-oidc-middleware/oidctoken"
	"github.com/xenitab/go-oidc-middleware/options"
)

// OIDCTokenVerifier verifies tokens from any OIDC issuer using discovery and
// the issuer's JWKS.
type OIDCTokenVerifier struct {
	handler *oidctoken.TokenHandler[map[string]any]
}

// NewOIDCTokenVerifier builds a verifier requiring the given audience.
// Keys are loaded lazily so startup does not depend on the issuer being up.
func NewOIDCTokenVerifier(issuer, audience string) (*OIDCTokenVerifier, error) {
	handler, err := oidctoken.New[map[string]any](nil,
		options.WithIssuer(issuer),
		options.WithRequiredAudience(audience),
		options.WithLazyLoadJwks(true),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize oidc token handler: %w", err)
	}
	return &OIDCTokenVerifier{handler: handler}, nil
}

// VerifyToken implements TokenVerifier.
func (o *OIDCTokenVerifier) VerifyToken(ctx context.Context, token string) (map[string]any, error) {
	return o.handler.ParseToken(ctx, token)
}

// IsTransient implements TokenVerifier. The handler does not type its errors;
// network and deadline failures are caught by the generic classification.
func (o *OIDCTokenVerifier) IsTransient(error) bool {
	return false
}
