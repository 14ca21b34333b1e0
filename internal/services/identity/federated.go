package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	josejwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/mitchellh/mapstructure"
)

// TokenVerifier checks an identity token against the issuer's published
// signing keys and returns its claims.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (map[string]any, error)
	// IsTransient reports whether err means the keys could not be fetched.
	IsTransient(err error) bool
}

// asymmetricAlgorithms are the signature algorithms a federated token may use.
// HS* is excluded so local tokens never match this provider's shape.
var asymmetricAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.PS384, jose.PS512,
}

// FederatedVerifier recognizes asymmetrically signed JWTs from one issuer and
// requires a verified email claim.
type FederatedVerifier struct {
	issuer  string
	backend TokenVerifier
}

// NewFederatedVerifier creates the first-priority verifier.
func NewFederatedVerifier(issuer string, backend TokenVerifier) *FederatedVerifier {
	return &FederatedVerifier{issuer: issuer, backend: backend}
}

// Source implements Verifier.
func (v *FederatedVerifier) Source() Source { return SourceFederated }

// Verify implements Verifier.
func (v *FederatedVerifier) Verify(ctx context.Context, credential string) Outcome {
	if !v.recognizes(credential) {
		return Unrecognized(errors.New("not a federated identity token"))
	}

	raw, err := v.backend.VerifyToken(ctx, credential)
	if err != nil {
		if v.backend.IsTransient(err) || isTransientError(err) {
			return Transient(err)
		}
		return Unrecognized(fmt.Errorf("verify identity token: %w", err))
	}

	claims, err := decodeFederatedClaims(raw)
	if err != nil {
		return Unrecognized(err)
	}
	switch {
	case claims.Subject == "":
		return Unrecognized(errors.New("identity token has no subject"))
	case claims.Email == "":
		return Unrecognized(errors.New("identity token has no email"))
	case !claims.EmailVerified:
		return Unrecognized(errors.New("identity token email is not verified"))
	}

	return Verified(VerifiedClaim{
		Source:      SourceFederated,
		SubjectRef:  claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
	})
}

// recognizes inspects the unverified header and issuer only.
func (v *FederatedVerifier) recognizes(credential string) bool {
	if !isCompactJWS(credential) {
		return false
	}
	tok, err := josejwt.ParseSigned(credential, asymmetricAlgorithms)
	if err != nil {
		return false
	}
	var registered josejwt.Claims
	if err := tok.UnsafeClaimsWithoutVerification(&registered); err != nil {
		return false
	}
	return registered.Issuer == v.issuer
}

type federatedClaims struct {
	Subject       string `mapstructure:"sub"`
	Email         string `mapstructure:"email"`
	EmailVerified bool   `mapstructure:"email_verified"`
	Name          string `mapstructure:"name"`
}

func decodeFederatedClaims(raw map[string]any) (federatedClaims, error) {
	var c federatedClaims
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &c,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return c, fmt.Errorf("build claims decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return c, fmt.Errorf("decode identity token claims: %w", err)
	}
	return c, nil
}
