package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// LocalVerifier accepts HS256 tokens minted by this backend, including tokens
// issued before external providers existed. It needs no network and never
// reports a transient failure.
type LocalVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewLocalVerifier creates the last-priority verifier.
func NewLocalVerifier(secret []byte, issuer string) *LocalVerifier {
	return &LocalVerifier{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// Source implements Verifier.
func (v *LocalVerifier) Source() Source { return SourceLocal }

// Verify implements Verifier.
func (v *LocalVerifier) Verify(_ context.Context, credential string) Outcome {
	if !isCompactJWS(credential) {
		return Unrecognized(errors.New("not a local session token"))
	}

	var claims SessionClaims
	_, err := v.parser.ParseWithClaims(credential, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Unrecognized(fmt.Errorf("parse local token: %w", err))
	}
	if claims.Subject == "" || claims.Email == "" {
		return Unrecognized(errors.New("local token lacks subject or email"))
	}

	return Verified(VerifiedClaim{
		Source:     SourceLocal,
		SubjectRef: claims.Subject,
		Email:      claims.Email,
	})
}
