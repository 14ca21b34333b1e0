package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the payload of a bearer token minted by SessionIssuer.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// BearerToken is returned to clients after login or token exchange.
type BearerToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionIssuer mints HS256 bearer tokens for bound principals. The tokens it
// mints are the ones LocalVerifier accepts.
type SessionIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer creates an issuer. ttl is the token lifetime.
func NewSessionIssuer(secret []byte, issuer string, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token whose subject is the principal id.
func (s *SessionIssuer) Issue(bound *BoundPrincipal) (BearerToken, error) {
	if bound == nil || bound.Principal == nil {
		return BearerToken{}, errors.New("issue session: no principal")
	}

	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)
	claims := SessionClaims{
		Email: bound.Principal.Email,
		Role:  string(bound.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   bound.Principal.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return BearerToken{}, fmt.Errorf("sign session token: %w", err)
	}
	return BearerToken{Token: signed, ExpiresAt: expiresAt}, nil
}
