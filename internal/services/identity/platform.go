package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zitadel/oidc/v3/pkg/client/rs"
	"github.com/zitadel/oidc/v3/pkg/oidc"
)

// Introspection is what the auth platform reports about an opaque token.
type Introspection struct {
	Active  bool
	Subject string
	Email   string
	Name    string
}

// Introspector asks the auth platform whether an opaque token is live.
// Any returned error means the platform could not answer.
type Introspector interface {
	Introspect(ctx context.Context, token string) (Introspection, error)
}

// PlatformVerifier recognizes opaque session tokens and validates them by
// introspection. Active results are cached briefly to keep per-request cost
// off the platform.
type PlatformVerifier struct {
	introspector Introspector
	prefix       string
	cache        *expirable.LRU[string, VerifiedClaim]
}

// NewPlatformVerifier creates the second-priority verifier. A zero cacheTTL
// disables caching.
func NewPlatformVerifier(introspector Introspector, prefix string, cacheSize int, cacheTTL time.Duration) *PlatformVerifier {
	v := &PlatformVerifier{introspector: introspector, prefix: prefix}
	if cacheTTL > 0 && cacheSize > 0 {
		v.cache = expirable.NewLRU[string, VerifiedClaim](cacheSize, nil, cacheTTL)
	}
	return v
}

// Source implements Verifier.
func (v *PlatformVerifier) Source() Source { return SourcePlatform }

// Verify implements Verifier.
func (v *PlatformVerifier) Verify(ctx context.Context, credential string) Outcome {
	if isCompactJWS(credential) {
		return Unrecognized(errors.New("signed token is not a platform session token"))
	}
	if v.prefix != "" && !strings.HasPrefix(credential, v.prefix) {
		return Unrecognized(errors.New("missing platform token prefix"))
	}
	if !isOpaqueTokenShape(credential) {
		return Unrecognized(errors.New("credential is not an opaque session token"))
	}

	key := cacheKey(credential)
	if v.cache != nil {
		if claim, ok := v.cache.Get(key); ok {
			return Verified(claim)
		}
	}

	result, err := v.introspector.Introspect(ctx, credential)
	if err != nil {
		return Transient(fmt.Errorf("introspect session token: %w", err))
	}
	if !result.Active {
		return Unrecognized(errors.New("session token is not active"))
	}
	if result.Subject == "" || result.Email == "" {
		return Unrecognized(errors.New("session introspection lacks subject or email"))
	}

	claim := VerifiedClaim{
		Source:      SourcePlatform,
		SubjectRef:  result.Subject,
		Email:       result.Email,
		DisplayName: result.Name,
	}
	if v.cache != nil {
		v.cache.Add(key, claim)
	}
	return Verified(claim)
}

// maxOpaqueTokenLen bounds what is sent to introspection.
const maxOpaqueTokenLen = 4096

// isOpaqueTokenShape reports whether s could be a platform session token:
// bounded length, URL-safe or base64 characters only. Other credentials are
// unrecognized without an introspection call, so they can never be transient.
func isOpaqueTokenShape(s string) bool {
	if s == "" || len(s) > maxOpaqueTokenLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.' || c == '~' || c == '+' || c == '/' || c == '=':
		default:
			return false
		}
	}
	return true
}

// cacheKey avoids holding raw bearer tokens in memory longer than needed.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ZitadelIntrospector calls the RFC 7662 introspection endpoint discovered
// from the platform issuer, authenticating with client credentials.
type ZitadelIntrospector struct {
	issuer       string
	clientID     string
	clientSecret string

	mu     sync.Mutex
	server rs.ResourceServer
}

// NewZitadelIntrospector defers discovery to the first call so the API can
// start while the platform is down.
func NewZitadelIntrospector(issuer, clientID, clientSecret string) *ZitadelIntrospector {
	return &ZitadelIntrospector{issuer: issuer, clientID: clientID, clientSecret: clientSecret}
}

// Introspect implements Introspector.
func (z *ZitadelIntrospector) Introspect(ctx context.Context, token string) (Introspection, error) {
	server, err := z.resourceServer(ctx)
	if err != nil {
		return Introspection{}, err
	}

	resp, err := rs.Introspect[*oidc.IntrospectionResponse](ctx, server, token)
	if err != nil {
		return Introspection{}, fmt.Errorf("introspection request: %w", err)
	}
	if resp == nil {
		return Introspection{}, errors.New("empty introspection response")
	}

	return Introspection{
		Active:  resp.Active,
		Subject: resp.Subject,
		Email:   resp.Email,
		Name:    resp.Name,
	}, nil
}

func (z *ZitadelIntrospector) resourceServer(ctx context.Context) (rs.ResourceServer, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.server != nil {
		return z.server, nil
	}
	server, err := rs.NewResourceServerClientCredentials(ctx, z.issuer, z.clientID, z.clientSecret)
	if err != nil {
		return nil, fmt.Errorf("discover introspection endpoint: %w", err)
	}
	z.server = server
	return server, nil
}
