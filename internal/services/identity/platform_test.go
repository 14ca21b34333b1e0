package identity

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIntrospector struct {
	result Introspection
	err    error
	calls  atomic.Int32
}

func (f *fakeIntrospector) Introspect(context.Context, string) (Introspection, error) {
	f.calls.Add(1)
	return f.result, f.err
}

func TestPlatformVerifier_Active(t *testing.T) {
	intro := &fakeIntrospector{result: Introspection{
		Active: true, Subject: "usr_1", Email: "carol@example.com", Name: "Carol",
	}}
	v := NewPlatformVerifier(intro, "sess_", 16, time.Minute)

	out := v.Verify(context.Background(), "sess_abc")
	require.Equal(t, OutcomeVerified, out.Kind)
	assert.Equal(t, SourcePlatform, out.Claim.Source)
	assert.Equal(t, "usr_1", out.Claim.SubjectRef)
	assert.Equal(t, "Carol", out.Claim.DisplayName)

	out = v.Verify(context.Background(), "sess_abc")
	require.Equal(t, OutcomeVerified, out.Kind)
	assert.EqualValues(t, 1, intro.calls.Load(), "second call should hit the cache")
}

func TestPlatformVerifier_CacheDisabled(t *testing.T) {
	intro := &fakeIntrospector{result: Introspection{Active: true, Subject: "usr_1", Email: "c@example.com"}}
	v := NewPlatformVerifier(intro, "", 16, 0)

	v.Verify(context.Background(), "opaque")
	v.Verify(context.Background(), "opaque")
	assert.EqualValues(t, 2, intro.calls.Load())
}

func TestPlatformVerifier_ShapeMismatch(t *testing.T) {
	intro := &fakeIntrospector{}
	v := NewPlatformVerifier(intro, "sess_", 16, time.Minute)

	assert.Equal(t, OutcomeUnrecognized, v.Verify(context.Background(), "header.payload.signature").Kind)
	assert.Equal(t, OutcomeUnrecognized, v.Verify(context.Background(), "tok_without_prefix").Kind)
	assert.Zero(t, intro.calls.Load())
}

func TestPlatformVerifier_Inactive(t *testing.T) {
	intro := &fakeIntrospector{result: Introspection{Active: false}}
	v := NewPlatformVerifier(intro, "", 16, time.Minute)

	assert.Equal(t, OutcomeUnrecognized, v.Verify(context.Background(), "revoked").Kind)
	assert.Equal(t, OutcomeUnrecognized, v.Verify(context.Background(), "revoked").Kind)
	assert.EqualValues(t, 2, intro.calls.Load(), "negative results are not cached")
}

func TestPlatformVerifier_MissingEmail(t *testing.T) {
	intro := &fakeIntrospector{result: Introspection{Active: true, Subject: "usr_1"}}
	v := NewPlatformVerifier(intro, "", 16, time.Minute)

	assert.Equal(t, OutcomeUnrecognized, v.Verify(context.Background(), "opaque").Kind)
}

func TestPlatformVerifier_IntrospectionErrorIsTransient(t *testing.T) {
	intro := &fakeIntrospector{err: errors.New("503 from platform")}
	v := NewPlatformVerifier(intro, "", 16, time.Minute)

	out := v.Verify(context.Background(), "opaque")
	assert.Equal(t, OutcomeTransient, out.Kind)
	assert.Error(t, out.Reason)
}

func TestPlatformVerifier_MalformedCredentialSkipsIntrospection(t *testing.T) {
	intro := &fakeIntrospector{err: errors.New("dial tcp: connection refused")}
	v := NewPlatformVerifier(intro, "", 16, time.Minute)

	for _, cred := range []string{
		"%%%not-a-token%%%",
		"has spaces inside",
		"quote\"d",
		strings.Repeat("a", maxOpaqueTokenLen+1),
	} {
		assert.Equal(t, OutcomeUnrecognized, v.Verify(context.Background(), cred).Kind, cred)
	}
	assert.Zero(t, intro.calls.Load())
}

func TestChain_PlatformDownMalformedCredentialIsInvalid(t *testing.T) {
	intro := &fakeIntrospector{err: errors.New("dial tcp: connection refused")}
	chain := NewChain(time.Second, quietLogger(),
		NewPlatformVerifier(intro, "", 16, time.Minute),
		NewLocalVerifier(testSessionSecret, "shieldhire"),
	)

	_, err := chain.Verify(context.Background(), "%%%not-a-token%%%")
	require.ErrorIs(t, err, ErrInvalidCredential)
	assert.NotErrorIs(t, err, ErrProviderUnavailable)
	assert.Zero(t, intro.calls.Load())

	_, err = chain.Verify(context.Background(), "wellformedopaquetoken")
	assert.ErrorIs(t, err, ErrProviderUnavailable, "a well-formed token still reports the outage")
}

func TestIsOpaqueTokenShape(t *testing.T) {
	assert.True(t, isOpaqueTokenShape("sess_AbC-123~x+y/z="))
	assert.False(t, isOpaqueTokenShape(""))
	assert.False(t, isOpaqueTokenShape("tab\there"))
	assert.False(t, isOpaqueTokenShape("ünïcode"))
}
