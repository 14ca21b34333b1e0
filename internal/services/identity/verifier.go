package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voip8pbx/ShieldHire-sub000/internal/telemetry"
)

const tracerName = "shieldapi/services/identity"

// Verifier wraps exactly one identity source.
//
// Verify must return OutcomeTransient only for credentials it recognizes as
// its own; a credential of another provider's shape is always Unrecognized.
// Implementations must be safe for concurrent use.
type Verifier interface {
	Source() Source
	Verify(ctx context.Context, credential string) Outcome
}

// Chain tries verifiers sequentially in the order given and stops at the
// first verified claim or the first transient failure.
type Chain struct {
	verifiers []Verifier
	timeout   time.Duration
	log       logrus.FieldLogger
}

// NewChain builds a chain. timeout bounds each verifier call; the caller's
// context deadline still applies on top of it.
func NewChain(timeout time.Duration, log logrus.FieldLogger, verifiers ...Verifier) *Chain {
	active := make([]Verifier, 0, len(verifiers))
	for _, v := range verifiers {
		if v != nil {
			active = append(active, v)
		}
	}
	return &Chain{verifiers: active, timeout: timeout, log: log}
}

// Sources lists the configured providers in priority order.
func (c *Chain) Sources() []Source {
	out := make([]Source, len(c.verifiers))
	for i, v := range c.verifiers {
		out[i] = v.Source()
	}
	return out
}

// Verify runs the chain. It returns ErrInvalidCredential when every verifier
// reports Unrecognized and ErrProviderUnavailable when the first verifier to
// recognize the credential could not complete verification.
func (c *Chain) Verify(ctx context.Context, credential string) (VerifiedClaim, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return VerifiedClaim{}, fmt.Errorf("%w: empty credential", ErrInvalidCredential)
	}

	for _, v := range c.verifiers {
		outcome := c.attempt(ctx, v, credential)

		switch outcome.Kind {
		case OutcomeVerified:
			claim := outcome.Claim
			claim.Source = v.Source()
			return claim, nil

		case OutcomeTransient:
			c.log.WithFields(logrus.Fields{
				"provider": v.Source(),
				"reason":   outcome.Reason,
			}).Warn("identity provider unavailable")
			return VerifiedClaim{}, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, v.Source(), outcome.Reason)

		default:
			c.log.WithFields(logrus.Fields{
				"provider": v.Source(),
				"reason":   outcome.Reason,
			}).Debug("credential not recognized by provider")
		}
	}

	return VerifiedClaim{}, ErrInvalidCredential
}

func (c *Chain) attempt(ctx context.Context, v Verifier, credential string) Outcome {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "identity.Verify",
		attribute.String(telemetry.AttrProviderSource, string(v.Source())),
	)
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	outcome := v.Verify(ctx, credential)
	if outcome.Kind == OutcomeVerified && outcome.Claim.Email == "" {
		outcome = Unrecognized(errors.New("verified claim carries no email"))
	}

	span.SetAttributes(attribute.String(telemetry.AttrProviderOutcome, outcome.Kind.String()))
	if outcome.Kind == OutcomeTransient {
		telemetry.RecordError(span, outcome.Reason)
	}
	return outcome
}

// isTransientError reports whether err came from the network or a deadline
// rather than from the credential itself.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isCompactJWS reports whether s has the three dot-separated segments of a
// compact JWS. Opaque session tokens never do.
func isCompactJWS(s string) bool {
	return strings.Count(s, ".") == 2
}
