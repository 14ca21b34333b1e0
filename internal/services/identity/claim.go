package identity

import "github.com/voip8pbx/ShieldHire-sub000/internal/db/models"

// Source identifies which identity provider asserted a claim.
type Source string

const (
	// SourceFederated is the asymmetrically signed identity token provider.
	SourceFederated Source = "federated"
	// SourcePlatform is the opaque session token checked by introspection.
	SourcePlatform Source = "platform"
	// SourceLocal is the HS256 token minted by this backend.
	SourceLocal Source = "local"
)

// LinkSlot returns the principal column that stores this source's subject.
func (s Source) LinkSlot() models.LinkSlot {
	switch s {
	case SourceFederated:
		return models.SlotFederated
	case SourcePlatform:
		return models.SlotPlatform
	case SourceLocal:
		return models.SlotLocal
	}
	return ""
}

// VerifiedClaim holds the facts a provider asserted about a credential.
// It lives for one request and is never persisted.
type VerifiedClaim struct {
	Source      Source
	SubjectRef  string
	Email       string
	DisplayName string
}

// OutcomeKind tags the result of a single verifier call.
type OutcomeKind int

const (
	// OutcomeUnrecognized means the credential is not this provider's kind,
	// or is and failed signature/issuer/audience/expiry checks.
	OutcomeUnrecognized OutcomeKind = iota
	// OutcomeVerified means Claim is populated.
	OutcomeVerified
	// OutcomeTransient means the credential has this provider's shape but the
	// provider could not be reached in time; its validity is unknown.
	OutcomeTransient
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeVerified:
		return "verified"
	case OutcomeTransient:
		return "transient"
	default:
		return "unrecognized"
	}
}

// Outcome is the tagged result of Verifier.Verify.
type Outcome struct {
	Kind  OutcomeKind
	Claim VerifiedClaim
	// Reason explains an unrecognized or transient outcome. Logged only.
	Reason error
}

// Verified wraps a successful claim.
func Verified(c VerifiedClaim) Outcome {
	return Outcome{Kind: OutcomeVerified, Claim: c}
}

// Unrecognized reports that the chain should try the next provider.
func Unrecognized(reason error) Outcome {
	return Outcome{Kind: OutcomeUnrecognized, Reason: reason}
}

// Transient reports a provider outage for a credential of this provider's shape.
func Transient(reason error) Outcome {
	return Outcome{Kind: OutcomeTransient, Reason: reason}
}
