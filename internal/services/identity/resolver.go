package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/bunx"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
	"github.com/voip8pbx/ShieldHire-sub000/internal/repository"
	"github.com/voip8pbx/ShieldHire-sub000/internal/telemetry"
)

// CredentialVerifier turns a raw bearer credential into a verified claim.
// *Chain is the production implementation.
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (VerifiedClaim, error)
}

// BoundPrincipal is the per-request result of resolution. It is attached to
// the request context and never persisted.
type BoundPrincipal struct {
	Principal *models.Principal
	// Role is the reconciled effective role. Downstream code must use it
	// instead of Principal.Role.
	Role models.Role
	// Source is the provider that verified the credential.
	Source Source
	// Created is set when this request provisioned the principal.
	Created bool
	// RoleWritePending is set when Role differs from the stored role because
	// the correction could not be persisted.
	RoleWritePending bool
}

// PrincipalView is the reduced principal returned in response bodies.
type PrincipalView struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Role        models.Role `json:"role"`
}

// View returns the client-facing projection.
func (b *BoundPrincipal) View() PrincipalView {
	return PrincipalView{
		ID:          b.Principal.ID,
		Email:       b.Principal.Email,
		DisplayName: b.Principal.DisplayName,
		Role:        b.Role,
	}
}

// ResolverDependencies holds the collaborators of a Resolver.
type ResolverDependencies struct {
	Verifier   CredentialVerifier
	Principals repository.PrincipalRepository
	Profiles   repository.ProfileRepository
	Metrics    *telemetry.ResolutionMetrics
	Logger     logrus.FieldLogger

	// NewID generates principal ids. Defaults to UUIDv7.
	NewID func() string
}

// Resolver binds bearer credentials to durable principals. It holds no
// mutable state; the unique email constraint is the only serialization point
// between concurrent first logins.
type Resolver struct {
	verifier   CredentialVerifier
	principals repository.PrincipalRepository
	profiles   repository.ProfileRepository
	metrics    *telemetry.ResolutionMetrics
	log        logrus.FieldLogger
	newID      func() string
}

// NewResolver creates a resolver.
func NewResolver(deps ResolverDependencies) *Resolver {
	r := &Resolver{
		verifier:   deps.Verifier,
		principals: deps.Principals,
		profiles:   deps.Profiles,
		metrics:    deps.Metrics,
		log:        deps.Logger,
		newID:      deps.NewID,
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	if r.newID == nil {
		r.newID = bunx.NewUUIDv7
	}
	return r
}

// Resolve verifies credential and returns the bound principal, provisioning
// it on first sight of its email. Errors are one of ErrInvalidCredential,
// ErrProviderUnavailable, ErrPrincipalLookupFailed or
// ErrProfileCreationFailed.
func (r *Resolver) Resolve(ctx context.Context, credential string) (*BoundPrincipal, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, tracerName, "identity.Resolve")
	defer span.End()

	claim, err := r.verifier.Verify(ctx, credential)
	if err != nil {
		r.finish(ctx, span, start, "none", err)
		return nil, err
	}

	bound, err := r.bindClaim(ctx, claim)
	r.finish(ctx, span, start, string(claim.Source), err)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String(telemetry.AttrPrincipalID, bound.Principal.ID),
		attribute.String(telemetry.AttrPrincipalRole, string(bound.Role)),
		attribute.Bool(telemetry.AttrPrincipalNew, bound.Created),
	)
	return bound, nil
}

// Bind reconciles the role of an already loaded principal. The password
// login path uses it after checking the password hash.
func (r *Resolver) Bind(ctx context.Context, p *models.Principal, source Source) *BoundPrincipal {
	bound := &BoundPrincipal{Principal: p, Role: p.Role, Source: source}
	log := r.log.WithFields(logrus.Fields{"principal_id": p.ID, "source": source})

	profile, err := r.profiles.FindByPrincipalID(ctx, p.ID)
	if err != nil {
		log.WithError(err).Warn("staff profile lookup failed; using stored role")
		return bound
	}

	effective := Reconcile(p.Role, profile)
	if effective == p.Role {
		return bound
	}
	bound.Role = effective

	err = r.principals.UpdateRole(ctx, p.ID, effective)
	r.metrics.RecordWrite(ctx, "role", err)
	if err != nil {
		bound.RoleWritePending = true
		log.WithError(fmt.Errorf("%w: %v", ErrReconciliationWriteFailed, err)).
			WithField("role", effective).
			Warn("role correction not persisted")
		return bound
	}

	telemetry.AddEvent(trace.SpanFromContext(ctx), "principal.role_corrected",
		attribute.String("from", string(p.Role)),
		attribute.String("to", string(effective)),
	)
	log.WithFields(logrus.Fields{"from": p.Role, "to": effective}).Info("principal role reconciled")
	p.Role = effective
	return bound
}

func (r *Resolver) bindClaim(ctx context.Context, claim VerifiedClaim) (*BoundPrincipal, error) {
	email := NormalizeEmail(claim.Email)

	principal, created, err := r.findOrCreate(ctx, claim, email)
	if err != nil {
		return nil, err
	}
	if !created {
		r.backfill(ctx, principal, claim)
	}

	bound := r.Bind(ctx, principal, claim.Source)
	bound.Created = created
	return bound, nil
}

// findOrCreate looks the principal up by email and inserts it when absent.
// Losing the insert race to a concurrent first login re-reads the winner.
func (r *Resolver) findOrCreate(ctx context.Context, claim VerifiedClaim, email string) (*models.Principal, bool, error) {
	existing, err := r.principals.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("%w: %v", ErrPrincipalLookupFailed, err)
	}

	candidate := &models.Principal{
		ID:          r.newID(),
		Email:       email,
		DisplayName: DisplayNameOrLocalPart(claim.DisplayName, email),
		Role:        models.RoleUser,
	}
	candidate.SetSlot(claim.Source.LinkSlot(), claim.SubjectRef)

	err = r.principals.InsertIfAbsent(ctx, candidate)
	switch {
	case err == nil:
		r.metrics.RecordWrite(ctx, "insert", nil)
		r.log.WithFields(logrus.Fields{
			"principal_id": candidate.ID,
			"source":       claim.Source,
		}).Info("provisioned new principal")
		return candidate, true, nil

	case errors.Is(err, repository.ErrEmailTaken):
		r.log.WithField("source", claim.Source).Debug("concurrent first login won the insert; re-reading")
		winner, err := r.principals.GetByEmail(ctx, email)
		if err != nil {
			return nil, false, fmt.Errorf("%w: re-read after insert conflict: %v", ErrPrincipalLookupFailed, err)
		}
		return winner, false, nil

	default:
		r.metrics.RecordWrite(ctx, "insert", err)
		return nil, false, fmt.Errorf("%w: %v", ErrProfileCreationFailed, err)
	}
}

// backfill records the claim's subject in the source's empty link slot. A
// slot already holding another subject is left alone.
func (r *Resolver) backfill(ctx context.Context, p *models.Principal, claim VerifiedClaim) {
	slot := claim.Source.LinkSlot()
	log := r.log.WithFields(logrus.Fields{"principal_id": p.ID, "slot": slot})

	switch current := p.Slot(slot); current {
	case claim.SubjectRef:
		return
	case "":
	default:
		log.Warn("link slot holds a different subject; not overwriting")
		return
	}

	filled, err := r.principals.SetLinkSlot(ctx, p.ID, slot, claim.SubjectRef)
	r.metrics.RecordWrite(ctx, "backfill", err)
	if err != nil {
		log.WithError(fmt.Errorf("%w: %v", ErrReconciliationWriteFailed, err)).Warn("link slot backfill not persisted")
		return
	}
	if !filled {
		log.Debug("link slot filled by a concurrent request")
		return
	}

	p.SetSlot(slot, claim.SubjectRef)
	telemetry.AddEvent(trace.SpanFromContext(ctx), "principal.link_backfilled",
		attribute.String("slot", string(slot)),
	)
	log.Info("linked provider subject to existing principal")
}

func (r *Resolver) finish(ctx context.Context, span trace.Span, start time.Time, source string, err error) {
	kind := errorKind(err)
	r.metrics.RecordResolve(ctx, source, kind, float64(time.Since(start).Milliseconds()))
	span.SetAttributes(attribute.String(telemetry.AttrProviderOutcome, kind))

	if err == nil {
		return
	}
	telemetry.RecordError(span, err)
	entry := r.log.WithError(err).WithField("outcome", kind)
	switch kind {
	case "invalid_credential":
		entry.Debug("credential rejected")
	case "provider_unavailable":
		entry.Warn("credential could not be verified")
	default:
		entry.Error("principal resolution failed")
	}
}
