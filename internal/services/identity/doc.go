// Package identity resolves inbound bearer credentials to durable principals.
//
// A credential may have been issued by one of several independent sources.
// The package provides:
//
//   - Verifier implementations, one per source, each returning an explicit
//     three-way Outcome (verified, unrecognized, transient failure)
//   - Chain: fixed-priority trial of verifiers with per-call timeouts
//   - Reconcile: the pure role derivation from principal + staff profile
//   - Resolver: verification, find-or-create, link backfill and role
//     correction, producing a BoundPrincipal
//   - SessionIssuer: the HS256 bearer token the backend mints itself
//
// Request Flow:
//
//	Bearer credential → Chain.Verify → VerifiedClaim
//	       ↓
//	   PrincipalRepository (lookup / insert-if-absent / backfill)
//	       ↓
//	   ProfileRepository → Reconcile → (role write) → BoundPrincipal
//
// Email is the only key correlating identities across sources. Once a
// principal exists its email is never changed by resolution.
package identity
