package identity

import "errors"

// Resolution failures. Callers branch with errors.Is; the wrapped detail is
// for logs and must not be echoed to clients.
var (
	// ErrInvalidCredential: no provider recognized the credential, or the
	// recognizing provider rejected it. Not retryable.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrProviderUnavailable: a provider recognized the credential's shape
	// but could not complete verification. Safe to retry.
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// ErrPrincipalLookupFailed: the principal store could not be read.
	ErrPrincipalLookupFailed = errors.New("principal lookup failed")

	// ErrProfileCreationFailed: the guarded principal insert failed for a
	// reason other than losing the unique-email race.
	ErrProfileCreationFailed = errors.New("principal creation failed")

	// ErrReconciliationWriteFailed: a link backfill or role correction could
	// not be persisted. Never returned from Resolve; the request proceeds
	// with the in-memory role and the write is retried on the next request.
	ErrReconciliationWriteFailed = errors.New("reconciliation write failed")
)

// errorKind maps an error to the label used in logs and metrics.
func errorKind(err error) string {
	switch {
	case err == nil:
		return "resolved"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrPrincipalLookupFailed):
		return "lookup_failed"
	case errors.Is(err, ErrProfileCreationFailed):
		return "creation_failed"
	default:
		return "internal"
	}
}
