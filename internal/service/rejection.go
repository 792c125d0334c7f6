package service

import "time"

// RejectKind discriminates the failure modes a caller can branch on.
type RejectKind string

const (
	RejectUnauthenticated     RejectKind = "unauthenticated"
	RejectInvalidInput        RejectKind = "invalid_input"
	RejectOutOfCredits        RejectKind = "out_of_credits"
	RejectProviderUnavailable RejectKind = "provider_unavailable"
	RejectStorageFailure      RejectKind = "storage_failure"
	RejectUnexpected          RejectKind = "unexpected"
)

// Rejection is the structured non-success outcome of an operation. Callers
// branch on Kind instead of matching error strings; Message is safe to show
// to the user.
type Rejection struct {
	Kind    RejectKind
	Message string

	// NextEligibleAt is the instant credits refill. Set only for
	// RejectOutOfCredits so the client can render a countdown.
	NextEligibleAt time.Time
}

func (r *Rejection) Error() string {
	return r.Message
}

// Retryable reports whether the caller may simply try again later without
// changing the request.
func (r *Rejection) Retryable() bool {
	switch r.Kind {
	case RejectProviderUnavailable, RejectStorageFailure, RejectUnexpected:
		return true
	}
	return false
}
