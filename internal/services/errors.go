package services

import "errors"

// Component-boundary errors. None of these is fatal to the enclosing
// request: handlers decide how an unconfigured / unassigned / mis-staged
// entity degrades.
var (
	// ErrNotConfigured: the tenant has no matching config/stage row.
	// Callers treat it as a soft default (provision defaults, or assign
	// to the creator).
	ErrNotConfigured = errors.New("not configured")

	// ErrNoEligibleUsers: the assignment pool is empty and no fallback is
	// configured. Lead creation proceeds unassigned.
	ErrNoEligibleUsers = errors.New("no eligible users")

	// ErrStageReferenceInvalid: a stage_id write would point at a missing,
	// inactive or wrong-typed stage. Rejected before persistence.
	ErrStageReferenceInvalid = errors.New("stage reference invalid")

	// ErrStageInUse: the stage is still referenced by leads or deals and
	// cannot be deleted.
	ErrStageInUse = errors.New("stage is referenced by leads or deals")
)
