package errors

// Stable reason strings for distribution-ledger failures. Callers surface
// these verbatim, so they never change once released.
const (
	ReasonInvalidAddress    = "invalid_address"
	ReasonUnauthorizedRole  = "unauthorized_role"
	ReasonInvalidAmount     = "invalid_amount"
	ReasonRoundNotFunded    = "round_not_funded"
	ReasonRoundNotFinalized = "round_not_finalized"
	ReasonAlreadyClaimed    = "already_claimed"
	ReasonNoEntitlement     = "no_entitlement"
	ReasonDivisionByZero    = "division_by_zero"
	ReasonTransferFailed    = "transfer_failed"
	ReasonGracePeriodActive = "grace_period_active"
	ReasonPropertyNotFound  = "property_not_found"
	ReasonRoundNotFound     = "round_not_found"
)
