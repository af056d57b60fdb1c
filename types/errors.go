package types

import "errors"

// Error classes. Every rejection in the system wraps exactly one of these so
// callers can classify failures with errors.Is without parsing messages.
var (
	// ErrAuthorization covers callers that lack the required capability:
	// not the registered timelock, not a valid proposer, not the claimant.
	ErrAuthorization = errors.New("unauthorized")

	// ErrState covers transitions requested outside the required state:
	// wrong proposal state, unknown queued action, expired grace window.
	ErrState = errors.New("invalid state")

	// ErrEconomic covers insufficient payment, unlisted assets, balances
	// too small for the requested amount and slippage guard failures.
	ErrEconomic = errors.New("economic precondition failed")

	// ErrInvariant marks conditions that correct code must never reach,
	// e.g. sharesForSale exceeding total supply. Defended explicitly even
	// though hitting one signals a defect, not a caller mistake.
	ErrInvariant = errors.New("invariant violation")
)
