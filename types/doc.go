// Package types defines the core data structures shared by the Alchemist
// governance stack.
//
// # Core Types
//
// Action: A single governed call (target, value, signature, payload). Actions
// are the unit queued into the execution timelock; their content hash keys the
// timelock's pending set.
//
// Proposal: A governance proposal with its ordered action list, voting window,
// running vote totals, per-voter receipts and terminal flags. Proposals are
// retained forever as an audit trail; once executed or canceled they admit no
// further transition.
//
// ProposalState: The lifecycle enum. Resolution follows the directed graph
//
//	Pending → Active → {Canceled, Defeated, Succeeded} → Queued → {Executed, Expired}
//
// Asset: A held non-fungible asset inside a share vault, with its direct-sale
// listing state.
//
// # Error Taxonomy
//
// Four sentinel classes cover every rejection in the system: ErrAuthorization,
// ErrState, ErrEconomic and ErrInvariant. Packages wrap these with a specific
// precondition message so callers can classify with errors.Is while still
// seeing exactly which check failed.
//
// # Serialization
//
// Events and action hashes use RLP for deterministic binary encoding. Two
// identical inputs always produce byte-identical encodings, which makes the
// journal reproducible and action hashes collision-stable.
package types
