// Package governance implements the proposal/voting state machine that drives
// every privileged mutation of a share vault.
//
// # Lifecycle
//
// A proposal moves through the states
//
//	Pending → Active → {Canceled, Defeated, Succeeded} → Queued → {Executed, Expired}
//
// State is resolved on demand from the proposal record and the clock; nothing
// transitions in the background. An Expired proposal whose vote still stands
// can be re-queued with a fresh eta.
//
// # Voting
//
// Vote weight is the voter's delegated power snapshotted at the proposal's
// start checkpoint, resolved through the share ledger's checkpoint log rather
// than live balances. Each account votes at most once per proposal.
//
// Both the proposal threshold (minimum power to propose) and the quorum
// (minimum for-votes for a result to bind) are expressed in basis points of
// total share supply and are fixed per instance at construction.
//
// # Execution
//
// Queue hands every action of a Succeeded proposal to the execution timelock
// under one shared eta. Execute forwards them for execution once the eta has
// passed. A full chain-state snapshot taken up front makes the multi-action
// execution atomic: if any action fails, every state holder is restored and
// the proposal stays Queued.
package governance
