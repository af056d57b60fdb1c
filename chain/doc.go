// Package chain models the execution environment the governance stack runs
// inside: the canonical transaction ordering, the payment-asset ledger and the
// token-standard collaborators the rest of the system calls out to.
//
// # Components
//
// Clock: Source of the canonical checkpoint sequence (used by voting) and of
// unix time (used by the timelock). SimClock is a manually advanced
// implementation for tests and the demo CLI.
//
// Registry: The address space. Deployed contracts register here and become
// reachable for governed invocation by address. Addresses are derived
// deterministically from a creation counter, so a given deployment order
// always yields the same addresses.
//
// Bank: The payment-asset (ETH) balance ledger. Purchases, buyouts and
// redemptions move value through the bank.
//
// NFTCollection: An ERC721-style collection with ownership, approvals and
// transfer checks. Collections are registered contracts so a governed
// delegated call can reach them.
//
// Guard: The per-instance call-in-progress flag. Every state-mutating entry
// point acquires it first and releases it on exit; a delegated external call
// that re-enters the same instance is rejected instead of observing
// half-updated state.
//
// # Execution model
//
// The surrounding ledger is transaction-serial: every entry point runs to
// completion with no interleaving. Contract instances therefore are not
// goroutine-safe; the Guard turns both re-entrant and concurrent mutation
// into an explicit ErrReentrantCall instead of a data race.
// Infrastructure shared across instances (Registry, Bank, SimClock) is
// internally locked so read-only inspection from other goroutines is safe.
//
// # Atomicity
//
// All state holders implement Snapshotter. A multi-action governance
// execution snapshots every tracked state holder up front and restores all of
// them if any action fails, so the whole execution applies or none of it does.
package chain
