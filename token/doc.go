// Package token implements the fungible share ledger used by both the share
// vault and the liquidity fractionalizer.
//
// # Shares
//
// A Ledger tracks total supply and per-account balances for one deployed
// instance. The vault's "shares for sale" mechanic needs two asymmetric
// primitives in addition to plain mint/burn: MintSupply grows supply without
// assigning a balance (governance minting shares into the for-sale pool) and
// Credit assigns a balance without growing supply (a buyer taking shares out
// of that pool).
//
// # Voting power
//
// Voting power is delegated, not held: an account's balance counts toward its
// chosen delegate's running total and toward nothing until a delegate is set.
// Every change to a delegate's total appends a checkpoint (checkpoint number,
// votes) to that delegate's append-only log; PriorVotes answers "voting power
// as of a past checkpoint" by binary search over that log and never reads the
// live balance, which is what makes same-window transfers useless for vote
// manipulation.
package token
