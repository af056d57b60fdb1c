// Package factory deploys vault/governor/timelock triads and liquidity
// fractionalizers as independent instances cloned from canonical templates.
//
// The templates are registered once at factory construction and permanently
// locked: the vault template carries a sentinel factory address, the
// timelock template a sentinel admin and the governor template an empty vote
// source, so none of them can ever be initialized or operated as a live
// instance.
//
// NFTDAOMint is atomic. Every listed asset must be pre-approved for transfer
// by the factory; if any transfer or wiring step fails, the whole chain
// state rolls back and no partially-initialized instance is left operable.
//
// The factory also owns the protocol fee path: an optional router splits
// collected fees evenly between a staking target and a treasury.
package factory
