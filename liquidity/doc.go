// Package liquidity implements the fractionalizer for a managed concentrated
// liquidity position.
//
// Unlike the vault there is no governance lane: every operation is open and
// fully symmetric. Depositors add underlying token amounts to the managed
// position and receive shares proportional to the liquidity their deposit
// created; withdrawers burn shares and collect the proportional underlying
// amounts. The first deposit bootstraps the exchange rate by minting shares
// 1:1 with raw liquidity.
//
// All proportional math rounds down against the party leaving or entering:
// the position never pays out more than it received, retaining negligible
// dust instead. The single exception is a full burn of every outstanding
// share, which removes exactly the entire remaining liquidity so nothing is
// stranded.
package liquidity
