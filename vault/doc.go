// Package vault implements the share vault: fractional ownership of a basket
// of non-fungible assets behind a fungible share ledger.
//
// # Authorization lanes
//
// Every mutating entry point sits in exactly one of two lanes. The owner lane
// (BuySingleNft, BuyShares, Buyout, BurnForETH, Delegate) is open to anyone
// holding sufficient payment or shares. The governance lane
// (MintSharesForSale, BurnSharesForSale, ChangeBuyoutPrice, AddNft,
// SetNftSale, ReturnNft, ExecuteTransaction) accepts exactly one caller: the
// execution timelock registered at deployment. A governance-lane call from
// any other address fails unconditionally; this boundary is the property the
// whole design protects.
//
// # Delegated calls
//
// ExecuteTransaction lets governance invoke operations the vault author did
// not enumerate, but not arbitrarily: the call is routed through the registry
// to the target's own closed signature dispatch, so the callable surface is
// always a reviewed set, never raw calldata.
//
// # Economics
//
// Share purchases price against the buyout price pro rata:
// cost = amount * buyoutPrice / totalSupply, with the division rounding down.
// A buyout permanently records the claimant, snapshots the supply and hands
// over every remaining asset; after it, BurnForETH redeems shares for
// shares × buyoutPrice / supplyAtBuyout of the payment asset.
package vault
