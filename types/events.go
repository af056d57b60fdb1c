package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a structured record of one state-changing operation. Events are the
// system's sole externally observable audit log: every mutating entry point
// emits exactly one event per logical effect, with its resolved arguments, and
// the RLP encoding of an event is bit-exact reproducible from the same inputs.
type Event interface {
	EventName() string
}

// Governance events.

type ProposalCreated struct {
	ID              uint64
	Proposer        common.Address
	StartCheckpoint uint64
	EndCheckpoint   uint64
	Description     string
}

type VoteCast struct {
	Voter      common.Address
	ProposalID uint64
	Support    bool
	Votes      *big.Int
}

type ProposalQueued struct {
	ID  uint64
	Eta uint64
}

type ProposalExecuted struct {
	ID uint64
}

type ProposalCanceled struct {
	ID uint64
}

func (ProposalCreated) EventName() string  { return "ProposalCreated" }
func (VoteCast) EventName() string         { return "VoteCast" }
func (ProposalQueued) EventName() string   { return "ProposalQueued" }
func (ProposalExecuted) EventName() string { return "ProposalExecuted" }
func (ProposalCanceled) EventName() string { return "ProposalCanceled" }

// Timelock events.

type TransactionQueued struct {
	Hash      common.Hash
	Target    common.Address
	Value     *big.Int
	Signature string
	Eta       uint64
}

type TransactionExecuted struct {
	Hash      common.Hash
	Target    common.Address
	Value     *big.Int
	Signature string
	Eta       uint64
}

type TransactionCanceled struct {
	Hash common.Hash
}

type NewDelay struct {
	Delay uint64
}

type NewAdmin struct {
	Admin common.Address
}

func (TransactionQueued) EventName() string   { return "TransactionQueued" }
func (TransactionExecuted) EventName() string { return "TransactionExecuted" }
func (TransactionCanceled) EventName() string { return "TransactionCanceled" }
func (NewDelay) EventName() string            { return "NewDelay" }
func (NewAdmin) EventName() string            { return "NewAdmin" }

// Share vault events.

type SharesBought struct {
	Buyer  common.Address
	Amount *big.Int
	Cost   *big.Int
}

type SingleNftBought struct {
	Buyer      common.Address
	Collection common.Address
	TokenID    *big.Int
	Price      *big.Int
}

type BuyoutCompleted struct {
	Buyer common.Address
	Price *big.Int
}

type BurnedForETH struct {
	Burner common.Address
	Shares *big.Int
	Payout *big.Int
}

type SharesForSaleMinted struct {
	Amount *big.Int
}

type SharesForSaleBurned struct {
	Amount *big.Int
}

type BuyoutPriceChanged struct {
	OldPrice *big.Int
	NewPrice *big.Int
}

type NftAdded struct {
	Collection common.Address
	TokenID    *big.Int
}

type NftSaleSet struct {
	Index   uint64
	Price   *big.Int
	ForSale bool
}

type NftReturned struct {
	Recipient common.Address
}

type CustomCallExecuted struct {
	Target    common.Address
	Value     *big.Int
	Signature string
}

func (SharesBought) EventName() string        { return "SharesBought" }
func (SingleNftBought) EventName() string     { return "SingleNftBought" }
func (BuyoutCompleted) EventName() string     { return "BuyoutCompleted" }
func (BurnedForETH) EventName() string        { return "BurnedForETH" }
func (SharesForSaleMinted) EventName() string { return "SharesForSaleMinted" }
func (SharesForSaleBurned) EventName() string { return "SharesForSaleBurned" }
func (BuyoutPriceChanged) EventName() string  { return "BuyoutPriceChanged" }
func (NftAdded) EventName() string            { return "NftAdded" }
func (NftSaleSet) EventName() string          { return "NftSaleSet" }
func (NftReturned) EventName() string         { return "NftReturned" }
func (CustomCallExecuted) EventName() string  { return "CustomCallExecuted" }

// Share token events.

type Transfer struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
}

type DelegateChanged struct {
	Delegator    common.Address
	FromDelegate common.Address
	ToDelegate   common.Address
}

type DelegateVotesChanged struct {
	Delegate common.Address
	OldVotes *big.Int
	NewVotes *big.Int
}

func (Transfer) EventName() string             { return "Transfer" }
func (DelegateChanged) EventName() string      { return "DelegateChanged" }
func (DelegateVotesChanged) EventName() string { return "DelegateVotesChanged" }

// Liquidity fractionalizer events.

type PortionOfLiquidityAdded struct {
	Recipient    common.Address
	NewShares    *big.Int
	Amount0Added *big.Int
	Amount1Added *big.Int
}

type PortionOfLiquidityWithdrawn struct {
	Recipient        common.Address
	SharesBurned     *big.Int
	Amount0Collected *big.Int
	Amount1Collected *big.Int
}

func (PortionOfLiquidityAdded) EventName() string     { return "PortionOfLiquidityAdded" }
func (PortionOfLiquidityWithdrawn) EventName() string { return "PortionOfLiquidityWithdrawn" }

// Factory events.

type NewAlchemy struct {
	Vault    common.Address
	Governor common.Address
	Timelock common.Address
}

type NewUNIV3ERC20 struct {
	Contract common.Address
}

type NewAlchemyRouter struct {
	Router common.Address
}

type FeeDistributed struct {
	ToStaking  *big.Int
	ToTreasury *big.Int
}

type RewardsAccrued struct {
	Amount *big.Int
	Total  *big.Int
}

func (NewAlchemy) EventName() string       { return "NewAlchemy" }
func (NewUNIV3ERC20) EventName() string    { return "NewUNIV3ERC20" }
func (NewAlchemyRouter) EventName() string { return "NewAlchemyRouter" }
func (FeeDistributed) EventName() string   { return "FeeDistributed" }
func (RewardsAccrued) EventName() string   { return "RewardsAccrued" }
