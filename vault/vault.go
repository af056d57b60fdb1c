package vault

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alchemydao/alchemist/chain"
	"github.com/alchemydao/alchemist/journal"
	"github.com/alchemydao/alchemist/token"
	"github.com/alchemydao/alchemist/types"
)

var (
	ErrAlreadyInitialized = fmt.Errorf("%w: vault already initialized", types.ErrState)
	ErrNotInitialized     = fmt.Errorf("%w: vault not initialized", types.ErrState)
	ErrNotTimelock        = fmt.Errorf("%w: caller is not the timelock", types.ErrAuthorization)
	ErrBadIndex           = fmt.Errorf("%w: asset index out of range", types.ErrState)
	ErrNotForSale         = fmt.Errorf("%w: asset is not listed for sale", types.ErrEconomic)
	ErrInsufficientPay    = fmt.Errorf("%w: payment below price", types.ErrEconomic)
	ErrInsufficientSale   = fmt.Errorf("%w: amount exceeds shares for sale", types.ErrEconomic)
	ErrBuyoutDone         = fmt.Errorf("%w: buyout already completed", types.ErrState)
	ErrNoBuyout           = fmt.Errorf("%w: no buyout has completed", types.ErrState)
	ErrNoShares           = fmt.Errorf("%w: caller holds no shares", types.ErrEconomic)
	ErrZeroPrice          = fmt.Errorf("%w: buyout price must be positive", types.ErrEconomic)
	ErrNotCollection      = fmt.Errorf("%w: target is not an asset collection", types.ErrState)
	ErrAssetNotHeld       = fmt.Errorf("%w: vault does not own the asset", types.ErrState)
	ErrSaleExceedsSupply  = fmt.Errorf("%w: shares for sale exceed total supply", types.ErrInvariant)
)

// feeBpsDenominator is the basis-point denominator for the protocol fee.
const feeBpsDenominator = 10_000

// Vault holds a basket of non-fungible assets against a fungible share
// ledger. It is transaction-serial: a single guard rejects re-entrant or
// concurrent invocations of any mutating entry point.
type Vault struct {
	guard chain.Guard

	addr  common.Address
	reg   *chain.Registry
	bank  *chain.Bank
	clock chain.Clock
	jrnl  *journal.Journal

	shares *token.Ledger

	owner        common.Address
	factory      common.Address
	governor     common.Address
	timelockAddr common.Address
	router       common.Address
	feeBps       uint64

	buyoutPrice    *big.Int
	sharesForSale  *big.Int
	buyoutAddress  common.Address
	supplyAtBuyout *big.Int
	nfts           []types.Asset

	initialized bool
}

// New returns an unbound, uninitialized vault.
func New(reg *chain.Registry, bank *chain.Bank, clock chain.Clock, jrnl *journal.Journal) *Vault {
	return &Vault{
		reg:           reg,
		bank:          bank,
		clock:         clock,
		jrnl:          jrnl,
		buyoutPrice:   new(big.Int),
		sharesForSale: new(big.Int),
	}
}

// NewTemplate returns a vault that can never be initialized. Factories
// register one template per deployment and clone fresh instances from it.
func NewTemplate(reg *chain.Registry, bank *chain.Bank, clock chain.Clock, jrnl *journal.Journal) *Vault {
	v := New(reg, bank, clock, jrnl)
	v.factory = types.LockedSentinel
	return v
}

// Bind records the vault's own registry address.
func (v *Vault) Bind(addr common.Address) { v.addr = addr }

// Address returns the vault's registry address.
func (v *Vault) Address() common.Address { return v.addr }

// Initialize seeds the vault exactly once: the depositor receives the whole
// initial share supply, and the listed assets (already transferred to the
// vault by the factory) become the basket.
func (v *Vault) Initialize(owner common.Address, shares *token.Ledger, assets []types.Asset, buyoutPrice *big.Int, factory, router common.Address, feeBps uint64) error {
	if v.initialized || v.factory != (common.Address{}) {
		return ErrAlreadyInitialized
	}
	if buyoutPrice == nil || buyoutPrice.Sign() <= 0 {
		return ErrZeroPrice
	}
	v.owner = owner
	v.shares = shares
	v.factory = factory
	v.router = router
	v.feeBps = feeBps
	v.buyoutPrice = new(big.Int).Set(buyoutPrice)
	v.nfts = make([]types.Asset, 0, len(assets))
	for _, a := range assets {
		v.nfts = append(v.nfts, a.Copy())
	}
	v.initialized = true
	return nil
}

// SetGovernance wires the governor and timelock addresses. Factory use only;
// it completes deployment and cannot be repeated.
func (v *Vault) SetGovernance(caller, governor, timelockAddr common.Address) error {
	if !v.initialized {
		return ErrNotInitialized
	}
	if caller != v.factory {
		return fmt.Errorf("%w: caller is not the factory", types.ErrAuthorization)
	}
	if v.timelockAddr != (common.Address{}) {
		return fmt.Errorf("%w: governance already wired", types.ErrState)
	}
	v.governor = governor
	v.timelockAddr = timelockAddr
	return nil
}

// Owner returns the original depositor.
func (v *Vault) Owner() common.Address { return v.owner }

// Governor returns the wired governor address.
func (v *Vault) Governor() common.Address { return v.governor }

// TimelockAddr returns the wired timelock address.
func (v *Vault) TimelockAddr() common.Address { return v.timelockAddr }

// Shares returns the vault's share ledger.
func (v *Vault) Shares() *token.Ledger { return v.shares }

// BuyoutPrice returns the current whole-basket price.
func (v *Vault) BuyoutPrice() *big.Int { return new(big.Int).Set(v.buyoutPrice) }

// SharesForSale returns the open primary-sale pool.
func (v *Vault) SharesForSale() *big.Int { return new(big.Int).Set(v.sharesForSale) }

// BuyoutAddress returns the buyout claimant, or the zero address before any
// buyout completes.
func (v *Vault) BuyoutAddress() common.Address { return v.buyoutAddress }

// NftCount returns the number of assets currently in the basket.
func (v *Vault) NftCount() int { return len(v.nfts) }

// Nft returns a copy of the asset at index.
func (v *Vault) Nft(index int) (types.Asset, error) {
	if index < 0 || index >= len(v.nfts) {
		return types.Asset{}, ErrBadIndex
	}
	return v.nfts[index].Copy(), nil
}

// BuySingleNft sells the listed asset at index to the caller for its listed
// price. Overpayment is kept by the vault.
func (v *Vault) BuySingleNft(caller common.Address, index int, payment *big.Int) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	if !v.initialized {
		return ErrNotInitialized
	}
	if index < 0 || index >= len(v.nfts) {
		return ErrBadIndex
	}
	asset := v.nfts[index]
	if !asset.ForSale {
		return ErrNotForSale
	}
	if payment == nil || payment.Cmp(asset.Price) < 0 {
		return ErrInsufficientPay
	}
	if v.bank.BalanceOf(caller).Cmp(payment) < 0 {
		return fmt.Errorf("%w: insufficient funds", types.ErrEconomic)
	}
	if err := v.reg.Invoke(v.addr, asset.Collection, nil, chain.SigTransferFrom,
		chain.PackTransferFrom(v.addr, caller, asset.TokenID)); err != nil {
		return err
	}
	if err := v.bank.Transfer(caller, v.addr, payment); err != nil {
		return err
	}
	v.payFee(asset.Price)
	v.nfts = append(v.nfts[:index], v.nfts[index+1:]...)
	v.jrnl.Append(types.SingleNftBought{
		Buyer:      caller,
		Collection: asset.Collection,
		TokenID:    new(big.Int).Set(asset.TokenID),
		Price:      new(big.Int).Set(asset.Price),
	})
	return nil
}

// BuyShares fills amount shares from the for-sale pool. The cost is the
// pro-rata slice of the buyout price; the whole payment is kept.
func (v *Vault) BuyShares(caller common.Address, amount, payment *big.Int) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	if !v.initialized {
		return ErrNotInitialized
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", types.ErrEconomic)
	}
	if amount.Cmp(v.sharesForSale) > 0 {
		return ErrInsufficientSale
	}
	cost := new(big.Int).Mul(amount, v.buyoutPrice)
	cost.Div(cost, v.shares.TotalSupply())
	if payment == nil || payment.Cmp(cost) < 0 {
		return ErrInsufficientPay
	}
	if err := v.bank.Transfer(caller, v.addr, payment); err != nil {
		return err
	}
	v.sharesForSale.Sub(v.sharesForSale, amount)
	if err := v.shares.Credit(caller, amount); err != nil {
		return err
	}
	v.jrnl.Append(types.SharesBought{
		Buyer:  caller,
		Amount: new(big.Int).Set(amount),
		Cost:   cost,
	})
	return nil
}

// Buyout purchases the entire remaining basket at the buyout price. The
// payment must also cover the protocol fee, so the full price stays in the
// vault as the redemption reserve. The caller becomes the permanent buyout
// claimant, the share supply is snapshotted for redemption, and every
// remaining asset transfers out.
func (v *Vault) Buyout(caller common.Address, payment *big.Int) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	if !v.initialized {
		return ErrNotInitialized
	}
	if v.buyoutAddress != (common.Address{}) {
		return ErrBuyoutDone
	}
	cost := new(big.Int).Add(v.buyoutPrice, v.feeOn(v.buyoutPrice))
	if payment == nil || payment.Cmp(cost) < 0 {
		return ErrInsufficientPay
	}
	if v.bank.BalanceOf(caller).Cmp(payment) < 0 {
		return fmt.Errorf("%w: insufficient funds", types.ErrEconomic)
	}
	// A governed custom call may have moved a listed asset out from under
	// the basket. The transfers land all or not at all.
	snaps := v.reg.SnapshotAll()
	for _, a := range v.nfts {
		if err := v.reg.Invoke(v.addr, a.Collection, nil, chain.SigTransferFrom,
			chain.PackTransferFrom(v.addr, caller, a.TokenID)); err != nil {
			v.reg.RestoreAll(snaps)
			return err
		}
	}
	if err := v.bank.Transfer(caller, v.addr, payment); err != nil {
		v.reg.RestoreAll(snaps)
		return err
	}
	v.payFee(v.buyoutPrice)
	v.buyoutAddress = caller
	v.supplyAtBuyout = v.shares.TotalSupply()
	v.nfts = v.nfts[:0]
	v.jrnl.Append(types.BuyoutCompleted{
		Buyer: caller,
		Price: new(big.Int).Set(v.buyoutPrice),
	})
	return nil
}

// BurnForETH redeems the caller's entire share balance for the pro-rata
// slice of the buyout proceeds. Only valid after a buyout has completed.
func (v *Vault) BurnForETH(caller common.Address) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	if !v.initialized {
		return ErrNotInitialized
	}
	if v.buyoutAddress == (common.Address{}) {
		return ErrNoBuyout
	}
	balance := v.shares.BalanceOf(caller)
	if balance.Sign() == 0 {
		return ErrNoShares
	}
	payout := new(big.Int).Mul(balance, v.buyoutPrice)
	payout.Div(payout, v.supplyAtBuyout)
	// Pay first. If the vault somehow cannot cover the payout the caller
	// keeps their shares instead of burning them for nothing.
	if payout.Sign() > 0 {
		if err := v.bank.Transfer(v.addr, caller, payout); err != nil {
			return err
		}
	}
	if err := v.shares.Burn(caller, balance); err != nil {
		return err
	}
	v.jrnl.Append(types.BurnedForETH{
		Burner: caller,
		Shares: balance,
		Payout: payout,
	})
	return nil
}

// Delegate assigns the caller's share voting power.
func (v *Vault) Delegate(caller, delegatee common.Address) error {
	if err := v.guard.Enter(); err != nil {
		return err
	}
	defer v.guard.Exit()
	if !v.initialized {
		return ErrNotInitialized
	}
	v.shares.Delegate(caller, delegatee)
	return nil
}

// feeOn returns the protocol cut of price, zero when no router is wired.
func (v *Vault) feeOn(price *big.Int) *big.Int {
	if v.router == (common.Address{}) || v.feeBps == 0 {
		return new(big.Int)
	}
	fee := new(big.Int).Mul(price, new(big.Int).SetUint64(v.feeBps))
	return fee.Div(fee, big.NewInt(feeBpsDenominator))
}

// payFee routes the protocol cut of price to the router, if one is wired.
// The vault must already hold the funds.
func (v *Vault) payFee(price *big.Int) {
	fee := v.feeOn(price)
	if fee.Sign() == 0 {
		return
	}
	// The fee is carved out of a payment that just arrived, so the
	// transfer cannot fail under serial execution.
	_ = v.bank.Transfer(v.addr, v.router, fee)
}

// Snapshot captures the vault's mutable state.
func (v *Vault) Snapshot() any {
	nfts := make([]types.Asset, 0, len(v.nfts))
	for _, a := range v.nfts {
		nfts = append(nfts, a.Copy())
	}
	s := &vaultSnapshot{
		buyoutPrice:   new(big.Int).Set(v.buyoutPrice),
		sharesForSale: new(big.Int).Set(v.sharesForSale),
		buyoutAddress: v.buyoutAddress,
		nfts:          nfts,
	}
	if v.supplyAtBuyout != nil {
		s.supplyAtBuyout = new(big.Int).Set(v.supplyAtBuyout)
	}
	return s
}

// Restore rewinds the vault to a prior Snapshot.
func (v *Vault) Restore(snap any) {
	s := snap.(*vaultSnapshot)
	v.buyoutPrice = new(big.Int).Set(s.buyoutPrice)
	v.sharesForSale = new(big.Int).Set(s.sharesForSale)
	v.buyoutAddress = s.buyoutAddress
	v.supplyAtBuyout = nil
	if s.supplyAtBuyout != nil {
		v.supplyAtBuyout = new(big.Int).Set(s.supplyAtBuyout)
	}
	v.nfts = make([]types.Asset, 0, len(s.nfts))
	for _, a := range s.nfts {
		v.nfts = append(v.nfts, a.Copy())
	}
}

type vaultSnapshot struct {
	buyoutPrice    *big.Int
	sharesForSale  *big.Int
	buyoutAddress  common.Address
	supplyAtBuyout *big.Int
	nfts           []types.Asset
}

var _ chain.Snapshotter = (*Vault)(nil)
