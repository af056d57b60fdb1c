package vault

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alchemydao/alchemist/chain"
	"github.com/alchemydao/alchemist/journal"
	"github.com/alchemydao/alchemist/token"
	"github.com/alchemydao/alchemist/types"
)

var (
	depositor = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	buyer     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	timelock  = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	factory   = common.HexToAddress("0x00000000000000000000000000000000000000d4")
	outsider  = common.HexToAddress("0x00000000000000000000000000000000000000e5")
)

type fixture struct {
	reg    *chain.Registry
	bank   *chain.Bank
	clock  *chain.SimClock
	jrnl   *journal.Journal
	coll   *chain.NFTCollection
	shares *token.Ledger
	vault  *Vault
}

// makeTestVault deploys a vault holding one asset (token 0) with a total
// supply of 1,000,000 shares owned by the depositor and a buyout price of
// 1e18.
func makeTestVault(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		reg:   chain.NewRegistry(),
		bank:  chain.NewBank(),
		clock: chain.NewSimClock(100, 1_000_000),
		jrnl:  journal.New(),
	}
	f.coll = chain.NewNFTCollection("Minty", "MNT")
	f.reg.Register(f.coll)

	f.shares = token.NewLedger("Alchemy", "ALCH", f.clock, f.jrnl)
	f.vault = New(f.reg, f.bank, f.clock, f.jrnl)
	vaultAddr := f.reg.Register(f.vault)

	if err := f.coll.Mint(vaultAddr, big.NewInt(0)); err != nil {
		t.Fatalf("minting asset: %v", err)
	}
	assets := []types.Asset{{
		Collection: f.coll.Address(),
		TokenID:    big.NewInt(0),
		Price:      new(big.Int),
	}}
	err := f.vault.Initialize(depositor, f.shares, assets, eth(1), factory, common.Address{}, 0)
	if err != nil {
		t.Fatalf("initializing vault: %v", err)
	}
	if err := f.shares.Mint(depositor, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("minting shares: %v", err)
	}
	if err := f.vault.SetGovernance(factory, outsider, timelock); err != nil {
		t.Fatalf("wiring governance: %v", err)
	}

	f.bank.Mint(buyer, eth(100))
	f.bank.Mint(depositor, eth(100))
	return f
}

// eth returns n * 1e18.
func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func (f *fixture) governed(t *testing.T, sig string, data []byte) error {
	t.Helper()
	return f.vault.Invoke(timelock, nil, sig, data)
}

func TestInitializeOnce(t *testing.T) {
	f := makeTestVault(t)
	err := f.vault.Initialize(depositor, f.shares, nil, eth(1), factory, common.Address{}, 0)
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second initialize: got %v, want ErrAlreadyInitialized", err)
	}
}

func TestTemplateCannotInitialize(t *testing.T) {
	f := makeTestVault(t)
	tmpl := NewTemplate(f.reg, f.bank, f.clock, f.jrnl)
	err := tmpl.Initialize(depositor, f.shares, nil, eth(1), factory, common.Address{}, 0)
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("template initialize: got %v, want ErrAlreadyInitialized", err)
	}
}

func TestGovernanceLaneRejectsOutsiders(t *testing.T) {
	f := makeTestVault(t)

	callers := []common.Address{outsider, depositor, f.vault.Address(), {}}
	for _, caller := range callers {
		err := f.vault.Invoke(caller, nil, SigChangeBuyoutPrice, PackChangeBuyoutPrice(eth(2)))
		if !errors.Is(err, ErrNotTimelock) {
			t.Errorf("caller %s: got %v, want ErrNotTimelock", caller.Hex(), err)
		}
	}
	if !errors.Is(f.vault.Invoke(outsider, nil, SigChangeBuyoutPrice, nil), types.ErrAuthorization) {
		t.Error("governance-lane rejection should classify as an authorization error")
	}
}

func TestUnknownSignature(t *testing.T) {
	f := makeTestVault(t)
	err := f.governed(t, "selfdestruct()", nil)
	if !errors.Is(err, ErrUnknownSignature) {
		t.Errorf("got %v, want ErrUnknownSignature", err)
	}
}

func TestMintAndBuyShares(t *testing.T) {
	f := makeTestVault(t)

	if err := f.governed(t, SigMintSharesForSale, PackMintSharesForSale(eth(1))); err != nil {
		t.Fatalf("mintSharesForSale: %v", err)
	}
	wantSupply := new(big.Int).Add(eth(1), big.NewInt(1_000_000))
	if got := f.shares.TotalSupply(); got.Cmp(wantSupply) != 0 {
		t.Errorf("total supply after mint: got %s, want %s", got, wantSupply)
	}
	if got := f.vault.SharesForSale(); got.Cmp(eth(1)) != 0 {
		t.Errorf("shares for sale: got %s, want %s", got, eth(1))
	}
	// Minted-for-sale shares have no owner yet.
	if got := f.shares.BalanceOf(depositor); got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("depositor balance changed: got %s", got)
	}

	amount := new(big.Int).Div(eth(1), big.NewInt(2))
	cost := new(big.Int).Mul(amount, f.vault.BuyoutPrice())
	cost.Div(cost, f.shares.TotalSupply())
	if err := f.vault.BuyShares(buyer, amount, cost); err != nil {
		t.Fatalf("buyShares: %v", err)
	}
	if got := f.shares.BalanceOf(buyer); got.Cmp(amount) != 0 {
		t.Errorf("buyer balance: got %s, want %s", got, amount)
	}
	// Supply is unchanged: the purchase fills already-minted shares.
	if got := f.shares.TotalSupply(); got.Cmp(wantSupply) != 0 {
		t.Errorf("total supply after purchase: got %s, want %s", got, wantSupply)
	}
	wantRemaining := new(big.Int).Sub(eth(1), amount)
	if got := f.vault.SharesForSale(); got.Cmp(wantRemaining) != 0 {
		t.Errorf("remaining for sale: got %s, want %s", got, wantRemaining)
	}
}

func TestBuySharesUnderpaymentFails(t *testing.T) {
	f := makeTestVault(t)
	if err := f.governed(t, SigMintSharesForSale, PackMintSharesForSale(eth(1))); err != nil {
		t.Fatalf("mintSharesForSale: %v", err)
	}

	amount := new(big.Int).Div(eth(1), big.NewInt(2))
	cost := new(big.Int).Mul(amount, f.vault.BuyoutPrice())
	cost.Div(cost, f.shares.TotalSupply())
	low := new(big.Int).Sub(cost, big.NewInt(1))

	err := f.vault.BuyShares(buyer, amount, low)
	if !errors.Is(err, ErrInsufficientPay) {
		t.Errorf("got %v, want ErrInsufficientPay", err)
	}
	if got := f.shares.BalanceOf(buyer); got.Sign() != 0 {
		t.Errorf("failed purchase credited %s shares", got)
	}
	if got := f.vault.SharesForSale(); got.Cmp(eth(1)) != 0 {
		t.Errorf("failed purchase shrank the pool: %s", got)
	}
}

func TestBuySharesExceedsPool(t *testing.T) {
	f := makeTestVault(t)
	if err := f.governed(t, SigMintSharesForSale, PackMintSharesForSale(big.NewInt(10))); err != nil {
		t.Fatalf("mintSharesForSale: %v", err)
	}
	err := f.vault.BuyShares(buyer, big.NewInt(11), eth(1))
	if !errors.Is(err, ErrInsufficientSale) {
		t.Errorf("got %v, want ErrInsufficientSale", err)
	}
}

func TestBurnSharesForSale(t *testing.T) {
	f := makeTestVault(t)
	if err := f.governed(t, SigMintSharesForSale, PackMintSharesForSale(big.NewInt(100))); err != nil {
		t.Fatalf("mintSharesForSale: %v", err)
	}
	before := f.shares.TotalSupply()

	if err := f.governed(t, SigBurnSharesForSale, PackBurnSharesForSale(big.NewInt(40))); err != nil {
		t.Fatalf("burnSharesForSale: %v", err)
	}
	if got := f.vault.SharesForSale(); got.Cmp(big.NewInt(60)) != 0 {
		t.Errorf("pool after burn: got %s, want 60", got)
	}
	// Burning from the sale pool does not touch total supply.
	if got := f.shares.TotalSupply(); got.Cmp(before) != 0 {
		t.Errorf("supply after burn: got %s, want %s", got, before)
	}

	err := f.governed(t, SigBurnSharesForSale, PackBurnSharesForSale(big.NewInt(61)))
	if !errors.Is(err, ErrInsufficientSale) {
		t.Errorf("overburn: got %v, want ErrInsufficientSale", err)
	}
}

func TestSetSaleAndBuySingleNft(t *testing.T) {
	f := makeTestVault(t)

	if err := f.governed(t, SigSetNftSale, PackSetNftSale(0, eth(2), true)); err != nil {
		t.Fatalf("setNftSale: %v", err)
	}
	a, err := f.vault.Nft(0)
	if err != nil {
		t.Fatalf("reading asset: %v", err)
	}
	if !a.ForSale || a.Price.Cmp(eth(2)) != 0 {
		t.Fatalf("listing not applied: forSale=%v price=%s", a.ForSale, a.Price)
	}

	if err := f.vault.BuySingleNft(buyer, 0, eth(2)); err != nil {
		t.Fatalf("buySingleNft: %v", err)
	}
	owner, err := f.coll.OwnerOf(big.NewInt(0))
	if err != nil {
		t.Fatalf("ownerOf: %v", err)
	}
	if owner != buyer {
		t.Errorf("token owner: got %s, want buyer", owner.Hex())
	}
	if f.vault.NftCount() != 0 {
		t.Errorf("asset count after sale: got %d, want 0", f.vault.NftCount())
	}
	if got := f.bank.BalanceOf(f.vault.Address()); got.Cmp(eth(2)) != 0 {
		t.Errorf("vault proceeds: got %s, want %s", got, eth(2))
	}
}

func TestBuySingleNftNotForSale(t *testing.T) {
	f := makeTestVault(t)
	err := f.vault.BuySingleNft(buyer, 0, eth(2))
	if !errors.Is(err, ErrNotForSale) {
		t.Errorf("got %v, want ErrNotForSale", err)
	}
	if !errors.Is(err, types.ErrEconomic) {
		t.Errorf("not-for-sale should classify as an economic error, got %v", err)
	}
}

func TestBuySingleNftBadIndex(t *testing.T) {
	f := makeTestVault(t)
	if err := f.vault.BuySingleNft(buyer, 5, eth(2)); !errors.Is(err, ErrBadIndex) {
		t.Errorf("got %v, want ErrBadIndex", err)
	}
}

func TestBuyoutAndBurnForETH(t *testing.T) {
	f := makeTestVault(t)

	if err := f.vault.Buyout(buyer, eth(1)); err != nil {
		t.Fatalf("buyout: %v", err)
	}
	if f.vault.BuyoutAddress() != buyer {
		t.Errorf("buyout address: got %s, want buyer", f.vault.BuyoutAddress().Hex())
	}
	owner, err := f.coll.OwnerOf(big.NewInt(0))
	if err != nil {
		t.Fatalf("ownerOf: %v", err)
	}
	if owner != buyer {
		t.Errorf("asset owner after buyout: got %s, want buyer", owner.Hex())
	}
	if f.vault.NftCount() != 0 {
		t.Errorf("basket not emptied: %d assets left", f.vault.NftCount())
	}

	// A second buyout is permanently impossible.
	if err := f.vault.Buyout(outsider, eth(1)); !errors.Is(err, ErrBuyoutDone) {
		t.Errorf("second buyout: got %v, want ErrBuyoutDone", err)
	}

	// The depositor holds the entire 1,000,000 supply, so redemption pays the
	// full buyout price.
	before := f.bank.BalanceOf(depositor)
	if err := f.vault.BurnForETH(depositor); err != nil {
		t.Fatalf("burnForETH: %v", err)
	}
	gain := new(big.Int).Sub(f.bank.BalanceOf(depositor), before)
	if gain.Cmp(eth(1)) != 0 {
		t.Errorf("redemption payout: got %s, want %s", gain, eth(1))
	}
	if got := f.shares.BalanceOf(depositor); got.Sign() != 0 {
		t.Errorf("shares not burned: %s", got)
	}

	// Second redemption fails: no shares left.
	if err := f.vault.BurnForETH(depositor); !errors.Is(err, ErrNoShares) {
		t.Errorf("empty redemption: got %v, want ErrNoShares", err)
	}
}

func TestBurnForETHBeforeBuyout(t *testing.T) {
	f := makeTestVault(t)
	if err := f.vault.BurnForETH(depositor); !errors.Is(err, ErrNoBuyout) {
		t.Errorf("got %v, want ErrNoBuyout", err)
	}
}

func TestBurnForETHRoundsDown(t *testing.T) {
	f := makeTestVault(t)

	// Split the supply so the pro-rata slice is not integral: 333,333 of
	// 1,000,000 shares at price 1e18.
	if err := f.shares.Transfer(depositor, buyer, big.NewInt(333_333)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	f.bank.Mint(outsider, eth(1))
	if err := f.vault.Buyout(outsider, eth(1)); err != nil {
		t.Fatalf("buyout: %v", err)
	}

	before := f.bank.BalanceOf(buyer)
	if err := f.vault.BurnForETH(buyer); err != nil {
		t.Fatalf("burnForETH: %v", err)
	}
	gain := new(big.Int).Sub(f.bank.BalanceOf(buyer), before)

	want := new(big.Int).Mul(big.NewInt(333_333), eth(1))
	want.Div(want, big.NewInt(1_000_000))
	if gain.Cmp(want) != 0 {
		t.Errorf("payout: got %s, want %s", gain, want)
	}
}

func TestChangeBuyoutPrice(t *testing.T) {
	f := makeTestVault(t)
	if err := f.governed(t, SigChangeBuyoutPrice, PackChangeBuyoutPrice(eth(3))); err != nil {
		t.Fatalf("changeBuyoutPrice: %v", err)
	}
	if got := f.vault.BuyoutPrice(); got.Cmp(eth(3)) != 0 {
		t.Errorf("buyout price: got %s, want %s", got, eth(3))
	}
	err := f.governed(t, SigChangeBuyoutPrice, PackChangeBuyoutPrice(big.NewInt(0)))
	if !errors.Is(err, ErrZeroPrice) {
		t.Errorf("zero price: got %v, want ErrZeroPrice", err)
	}
}

func TestAddNftRequiresOwnership(t *testing.T) {
	f := makeTestVault(t)

	// Token 1 exists but belongs to an outsider.
	if err := f.coll.Mint(outsider, big.NewInt(1)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := f.governed(t, SigAddNft, PackAddNft(f.coll.Address(), big.NewInt(1)))
	if !errors.Is(err, ErrAssetNotHeld) {
		t.Errorf("got %v, want ErrAssetNotHeld", err)
	}

	// After the transfer the same registration succeeds.
	if err := f.coll.TransferFrom(outsider, outsider, f.vault.Address(), big.NewInt(1)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if err := f.governed(t, SigAddNft, PackAddNft(f.coll.Address(), big.NewInt(1))); err != nil {
		t.Fatalf("addNft: %v", err)
	}
	if f.vault.NftCount() != 2 {
		t.Errorf("asset count: got %d, want 2", f.vault.NftCount())
	}
}

func TestReturnNft(t *testing.T) {
	f := makeTestVault(t)
	if err := f.governed(t, SigReturnNft, nil); err != nil {
		t.Fatalf("returnNft: %v", err)
	}
	owner, err := f.coll.OwnerOf(big.NewInt(0))
	if err != nil {
		t.Fatalf("ownerOf: %v", err)
	}
	if owner != depositor {
		t.Errorf("asset owner: got %s, want depositor", owner.Hex())
	}
	if f.vault.NftCount() != 0 {
		t.Errorf("basket not emptied: %d assets left", f.vault.NftCount())
	}
}

func TestExecuteTransactionDelegatedCall(t *testing.T) {
	f := makeTestVault(t)

	// Governance approves an outsider to move the held token via the
	// collection's own dispatch.
	data := PackExecuteTransaction(f.coll.Address(), nil, chain.SigApprove,
		chain.PackApprove(outsider, big.NewInt(0)))
	if err := f.governed(t, SigExecuteTransaction, data); err != nil {
		t.Fatalf("executeTransaction: %v", err)
	}
	spender, ok := f.coll.Approved(big.NewInt(0))
	if !ok || spender != outsider {
		t.Errorf("approval not set: got %s ok=%v", spender.Hex(), ok)
	}

	// A delegated call cannot re-enter the vault itself.
	reenter := PackExecuteTransaction(f.vault.Address(), nil, SigReturnNft, nil)
	err := f.governed(t, SigExecuteTransaction, reenter)
	if !errors.Is(err, chain.ErrReentrantCall) {
		t.Errorf("re-entrant delegated call: got %v, want ErrReentrantCall", err)
	}
}

func TestProtocolFeeRouting(t *testing.T) {
	router := common.HexToAddress("0x00000000000000000000000000000000000000f6")

	f := &fixture{
		reg:   chain.NewRegistry(),
		bank:  chain.NewBank(),
		clock: chain.NewSimClock(100, 1_000_000),
		jrnl:  journal.New(),
	}
	f.coll = chain.NewNFTCollection("Minty", "MNT")
	f.reg.Register(f.coll)
	f.shares = token.NewLedger("Alchemy", "ALCH", f.clock, f.jrnl)
	f.vault = New(f.reg, f.bank, f.clock, f.jrnl)
	f.reg.Register(f.vault)

	// 50 bps fee.
	if err := f.vault.Initialize(depositor, f.shares, nil, eth(1), factory, router, 50); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := f.shares.Mint(depositor, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := f.vault.SetGovernance(factory, outsider, timelock); err != nil {
		t.Fatalf("wiring governance: %v", err)
	}
	f.bank.Mint(buyer, eth(10))

	// The fee rides on top of the price: the bare price is not enough.
	if err := f.vault.Buyout(buyer, eth(1)); !errors.Is(err, ErrInsufficientPay) {
		t.Fatalf("bare-price buyout: got %v, want ErrInsufficientPay", err)
	}

	wantFee := new(big.Int).Div(eth(1), big.NewInt(200))
	cost := new(big.Int).Add(eth(1), wantFee)
	if err := f.vault.Buyout(buyer, cost); err != nil {
		t.Fatalf("buyout: %v", err)
	}
	if got := f.bank.BalanceOf(router); got.Cmp(wantFee) != 0 {
		t.Errorf("router fee: got %s, want %s", got, wantFee)
	}
	// The full price stays in the vault as the redemption reserve.
	if got := f.bank.BalanceOf(f.vault.Address()); got.Cmp(eth(1)) != 0 {
		t.Errorf("redemption reserve: got %s, want %s", got, eth(1))
	}

	// The depositor holds the whole supply, so redemption pays the full
	// price even though a fee was routed.
	if err := f.vault.BurnForETH(depositor); err != nil {
		t.Fatalf("burnForETH: %v", err)
	}
	if got := f.bank.BalanceOf(depositor); got.Cmp(eth(1)) != 0 {
		t.Errorf("redemption payout: got %s, want %s", got, eth(1))
	}
	if got := f.shares.BalanceOf(depositor); got.Sign() != 0 {
		t.Errorf("shares not burned: %s", got)
	}
}

func TestBurnForETHUnderfundedVaultKeepsShares(t *testing.T) {
	f := makeTestVault(t)

	if err := f.vault.Buyout(buyer, eth(1)); err != nil {
		t.Fatalf("buyout: %v", err)
	}
	// Drain the redemption reserve out from under the claim.
	if err := f.bank.Transfer(f.vault.Address(), outsider, eth(1)); err != nil {
		t.Fatalf("draining vault: %v", err)
	}

	if err := f.vault.BurnForETH(depositor); !errors.Is(err, types.ErrEconomic) {
		t.Errorf("underfunded redemption: got %v, want an economic error", err)
	}
	// The failed redemption must not have destroyed the shares.
	if got := f.shares.BalanceOf(depositor); got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("shares after failed redemption: got %s, want 1000000", got)
	}
}

func TestBuyoutAbortsAtomicallyOnMissingAsset(t *testing.T) {
	f := makeTestVault(t)
	vaultAddr := f.vault.Address()

	// A second asset behind token 0 in the basket.
	if err := f.coll.Mint(vaultAddr, big.NewInt(1)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := f.governed(t, SigAddNft, PackAddNft(f.coll.Address(), big.NewInt(1))); err != nil {
		t.Fatalf("addNft: %v", err)
	}

	// A governed delegated call moves token 1 out without delisting it, so
	// the basket no longer matches the collection.
	desync := PackExecuteTransaction(f.coll.Address(), nil, chain.SigTransferFrom,
		chain.PackTransferFrom(vaultAddr, outsider, big.NewInt(1)))
	if err := f.governed(t, SigExecuteTransaction, desync); err != nil {
		t.Fatalf("executeTransaction: %v", err)
	}

	bankBefore := f.bank.BalanceOf(buyer)
	if err := f.vault.Buyout(buyer, eth(1)); err == nil {
		t.Fatal("buyout of a desynced basket should fail")
	}

	// Token 0 was transferred before the failure and must have come back.
	owner, err := f.coll.OwnerOf(big.NewInt(0))
	if err != nil {
		t.Fatalf("ownerOf: %v", err)
	}
	if owner != vaultAddr {
		t.Errorf("token 0 owner after aborted buyout: got %s, want vault", owner.Hex())
	}
	if f.vault.BuyoutAddress() != (common.Address{}) {
		t.Errorf("aborted buyout recorded a claimant: %s", f.vault.BuyoutAddress().Hex())
	}
	if got := f.bank.BalanceOf(buyer); got.Cmp(bankBefore) != 0 {
		t.Errorf("aborted buyout moved funds: got %s, want %s", got, bankBefore)
	}
	// The vault stays open for business once the basket is repaired.
	if f.vault.NftCount() != 2 {
		t.Errorf("basket size after abort: got %d, want 2", f.vault.NftCount())
	}
}

func TestDelegateThroughVault(t *testing.T) {
	f := makeTestVault(t)
	if err := f.vault.Delegate(depositor, buyer); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if got := f.shares.DelegateOf(depositor); got != buyer {
		t.Errorf("delegate: got %s, want buyer", got.Hex())
	}
}

func TestSnapshotRestore(t *testing.T) {
	f := makeTestVault(t)

	snap := f.vault.Snapshot()
	if err := f.governed(t, SigMintSharesForSale, PackMintSharesForSale(eth(1))); err != nil {
		t.Fatalf("mintSharesForSale: %v", err)
	}
	if err := f.governed(t, SigChangeBuyoutPrice, PackChangeBuyoutPrice(eth(9))); err != nil {
		t.Fatalf("changeBuyoutPrice: %v", err)
	}

	f.vault.Restore(snap)
	if got := f.vault.SharesForSale(); got.Sign() != 0 {
		t.Errorf("shares for sale after restore: got %s, want 0", got)
	}
	if got := f.vault.BuyoutPrice(); got.Cmp(eth(1)) != 0 {
		t.Errorf("buyout price after restore: got %s, want %s", got, eth(1))
	}
	if f.vault.NftCount() != 1 {
		t.Errorf("asset count after restore: got %d, want 1", f.vault.NftCount())
	}
}
