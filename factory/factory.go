package factory

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alchemydao/alchemist/chain"
	"github.com/alchemydao/alchemist/governance"
	"github.com/alchemydao/alchemist/journal"
	"github.com/alchemydao/alchemist/liquidity"
	"github.com/alchemydao/alchemist/timelock"
	"github.com/alchemydao/alchemist/token"
	"github.com/alchemydao/alchemist/types"
	"github.com/alchemydao/alchemist/vault"
)

// Errors
var (
	ErrNotOwner       = errors.New("caller is not the factory owner")
	ErrNoAssets       = errors.New("no assets listed")
	ErrLengthMismatch = errors.New("collections and token ids differ in length")
	ErrNotApproved    = errors.New("asset not approved for the factory")
	ErrNotDepositor   = errors.New("caller does not own a listed asset")
	ErrZeroSupply     = errors.New("total supply must be positive")
	ErrZeroPrice      = errors.New("buyout price must be positive")
	ErrDelayTooLong   = errors.New("timelock delay exceeds the maximum")
)

// templateDelay is the queue delay locked into the timelock template. The
// template can never execute anything; the value only has to be valid.
const templateDelay = 2 * 24 * 60 * 60

// MintParams describes one NFTDAOMint deployment. The caller is the
// depositor: every listed asset must be owned by and pre-approved from the
// caller.
type MintParams struct {
	Collections []common.Address
	TokenIDs    []*big.Int

	TotalSupply *big.Int
	Name        string
	Symbol      string
	BuyoutPrice *big.Int

	VotingPeriod  uint64
	TimelockDelay uint64
}

// Deployment carries the addresses of one freshly deployed triad.
type Deployment struct {
	Vault    common.Address
	Governor common.Address
	Timelock common.Address
}

// Factory clones vault/governor/timelock triads from locked templates.
type Factory struct {
	guard chain.Guard

	addr  common.Address
	reg   *chain.Registry
	bank  *chain.Bank
	clock chain.Clock
	jrnl  *journal.Journal

	owner  common.Address
	router common.Address
	feeBps uint64
	govCfg governance.Config

	vaultTemplate    common.Address
	governorTemplate common.Address
	timelockTemplate common.Address
}

// New constructs the factory and registers its locked templates. govCfg is
// the governance configuration stamped onto every deployed governor; the
// per-deployment voting period and guardian still come from the mint call.
func New(reg *chain.Registry, bank *chain.Bank, clock chain.Clock, jrnl *journal.Journal, owner common.Address, feeBps uint64, govCfg governance.Config) *Factory {
	f := &Factory{
		reg:    reg,
		bank:   bank,
		clock:  clock,
		jrnl:   jrnl,
		owner:  owner,
		feeBps: feeBps,
		govCfg: govCfg,
	}
	f.vaultTemplate = reg.Register(vault.NewTemplate(reg, bank, clock, jrnl))

	tl := timelock.New(clock, reg, jrnl)
	f.timelockTemplate = reg.Register(tl)
	// Locked: the sentinel admin can never call.
	if err := tl.Initialize(types.LockedSentinel, templateDelay); err != nil {
		panic("factory: locking timelock template: " + err.Error())
	}
	f.governorTemplate = reg.Register(governance.NewTemplate(clock, reg, jrnl))
	return f
}

// Bind implements chain.Bindable.
func (f *Factory) Bind(addr common.Address) { f.addr = addr }

// Address returns the factory's registered address.
func (f *Factory) Address() common.Address { return f.addr }

// Owner returns the current factory owner.
func (f *Factory) Owner() common.Address { return f.owner }

// Router returns the deployed fee router address, or zero.
func (f *Factory) Router() common.Address { return f.router }

// VaultTemplate returns the locked vault template address.
func (f *Factory) VaultTemplate() common.Address { return f.vaultTemplate }

// GovernorTemplate returns the locked governor template address.
func (f *Factory) GovernorTemplate() common.Address { return f.governorTemplate }

// TimelockTemplate returns the locked timelock template address.
func (f *Factory) TimelockTemplate() common.Address { return f.timelockTemplate }

// NFTDAOMint deploys a fresh vault/governor/timelock triad around the
// caller's listed assets: the assets transfer into the new vault, the caller
// receives the whole initial share supply, and the triad is cross-wired so
// only the new timelock can reach the vault's governance lane. The whole
// deployment is atomic; any failure rolls every transfer back.
func (f *Factory) NFTDAOMint(caller common.Address, p MintParams) (Deployment, error) {
	if err := f.guard.Enter(); err != nil {
		return Deployment{}, err
	}
	defer f.guard.Exit()

	if err := f.validateMint(caller, p); err != nil {
		return Deployment{}, err
	}

	// A rolled-back deployment must leave no trace in the journal either.
	snaps := f.reg.SnapshotAll()
	f.jrnl.Begin()
	dep, err := f.deployTriad(caller, p)
	if err != nil {
		f.reg.RestoreAll(snaps)
		f.jrnl.Discard()
		return Deployment{}, err
	}
	f.jrnl.Commit()

	f.jrnl.Append(types.NewAlchemy{
		Vault:    dep.Vault,
		Governor: dep.Governor,
		Timelock: dep.Timelock,
	})
	return dep, nil
}

// validateMint checks parameters, ownership and approvals before anything
// mutates.
func (f *Factory) validateMint(caller common.Address, p MintParams) error {
	if len(p.Collections) == 0 {
		return fmt.Errorf("%w: %w", types.ErrState, ErrNoAssets)
	}
	if len(p.Collections) != len(p.TokenIDs) {
		return fmt.Errorf("%w: %w", types.ErrState, ErrLengthMismatch)
	}
	if p.TotalSupply == nil || p.TotalSupply.Sign() <= 0 {
		return fmt.Errorf("%w: %w", types.ErrEconomic, ErrZeroSupply)
	}
	if p.BuyoutPrice == nil || p.BuyoutPrice.Sign() <= 0 {
		return fmt.Errorf("%w: %w", types.ErrEconomic, ErrZeroPrice)
	}
	if p.TimelockDelay > timelock.MaximumDelay {
		return fmt.Errorf("%w: %w: %d", types.ErrState, ErrDelayTooLong, p.TimelockDelay)
	}
	for i, collAddr := range p.Collections {
		coll, err := f.lookupCollection(collAddr)
		if err != nil {
			return err
		}
		owner, err := coll.OwnerOf(p.TokenIDs[i])
		if err != nil {
			return err
		}
		if owner != caller {
			return fmt.Errorf("%w: %w: token %s", types.ErrAuthorization, ErrNotDepositor, p.TokenIDs[i])
		}
		if spender, ok := coll.Approved(p.TokenIDs[i]); !ok || spender != f.addr {
			return fmt.Errorf("%w: %w: token %s", types.ErrAuthorization, ErrNotApproved, p.TokenIDs[i])
		}
	}
	return nil
}

// deployTriad performs the mutating half of NFTDAOMint under an outer
// snapshot.
func (f *Factory) deployTriad(caller common.Address, p MintParams) (Deployment, error) {
	ledger := token.NewLedger(p.Name, p.Symbol, f.clock, f.jrnl)

	v := vault.New(f.reg, f.bank, f.clock, f.jrnl)
	vaultAddr := f.reg.Register(v)

	assets := make([]types.Asset, 0, len(p.Collections))
	for i, collAddr := range p.Collections {
		if err := f.reg.Invoke(f.addr, collAddr, nil, chain.SigTransferFrom,
			chain.PackTransferFrom(caller, vaultAddr, p.TokenIDs[i])); err != nil {
			return Deployment{}, err
		}
		assets = append(assets, types.Asset{
			Collection: collAddr,
			TokenID:    new(big.Int).Set(p.TokenIDs[i]),
			Price:      new(big.Int),
		})
	}

	if err := v.Initialize(caller, ledger, assets, p.BuyoutPrice, f.addr, f.router, f.feeBps); err != nil {
		return Deployment{}, err
	}
	if err := ledger.Mint(caller, p.TotalSupply); err != nil {
		return Deployment{}, err
	}

	tl := timelock.New(f.clock, f.reg, f.jrnl)
	tlAddr := f.reg.Register(tl)

	cfg := f.govCfg
	if p.VotingPeriod > 0 {
		cfg.VotingPeriod = p.VotingPeriod
	}
	cfg.Guardian = caller
	gov := governance.New(cfg, f.clock, f.reg, f.jrnl)
	govAddr := f.reg.Register(gov)

	if err := tl.Initialize(govAddr, p.TimelockDelay); err != nil {
		return Deployment{}, err
	}
	if err := gov.Initialize(ledger, tl); err != nil {
		return Deployment{}, err
	}
	if err := v.SetGovernance(f.addr, govAddr, tlAddr); err != nil {
		return Deployment{}, err
	}
	// Track the ledger only once nothing below can fail; the outer rollback
	// cannot rewind contracts that did not exist when its snapshot was taken.
	f.reg.Track(ledger)

	return Deployment{Vault: vaultAddr, Governor: govAddr, Timelock: tlAddr}, nil
}

// UNIV3ERC20Mint wraps an existing yield-bearing position in a fresh
// fractionalizer with its own share ledger.
func (f *Factory) UNIV3ERC20Mint(caller common.Address, pos liquidity.Position, name, symbol string) (common.Address, error) {
	if err := f.guard.Enter(); err != nil {
		return common.Address{}, err
	}
	defer f.guard.Exit()

	ledger := token.NewLedger(name, symbol, f.clock, f.jrnl)
	frac := liquidity.New(pos, ledger, f.jrnl)
	addr := f.reg.Register(frac)
	f.reg.Track(ledger)
	if s, ok := pos.(chain.Snapshotter); ok {
		f.reg.Track(s)
	}

	f.jrnl.Append(types.NewUNIV3ERC20{Contract: addr})
	return addr, nil
}

// NewAlchemyRouter deploys a fee router and makes it the fee target of every
// vault deployed afterwards. Owner only.
func (f *Factory) NewAlchemyRouter(caller, staking, treasury common.Address) (common.Address, error) {
	if err := f.guard.Enter(); err != nil {
		return common.Address{}, err
	}
	defer f.guard.Exit()
	if caller != f.owner {
		return common.Address{}, fmt.Errorf("%w: %w", types.ErrAuthorization, ErrNotOwner)
	}

	r := NewRouter(f.bank, f.jrnl, staking, treasury)
	f.router = f.reg.Register(r)
	f.jrnl.Append(types.NewAlchemyRouter{Router: f.router})
	return f.router, nil
}

// NewFactoryOwner hands factory ownership over. Owner only.
func (f *Factory) NewFactoryOwner(caller, newOwner common.Address) error {
	if err := f.guard.Enter(); err != nil {
		return err
	}
	defer f.guard.Exit()
	if caller != f.owner {
		return fmt.Errorf("%w: %w", types.ErrAuthorization, ErrNotOwner)
	}
	f.owner = newOwner
	return nil
}

func (f *Factory) lookupCollection(addr common.Address) (*chain.NFTCollection, error) {
	c, ok := f.reg.Lookup(addr)
	if !ok {
		return nil, fmt.Errorf("%w: unknown collection %s", types.ErrState, addr.Hex())
	}
	coll, ok := c.(*chain.NFTCollection)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a collection", types.ErrState, addr.Hex())
	}
	return coll, nil
}

// Invoke implements chain.Contract. The factory exposes no governed
// operations.
func (f *Factory) Invoke(caller common.Address, value *big.Int, signature string, data []byte) error {
	return fmt.Errorf("%w: factory has no invocable operations: %q", types.ErrState, signature)
}

var _ chain.Contract = (*Factory)(nil)
