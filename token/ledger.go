package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alchemydao/alchemist/chain"
	"github.com/alchemydao/alchemist/journal"
	"github.com/alchemydao/alchemist/types"
)

// Errors
var (
	ErrInsufficientShares = errors.New("insufficient share balance")
	ErrZeroAmount         = errors.New("amount must be positive")
	ErrSupplyUnderflow    = errors.New("burn exceeds total supply")
)

// Ledger is the share ledger of one deployed instance: fungible balances plus
// delegated, checkpointed voting power. The ledger is mutated only by its
// owning contract; cross-contract access goes through read-only accessors.
type Ledger struct {
	name   string
	symbol string

	clock chain.Clock
	jrnl  *journal.Journal

	totalSupply *big.Int
	balances    map[common.Address]*big.Int

	delegates   map[common.Address]common.Address
	checkpoints map[common.Address][]Checkpoint
}

// NewLedger creates an empty ledger.
func NewLedger(name, symbol string, clock chain.Clock, jrnl *journal.Journal) *Ledger {
	return &Ledger{
		name:        name,
		symbol:      symbol,
		clock:       clock,
		jrnl:        jrnl,
		totalSupply: new(big.Int),
		balances:    make(map[common.Address]*big.Int),
		delegates:   make(map[common.Address]common.Address),
		checkpoints: make(map[common.Address][]Checkpoint),
	}
}

// Name returns the share token name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the share token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// TotalSupply returns the current total supply. The returned value is a copy.
func (l *Ledger) TotalSupply() *big.Int {
	return new(big.Int).Set(l.totalSupply)
}

// BalanceOf returns addr's share balance. The returned value is a copy.
func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	if bal, ok := l.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Transfer moves shares between accounts and re-points the corresponding
// delegated voting power.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	l.moveDelegates(l.delegates[from], l.delegates[to], amount)
	l.jrnl.Append(types.Transfer{From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Mint creates amount new shares owned by to.
func (l *Ledger) Mint(to common.Address, amount *big.Int) error {
	if err := checkPositive(amount); err != nil {
		return err
	}
	l.totalSupply.Add(l.totalSupply, amount)
	l.credit(to, amount)
	l.moveDelegates(common.Address{}, l.delegates[to], amount)
	l.jrnl.Append(types.Transfer{From: common.Address{}, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// MintSupply grows total supply without assigning a balance. Used when
// governance mints shares into a vault's for-sale pool: the shares exist but
// belong to nobody until bought.
func (l *Ledger) MintSupply(amount *big.Int) error {
	if err := checkPositive(amount); err != nil {
		return err
	}
	l.totalSupply.Add(l.totalSupply, amount)
	return nil
}

// Credit assigns amount to to without touching total supply. The counterpart
// of MintSupply: the supply was already counted when the for-sale pool was
// minted.
func (l *Ledger) Credit(to common.Address, amount *big.Int) error {
	if err := checkPositive(amount); err != nil {
		return err
	}
	l.credit(to, amount)
	l.moveDelegates(common.Address{}, l.delegates[to], amount)
	l.jrnl.Append(types.Transfer{From: common.Address{}, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Burn destroys amount shares held by from.
func (l *Ledger) Burn(from common.Address, amount *big.Int) error {
	if err := l.debit(from, amount); err != nil {
		return err
	}
	if l.totalSupply.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %w", types.ErrInvariant, ErrSupplyUnderflow)
	}
	l.totalSupply.Sub(l.totalSupply, amount)
	l.moveDelegates(l.delegates[from], common.Address{}, amount)
	l.jrnl.Append(types.Transfer{From: from, To: common.Address{}, Amount: new(big.Int).Set(amount)})
	return nil
}

// Delegate points caller's voting power at delegatee and appends checkpoints
// for both the old and new delegate.
func (l *Ledger) Delegate(caller, delegatee common.Address) {
	old := l.delegates[caller]
	l.delegates[caller] = delegatee
	l.moveDelegates(old, delegatee, l.BalanceOf(caller))
	l.jrnl.Append(types.DelegateChanged{Delegator: caller, FromDelegate: old, ToDelegate: delegatee})
}

// DelegateOf returns the delegate caller has chosen, or the zero address.
func (l *Ledger) DelegateOf(caller common.Address) common.Address {
	return l.delegates[caller]
}

func checkPositive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: %w", types.ErrEconomic, ErrZeroAmount)
	}
	return nil
}

// credit adds amount to addr's balance.
func (l *Ledger) credit(addr common.Address, amount *big.Int) {
	if bal, ok := l.balances[addr]; ok {
		bal.Add(bal, amount)
		return
	}
	l.balances[addr] = new(big.Int).Set(amount)
}

// debit removes amount from addr's balance, validating first.
func (l *Ledger) debit(addr common.Address, amount *big.Int) error {
	if err := checkPositive(amount); err != nil {
		return err
	}
	bal, ok := l.balances[addr]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %w: have %s, need %s",
			types.ErrEconomic, ErrInsufficientShares, l.BalanceOf(addr), amount)
	}
	bal.Sub(bal, amount)
	return nil
}

// ledgerSnapshot is the Snapshotter state of a ledger.
type ledgerSnapshot struct {
	totalSupply *big.Int
	balances    map[common.Address]*big.Int
	delegates   map[common.Address]common.Address
	checkpoints map[common.Address][]Checkpoint
}

// Snapshot implements chain.Snapshotter.
func (l *Ledger) Snapshot() any {
	snap := ledgerSnapshot{
		totalSupply: new(big.Int).Set(l.totalSupply),
		balances:    make(map[common.Address]*big.Int, len(l.balances)),
		delegates:   make(map[common.Address]common.Address, len(l.delegates)),
		checkpoints: make(map[common.Address][]Checkpoint, len(l.checkpoints)),
	}
	for addr, bal := range l.balances {
		snap.balances[addr] = new(big.Int).Set(bal)
	}
	for addr, d := range l.delegates {
		snap.delegates[addr] = d
	}
	for addr, cps := range l.checkpoints {
		cpy := make([]Checkpoint, len(cps))
		for i, cp := range cps {
			cpy[i] = Checkpoint{FromCheckpoint: cp.FromCheckpoint, Votes: new(big.Int).Set(cp.Votes)}
		}
		snap.checkpoints[addr] = cpy
	}
	return snap
}

// Restore implements chain.Snapshotter.
func (l *Ledger) Restore(snap any) {
	s := snap.(ledgerSnapshot)
	l.totalSupply = new(big.Int).Set(s.totalSupply)
	l.balances = make(map[common.Address]*big.Int, len(s.balances))
	for addr, bal := range s.balances {
		l.balances[addr] = new(big.Int).Set(bal)
	}
	l.delegates = make(map[common.Address]common.Address, len(s.delegates))
	for addr, d := range s.delegates {
		l.delegates[addr] = d
	}
	l.checkpoints = make(map[common.Address][]Checkpoint, len(s.checkpoints))
	for addr, cps := range s.checkpoints {
		cpy := make([]Checkpoint, len(cps))
		for i, cp := range cps {
			cpy[i] = Checkpoint{FromCheckpoint: cp.FromCheckpoint, Votes: new(big.Int).Set(cp.Votes)}
		}
		l.checkpoints[addr] = cpy
	}
}
