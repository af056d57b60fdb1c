package chain

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alchemydao/alchemist/types"
)

// Errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNegativeAmount    = errors.New("negative amount")
)

// Bank is the payment-asset balance ledger. All purchase payments, fee cuts
// and redemption payouts move through it.
type Bank struct {
	mu       sync.RWMutex
	balances map[common.Address]*big.Int
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{balances: make(map[common.Address]*big.Int)}
}

// Mint credits amount to addr. Test and demo faucet; the real payment asset
// is an external collaborator.
func (b *Bank) Mint(addr common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(addr, amount)
}

// BalanceOf returns addr's balance. The returned value is a copy.
func (b *Bank) BalanceOf(addr common.Address) *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if bal, ok := b.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Transfer moves amount from one account to another. It fails with no effect
// if the source balance is insufficient.
func (b *Bank) Transfer(from, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: %w", types.ErrEconomic, ErrNegativeAmount)
	}
	bal, ok := b.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %w: have %s, need %s",
			types.ErrEconomic, ErrInsufficientFunds, b.balanceString(from), amount)
	}
	bal.Sub(bal, amount)
	b.credit(to, amount)
	return nil
}

// Snapshot implements Snapshotter.
func (b *Bank) Snapshot() any {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := make(map[common.Address]*big.Int, len(b.balances))
	for addr, bal := range b.balances {
		snap[addr] = new(big.Int).Set(bal)
	}
	return snap
}

// Restore implements Snapshotter.
func (b *Bank) Restore(snap any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	balances := snap.(map[common.Address]*big.Int)
	b.balances = make(map[common.Address]*big.Int, len(balances))
	for addr, bal := range balances {
		b.balances[addr] = new(big.Int).Set(bal)
	}
}

// credit adds amount to addr. Caller must hold b.mu.
func (b *Bank) credit(addr common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	if bal, ok := b.balances[addr]; ok {
		bal.Add(bal, amount)
		return
	}
	b.balances[addr] = new(big.Int).Set(amount)
}

// balanceString formats addr's balance for error messages. Caller must hold b.mu.
func (b *Bank) balanceString(addr common.Address) string {
	if bal, ok := b.balances[addr]; ok {
		return bal.String()
	}
	return "0"
}
