package factory

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alchemydao/alchemist/chain"
	"github.com/alchemydao/alchemist/journal"
	"github.com/alchemydao/alchemist/types"
)

// SigNotifyReward reconciles the pool's balance against its accrual record.
const SigNotifyReward = "notifyReward()"

var ErrNoNewRewards = fmt.Errorf("%w: no new rewards since last notification", types.ErrEconomic)

// StakingPool is the staking-side fee sink. Rewards arrive as plain balance
// transfers from the router; NotifyReward folds anything received since the
// last notification into the accrual record. Distribution to individual
// stakers is out of scope; the pool only accounts for what it has been paid.
type StakingPool struct {
	guard chain.Guard

	addr common.Address
	bank *chain.Bank
	jrnl *journal.Journal

	accrued  *big.Int
	lastSeen *big.Int
}

// NewStakingPool creates an empty pool.
func NewStakingPool(bank *chain.Bank, jrnl *journal.Journal) *StakingPool {
	return &StakingPool{bank: bank, jrnl: jrnl, accrued: new(big.Int), lastSeen: new(big.Int)}
}

// Bind implements chain.Bindable.
func (s *StakingPool) Bind(addr common.Address) { s.addr = addr }

// Address returns the pool's registered address.
func (s *StakingPool) Address() common.Address { return s.addr }

// Accrued returns the total rewards recorded so far. The returned value is a
// copy.
func (s *StakingPool) Accrued() *big.Int { return new(big.Int).Set(s.accrued) }

// NotifyReward records everything received since the last notification. Open
// to any caller: the balance delta, not the caller, is the source of truth.
func (s *StakingPool) NotifyReward(caller common.Address) error {
	if err := s.guard.Enter(); err != nil {
		return err
	}
	defer s.guard.Exit()

	balance := s.bank.BalanceOf(s.addr)
	delta := new(big.Int).Sub(balance, s.lastSeen)
	if delta.Sign() <= 0 {
		return ErrNoNewRewards
	}
	s.accrued.Add(s.accrued, delta)
	s.lastSeen.Set(balance)

	s.jrnl.Append(types.RewardsAccrued{Amount: delta, Total: new(big.Int).Set(s.accrued)})
	return nil
}

// Invoke implements chain.Contract.
func (s *StakingPool) Invoke(caller common.Address, value *big.Int, signature string, data []byte) error {
	if signature == SigNotifyReward {
		return s.NotifyReward(caller)
	}
	return fmt.Errorf("%w: %q", ErrRouterSignature, signature)
}

// stakingSnapshot is the Snapshotter state of a pool.
type stakingSnapshot struct {
	accrued  *big.Int
	lastSeen *big.Int
}

// Snapshot implements chain.Snapshotter.
func (s *StakingPool) Snapshot() any {
	return stakingSnapshot{
		accrued:  new(big.Int).Set(s.accrued),
		lastSeen: new(big.Int).Set(s.lastSeen),
	}
}

// Restore implements chain.Snapshotter.
func (s *StakingPool) Restore(snap any) {
	st := snap.(stakingSnapshot)
	s.accrued = new(big.Int).Set(st.accrued)
	s.lastSeen = new(big.Int).Set(st.lastSeen)
}

var _ chain.Contract = (*StakingPool)(nil)
