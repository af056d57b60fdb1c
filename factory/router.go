package factory

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alchemydao/alchemist/chain"
	"github.com/alchemydao/alchemist/journal"
	"github.com/alchemydao/alchemist/types"
)

// SigDeposit distributes the router's accumulated balance.
const SigDeposit = "deposit()"

var (
	ErrNothingToDeposit = fmt.Errorf("%w: router balance is zero", types.ErrEconomic)
	ErrRouterSignature  = fmt.Errorf("%w: unknown operation signature", types.ErrState)
)

// Router receives protocol fees from vaults and splits them evenly between
// the staking target and the treasury. Fees accumulate passively as plain
// balance transfers; Deposit is open to anyone and pays out the whole
// accumulated balance.
type Router struct {
	guard chain.Guard

	addr common.Address
	bank *chain.Bank
	jrnl *journal.Journal

	staking  common.Address
	treasury common.Address
}

// NewRouter creates a router paying out to staking and treasury.
func NewRouter(bank *chain.Bank, jrnl *journal.Journal, staking, treasury common.Address) *Router {
	return &Router{bank: bank, jrnl: jrnl, staking: staking, treasury: treasury}
}

// Bind implements chain.Bindable.
func (r *Router) Bind(addr common.Address) { r.addr = addr }

// Address returns the router's registered address.
func (r *Router) Address() common.Address { return r.addr }

// Staking returns the staking payout target.
func (r *Router) Staking() common.Address { return r.staking }

// Treasury returns the treasury payout target.
func (r *Router) Treasury() common.Address { return r.treasury }

// Deposit splits the router's entire balance between staking and treasury.
// The treasury takes the odd unit when the balance does not halve evenly.
func (r *Router) Deposit(caller common.Address) error {
	if err := r.guard.Enter(); err != nil {
		return err
	}
	defer r.guard.Exit()

	balance := r.bank.BalanceOf(r.addr)
	if balance.Sign() == 0 {
		return ErrNothingToDeposit
	}
	toStaking := new(big.Int).Div(balance, big.NewInt(2))
	toTreasury := new(big.Int).Sub(balance, toStaking)

	if toStaking.Sign() > 0 {
		if err := r.bank.Transfer(r.addr, r.staking, toStaking); err != nil {
			return err
		}
	}
	if err := r.bank.Transfer(r.addr, r.treasury, toTreasury); err != nil {
		return err
	}
	r.jrnl.Append(types.FeeDistributed{ToStaking: toStaking, ToTreasury: toTreasury})
	return nil
}

// Invoke implements chain.Contract.
func (r *Router) Invoke(caller common.Address, value *big.Int, signature string, data []byte) error {
	if signature == SigDeposit {
		return r.Deposit(caller)
	}
	return fmt.Errorf("%w: %q", ErrRouterSignature, signature)
}

var _ chain.Contract = (*Router)(nil)
