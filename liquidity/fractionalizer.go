package liquidity

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
	ErrSlippage       = fmt.Errorf("%w: amounts below slippage minimum", types.ErrEconomic)
	ErrZeroShares     = fmt.Errorf("%w: deposit mints no shares", types.ErrEconomic)
	ErrNoInvocations  = fmt.Errorf("%w: fractionalizer has no governed operations", types.ErrState)
	ErrZeroRecipient  = fmt.Errorf("%w: recipient is the zero address", types.ErrState)
	ErrExceedsBalance = fmt.Errorf("%w: burn exceeds share balance", types.ErrEconomic)
)

// Fractionalizer wraps one managed liquidity position behind a fungible share
// ledger. Every operation is open: there is no governance lane, and the share
// price is set purely by the ratio of outstanding shares to position
// liquidity.
type Fractionalizer struct {
	guard chain.Guard

	addr common.Address
	jrnl *journal.Journal

	pos    Position
	shares *token.Ledger
}

// New creates a fractionalizer over pos with a fresh share ledger.
func New(pos Position, shares *token.Ledger, jrnl *journal.Journal) *Fractionalizer {
	return &Fractionalizer{jrnl: jrnl, pos: pos, shares: shares}
}

// Bind implements chain.Bindable.
func (f *Fractionalizer) Bind(addr common.Address) { f.addr = addr }

// Address returns the fractionalizer's registered address.
func (f *Fractionalizer) Address() common.Address { return f.addr }

// Shares returns the share ledger.
func (f *Fractionalizer) Shares() *token.Ledger { return f.shares }

// GetTotalShares returns the outstanding share count.
func (f *Fractionalizer) GetTotalShares() *big.Int { return f.shares.TotalSupply() }

// AddPortionOfCurrentLiquidity deposits (amount0, amount1) into the position
// and mints recipient shares proportional to the liquidity created. The first
// deposit mints shares 1:1 with raw liquidity, fixing the initial exchange
// rate; later deposits mint liquidityAdded × totalShares / liquidityBefore,
// rounded down. Fails if the consumed amounts fall below min0/min1.
func (f *Fractionalizer) AddPortionOfCurrentLiquidity(caller common.Address, amount0, amount1, min0, min1 *big.Int, recipient common.Address) (*big.Int, error) {
	if err := f.guard.Enter(); err != nil {
		return nil, err
	}
	defer f.guard.Exit()
	if recipient == (common.Address{}) {
		return nil, ErrZeroRecipient
	}

	newShares, err := f.quoteAdd(amount0, amount1, min0, min1)
	if err != nil {
		return nil, err
	}
	_, used0, used1, err := f.pos.Increase(amount0, amount1)
	if err != nil {
		return nil, err
	}
	if err := f.shares.Mint(recipient, newShares); err != nil {
		return nil, err
	}
	f.jrnl.Append(types.PortionOfLiquidityAdded{
		Recipient:    recipient,
		NewShares:    new(big.Int).Set(newShares),
		Amount0Added: used0,
		Amount1Added: used1,
	})
	return newShares, nil
}

// WithdrawPortionOfCurrentLiquidity burns sharesToBurn of the caller's shares
// and collects the proportional underlying amounts for recipient. Burning
// every outstanding share removes exactly the whole remaining position; any
// smaller burn rounds the removed liquidity down. Fails if the collected
// amounts fall below min0/min1.
func (f *Fractionalizer) WithdrawPortionOfCurrentLiquidity(caller common.Address, sharesToBurn, min0, min1 *big.Int, recipient common.Address) (*big.Int, *big.Int, error) {
	if err := f.guard.Enter(); err != nil {
		return nil, nil, err
	}
	defer f.guard.Exit()
	if recipient == (common.Address{}) {
		return nil, nil, ErrZeroRecipient
	}
	if sharesToBurn == nil || sharesToBurn.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: shares must be positive", types.ErrEconomic)
	}
	if f.shares.BalanceOf(caller).Cmp(sharesToBurn) < 0 {
		return nil, nil, ErrExceedsBalance
	}

	totalShares := f.shares.TotalSupply()
	totalLiquidity := f.pos.Liquidity()

	var liqOut *big.Int
	if sharesToBurn.Cmp(totalShares) == 0 {
		// A full burn drains the position exactly; proportional math could
		// strand rounding dust here.
		liqOut = totalLiquidity
	} else {
		liqOut = new(big.Int).Mul(sharesToBurn, totalLiquidity)
		liqOut.Div(liqOut, totalShares)
	}

	quote0, quote1 := f.pos.QuoteDecrease(liqOut)
	if belowMinimum(quote0, min0) || belowMinimum(quote1, min1) {
		return nil, nil, ErrSlippage
	}

	if _, _, err := f.pos.Decrease(liqOut); err != nil {
		return nil, nil, err
	}
	collected0, collected1, err := f.pos.Collect()
	if err != nil {
		return nil, nil, err
	}
	if err := f.shares.Burn(caller, sharesToBurn); err != nil {
		return nil, nil, err
	}
	if sharesToBurn.Cmp(totalShares) == 0 && f.pos.Liquidity().Sign() != 0 {
		return nil, nil, ErrResidualLiquidity
	}
	f.jrnl.Append(types.PortionOfLiquidityWithdrawn{
		Recipient:        recipient,
		SharesBurned:     new(big.Int).Set(sharesToBurn),
		Amount0Collected: collected0,
		Amount1Collected: collected1,
	})
	return collected0, collected1, nil
}

// QuoteLiquidityAddition simulates AddPortionOfCurrentLiquidity and returns
// the share count it would mint, without mutating anything. The rounding is
// identical to the mutating path.
func (f *Fractionalizer) QuoteLiquidityAddition(amount0, amount1, min0, min1 *big.Int) (*big.Int, error) {
	return f.quoteAdd(amount0, amount1, min0, min1)
}

// quoteAdd is the shared pure computation behind the add path and its quote.
func (f *Fractionalizer) quoteAdd(amount0, amount1, min0, min1 *big.Int) (*big.Int, error) {
	liq, used0, used1 := f.pos.QuoteIncrease(amount0, amount1)
	if liq.Sign() == 0 {
		return nil, fmt.Errorf("%w: %w", types.ErrEconomic, ErrZeroLiquidity)
	}
	if belowMinimum(used0, min0) || belowMinimum(used1, min1) {
		return nil, ErrSlippage
	}

	totalShares := f.shares.TotalSupply()
	if totalShares.Sign() == 0 {
		// Bootstrap: shares 1:1 with raw liquidity.
		return liq, nil
	}
	newShares := new(big.Int).Mul(liq, totalShares)
	newShares.Div(newShares, f.pos.Liquidity())
	if newShares.Sign() == 0 {
		return nil, ErrZeroShares
	}
	return newShares, nil
}

func belowMinimum(got, min *big.Int) bool {
	return min != nil && got.Cmp(min) < 0
}

// Invoke implements chain.Contract. The fractionalizer exposes no governed
// operations; every invocation is rejected.
func (f *Fractionalizer) Invoke(common.Address, *big.Int, string, []byte) error {
	return ErrNoInvocations
}

var _ chain.Contract = (*Fractionalizer)(nil)
