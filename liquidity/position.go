package liquidity

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/alchemydao/alchemist/chain"
	"github.com/alchemydao/alchemist/types"
)

var (
	ErrZeroLiquidity     = errors.New("deposit creates no liquidity")
	ErrExceedsLiquidity  = errors.New("removal exceeds position liquidity")
	ErrNothingToCollect  = errors.New("no owed amounts to collect")
	ErrResidualLiquidity = fmt.Errorf("%w: full burn left residual liquidity", types.ErrInvariant)
)

// Position is the managed concentrated-liquidity position a fractionalizer
// wraps. Quote methods are pure: they compute exactly what the mutating
// counterpart would do without changing any state, so callers can validate
// slippage bounds before committing.
type Position interface {
	// Liquidity returns the position's current total liquidity.
	Liquidity() *big.Int

	// QuoteIncrease computes the liquidity a deposit of (amount0, amount1)
	// would create and the amounts actually consumed.
	QuoteIncrease(amount0, amount1 *big.Int) (liquidity, used0, used1 *big.Int)

	// Increase deposits (amount0, amount1), creating liquidity. Returns the
	// liquidity created and the amounts consumed; the remainder of either
	// token stays with the depositor.
	Increase(amount0, amount1 *big.Int) (liquidity, used0, used1 *big.Int, err error)

	// QuoteDecrease computes the token amounts removing liquidity would owe.
	QuoteDecrease(liquidity *big.Int) (amount0, amount1 *big.Int)

	// Decrease removes liquidity from the position, crediting the owed token
	// amounts for a later Collect.
	Decrease(liquidity *big.Int) (amount0, amount1 *big.Int, err error)

	// Collect pays out everything owed and returns the amounts paid.
	Collect() (amount0, amount1 *big.Int, err error)
}

// SimPosition is a deterministic in-memory position at a fixed exchange rate:
// one unit of liquidity always consumes one unit of token0 and rate units of
// token1. Real positions price against a curve; the fixed rate keeps the
// share math exactly observable in tests and demos.
type SimPosition struct {
	rate      *big.Int
	liquidity *big.Int
	owed0     *big.Int
	owed1     *big.Int
}

// NewSimPosition creates an empty position with the given token1-per-token0
// rate. A non-positive rate is normalized to 1.
func NewSimPosition(rate *big.Int) *SimPosition {
	if rate == nil || rate.Sign() <= 0 {
		rate = big.NewInt(1)
	}
	return &SimPosition{
		rate:      new(big.Int).Set(rate),
		liquidity: new(big.Int),
		owed0:     new(big.Int),
		owed1:     new(big.Int),
	}
}

// Liquidity implements Position.
func (p *SimPosition) Liquidity() *big.Int { return new(big.Int).Set(p.liquidity) }

// QuoteIncrease implements Position. Liquidity created is the largest L with
// L ≤ amount0 and L×rate ≤ amount1.
func (p *SimPosition) QuoteIncrease(amount0, amount1 *big.Int) (*big.Int, *big.Int, *big.Int) {
	if amount0 == nil || amount1 == nil || amount0.Sign() <= 0 || amount1.Sign() <= 0 {
		return new(big.Int), new(big.Int), new(big.Int)
	}
	byToken1 := new(big.Int).Div(amount1, p.rate)
	liq := new(big.Int).Set(amount0)
	if byToken1.Cmp(liq) < 0 {
		liq.Set(byToken1)
	}
	used0 := new(big.Int).Set(liq)
	used1 := new(big.Int).Mul(liq, p.rate)
	return liq, used0, used1
}

// Increase implements Position.
func (p *SimPosition) Increase(amount0, amount1 *big.Int) (*big.Int, *big.Int, *big.Int, error) {
	liq, used0, used1 := p.QuoteIncrease(amount0, amount1)
	if liq.Sign() == 0 {
		return nil, nil, nil, fmt.Errorf("%w: %w", types.ErrEconomic, ErrZeroLiquidity)
	}
	p.liquidity.Add(p.liquidity, liq)
	return liq, used0, used1, nil
}

// QuoteDecrease implements Position.
func (p *SimPosition) QuoteDecrease(liquidity *big.Int) (*big.Int, *big.Int) {
	if liquidity == nil || liquidity.Sign() <= 0 {
		return new(big.Int), new(big.Int)
	}
	return new(big.Int).Set(liquidity), new(big.Int).Mul(liquidity, p.rate)
}

// Decrease implements Position.
func (p *SimPosition) Decrease(liquidity *big.Int) (*big.Int, *big.Int, error) {
	if liquidity == nil || liquidity.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: %w", types.ErrEconomic, ErrZeroLiquidity)
	}
	if liquidity.Cmp(p.liquidity) > 0 {
		return nil, nil, fmt.Errorf("%w: %w", types.ErrState, ErrExceedsLiquidity)
	}
	a0, a1 := p.QuoteDecrease(liquidity)
	p.liquidity.Sub(p.liquidity, liquidity)
	p.owed0.Add(p.owed0, a0)
	p.owed1.Add(p.owed1, a1)
	return a0, a1, nil
}

// Collect implements Position.
func (p *SimPosition) Collect() (*big.Int, *big.Int, error) {
	if p.owed0.Sign() == 0 && p.owed1.Sign() == 0 {
		return nil, nil, fmt.Errorf("%w: %w", types.ErrState, ErrNothingToCollect)
	}
	a0 := new(big.Int).Set(p.owed0)
	a1 := new(big.Int).Set(p.owed1)
	p.owed0.SetInt64(0)
	p.owed1.SetInt64(0)
	return a0, a1, nil
}

// simPositionSnapshot is the Snapshotter state of a SimPosition.
type simPositionSnapshot struct {
	liquidity *big.Int
	owed0     *big.Int
	owed1     *big.Int
}

// Snapshot implements chain.Snapshotter.
func (p *SimPosition) Snapshot() any {
	return simPositionSnapshot{
		liquidity: new(big.Int).Set(p.liquidity),
		owed0:     new(big.Int).Set(p.owed0),
		owed1:     new(big.Int).Set(p.owed1),
	}
}

// Restore implements chain.Snapshotter.
func (p *SimPosition) Restore(snap any) {
	s := snap.(simPositionSnapshot)
	p.liquidity = new(big.Int).Set(s.liquidity)
	p.owed0 = new(big.Int).Set(s.owed0)
	p.owed1 = new(big.Int).Set(s.owed1)
}

var _ Position = (*SimPosition)(nil)
var _ chain.Snapshotter = (*SimPosition)(nil)
