package main

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alchemydao/alchemist/chain"
	"github.com/alchemydao/alchemist/factory"
	"github.com/alchemydao/alchemist/governance"
	"github.com/alchemydao/alchemist/journal"
	"github.com/alchemydao/alchemist/liquidity"
	"github.com/alchemydao/alchemist/types"
	"github.com/alchemydao/alchemist/vault"
)

// Demo actors.
var (
	deployer  = common.HexToAddress("0x0000000000000000000000000000000000000d01")
	depositor = common.HexToAddress("0x0000000000000000000000000000000000000d02")
	buyer     = common.HexToAddress("0x0000000000000000000000000000000000000d03")
	treasury  = common.HexToAddress("0x0000000000000000000000000000000000000d05")
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run end-to-end scenarios against an in-memory ledger",
}

var demoGovernanceCmd = &cobra.Command{
	Use:   "governance",
	Short: "Deploy a vault triad and push a proposal through its full lifecycle",
	RunE:  func(cmd *cobra.Command, args []string) error { return runGovernanceDemo() },
}

var demoLiquidityCmd = &cobra.Command{
	Use:   "liquidity",
	Short: "Fractionalize a liquidity position and run deposits and withdrawals",
	RunE:  func(cmd *cobra.Command, args []string) error { return runLiquidityDemo() },
}

func init() {
	demoCmd.AddCommand(demoGovernanceCmd)
	demoCmd.AddCommand(demoLiquidityCmd)
}

// newJournal opens the configured journal sink, or an in-memory journal.
func newJournal(log *zap.Logger) (*journal.Journal, error) {
	if cfg.Journal.Path == "" {
		return journal.New(), nil
	}
	sink, err := journal.NewFileSink(cfg.Journal.Path)
	if err != nil {
		return nil, err
	}
	log.Info("journaling events", zap.String("path", cfg.Journal.Path))
	return journal.NewWithSink(sink), nil
}

func runGovernanceDemo() error {
	run := uuid.New().String()
	log := logger.With(zap.String("run", run))
	log.Info("starting governance demo")

	reg := chain.NewRegistry()
	bank := chain.NewBank()
	clock := chain.NewSimClock(100, 1_700_000_000)
	jrnl, err := newJournal(log)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	coll := chain.NewNFTCollection("Minty", "MNT")
	reg.Register(coll)

	fac := factory.New(reg, bank, clock, jrnl, deployer, cfg.Vault.FeeBps, cfg.GovernorConfig())
	facAddr := reg.Register(fac)
	pool := factory.NewStakingPool(bank, jrnl)
	poolAddr := reg.Register(pool)
	routerAddr, err := fac.NewAlchemyRouter(deployer, poolAddr, treasury)
	if err != nil {
		return err
	}

	// The depositor wraps two assets into a fresh triad.
	for _, id := range []int64{0, 1} {
		if err := coll.Mint(depositor, big.NewInt(id)); err != nil {
			return err
		}
		if err := coll.Approve(depositor, facAddr, big.NewInt(id)); err != nil {
			return err
		}
	}
	dep, err := fac.NFTDAOMint(depositor, factory.MintParams{
		Collections:   []common.Address{coll.Address(), coll.Address()},
		TokenIDs:      []*big.Int{big.NewInt(0), big.NewInt(1)},
		TotalSupply:   big.NewInt(1_000_000),
		Name:          "Alchemy",
		Symbol:        "ALCH",
		BuyoutPrice:   eth(1),
		VotingPeriod:  cfg.Governance.VotingPeriod,
		TimelockDelay: cfg.Timelock.Delay,
	})
	if err != nil {
		return err
	}
	log.Info("deployed triad",
		zap.String("vault", dep.Vault.Hex()),
		zap.String("governor", dep.Governor.Hex()),
		zap.String("timelock", dep.Timelock.Hex()))

	v := mustLookup(reg, dep.Vault).(*vault.Vault)
	gov := mustLookup(reg, dep.Governor).(*governance.Governor)

	// Voting power only exists once delegated and checkpointed.
	if err := v.Delegate(depositor, depositor); err != nil {
		return err
	}
	clock.Advance(1)

	actions := []types.Action{
		{Target: dep.Vault, Signature: vault.SigChangeBuyoutPrice, Data: vault.PackChangeBuyoutPrice(eth(5))},
		{Target: dep.Vault, Signature: vault.SigMintSharesForSale, Data: vault.PackMintSharesForSale(eth(1))},
	}
	id, err := gov.Propose(depositor, actions, "raise the buyout price and open a share sale")
	if err != nil {
		return err
	}
	log.Info("proposal opened", zap.Uint64("id", id))

	clock.Advance(cfg.Governance.VotingDelay + 1)
	if err := gov.CastVote(depositor, id, true); err != nil {
		return err
	}
	clock.Advance(cfg.Governance.VotingPeriod)

	if err := gov.Queue(depositor, id); err != nil {
		return err
	}
	state, _ := gov.State(id)
	log.Info("proposal queued", zap.String("state", state.String()))

	clock.AdvanceTime(cfg.Timelock.Delay)
	if err := gov.Execute(depositor, id); err != nil {
		return err
	}
	log.Info("proposal executed",
		zap.String("buyoutPrice", v.BuyoutPrice().String()),
		zap.String("sharesForSale", v.SharesForSale().String()))

	// The opened sale can now be filled by anyone.
	bank.Mint(buyer, eth(10))
	amount := new(big.Int).Div(eth(1), big.NewInt(2))
	cost := new(big.Int).Mul(amount, v.BuyoutPrice())
	cost.Div(cost, v.Shares().TotalSupply())
	if err := v.BuyShares(buyer, amount, cost); err != nil {
		return err
	}
	log.Info("shares bought",
		zap.String("amount", amount.String()),
		zap.String("cost", cost.String()),
		zap.String("remainingForSale", v.SharesForSale().String()))

	// Sweep the protocol fee through the router into the staking pool.
	if err := reg.Invoke(buyer, routerAddr, nil, factory.SigDeposit, nil); err != nil {
		return err
	}
	if err := pool.NotifyReward(buyer); err != nil {
		return err
	}
	log.Info("fees distributed",
		zap.String("stakingAccrued", pool.Accrued().String()),
		zap.String("treasury", bank.BalanceOf(treasury).String()))

	log.Info("governance demo finished", zap.Int("journaledEvents", jrnl.Len()))
	return nil
}

func runLiquidityDemo() error {
	run := uuid.New().String()
	log := logger.With(zap.String("run", run))
	log.Info("starting liquidity demo")

	reg := chain.NewRegistry()
	bank := chain.NewBank()
	clock := chain.NewSimClock(100, 1_700_000_000)
	jrnl, err := newJournal(log)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	fac := factory.New(reg, bank, clock, jrnl, deployer, cfg.Vault.FeeBps, cfg.GovernorConfig())
	reg.Register(fac)

	pos := liquidity.NewSimPosition(big.NewInt(cfg.Liquidity.Rate))
	addr, err := fac.UNIV3ERC20Mint(deployer, pos, "UniV3 Wrapper", "UNIW")
	if err != nil {
		return err
	}
	frac := mustLookup(reg, addr).(*liquidity.Fractionalizer)
	log.Info("deployed fractionalizer", zap.String("address", addr.Hex()))

	first, err := frac.AddPortionOfCurrentLiquidity(depositor,
		big.NewInt(1_000), big.NewInt(1_000*cfg.Liquidity.Rate), nil, nil, depositor)
	if err != nil {
		return err
	}
	log.Info("bootstrap deposit", zap.String("shares", first.String()))

	quote, err := frac.QuoteLiquidityAddition(big.NewInt(500), big.NewInt(500*cfg.Liquidity.Rate), nil, nil)
	if err != nil {
		return err
	}
	second, err := frac.AddPortionOfCurrentLiquidity(buyer,
		big.NewInt(500), big.NewInt(500*cfg.Liquidity.Rate), nil, nil, buyer)
	if err != nil {
		return err
	}
	log.Info("second deposit",
		zap.String("quoted", quote.String()),
		zap.String("minted", second.String()))

	got0, got1, err := frac.WithdrawPortionOfCurrentLiquidity(buyer, second, nil, nil, buyer)
	if err != nil {
		return err
	}
	log.Info("withdrawal",
		zap.String("token0", got0.String()),
		zap.String("token1", got1.String()),
		zap.String("totalShares", frac.GetTotalShares().String()))

	log.Info("liquidity demo finished", zap.Int("journaledEvents", jrnl.Len()))
	return nil
}

func mustLookup(reg *chain.Registry, addr common.Address) chain.Contract {
	c, ok := reg.Lookup(addr)
	if !ok {
		panic("unregistered address " + addr.Hex())
	}
	return c
}

// eth returns n * 1e18.
func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}
