package governance

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alchemydao/alchemist/chain"
	"github.com/alchemydao/alchemist/journal"
	"github.com/alchemydao/alchemist/timelock"
	"github.com/alchemydao/alchemist/types"
)

// Errors
var (
	ErrUnknownProposal    = errors.New("unknown proposal id")
	ErrBelowThreshold     = errors.New("proposer votes below proposal threshold")
	ErrLiveProposal       = errors.New("proposer already has a live proposal")
	ErrVotingClosed       = errors.New("voting is not active")
	ErrNotSucceeded       = errors.New("proposal has not succeeded")
	ErrNotQueued          = errors.New("proposal is not queued")
	ErrBeforeEta          = errors.New("eta has not been reached")
	ErrAlreadyExecuted    = errors.New("proposal already executed")
	ErrNotProposerOrGuard = errors.New("caller is neither proposer nor guardian")
	ErrNoInvocations      = errors.New("governor has no invocable operations")
	ErrAlreadyInitialized = errors.New("governor already initialized")
)

// VoteSource resolves historical voting power and total supply. The share
// ledger of the governed vault implements it.
type VoteSource interface {
	PriorVotes(account common.Address, checkpoint uint64) (*big.Int, error)
	TotalSupply() *big.Int
}

// Governor is the governance engine for one vault: the proposal lifecycle,
// vote tallying and the queue/execute bridge into the execution timelock.
type Governor struct {
	guard chain.Guard

	addr common.Address
	cfg  Config

	clock chain.Clock
	reg   *chain.Registry
	jrnl  *journal.Journal

	votes VoteSource
	tl    *timelock.Timelock

	proposalCount uint64
	proposals     map[uint64]*types.Proposal

	// latest remembers each proposer's most recent proposal so a proposer
	// can hold at most one Pending/Active proposal at a time.
	latest map[common.Address]uint64

	initialized bool
}

// New creates an uninitialized governor.
func New(cfg Config, clock chain.Clock, reg *chain.Registry, jrnl *journal.Journal) *Governor {
	return &Governor{
		cfg:       cfg,
		clock:     clock,
		reg:       reg,
		jrnl:      jrnl,
		proposals: make(map[uint64]*types.Proposal),
		latest:    make(map[common.Address]uint64),
	}
}

// zeroVotes is the vote source wired into template governors: no account
// ever holds power and the supply is zero, so no proposal can be opened on
// a template.
type zeroVotes struct{}

func (zeroVotes) PriorVotes(common.Address, uint64) (*big.Int, error) { return new(big.Int), nil }
func (zeroVotes) TotalSupply() *big.Int                               { return new(big.Int) }

// NewTemplate returns a permanently unusable governor. Factories register
// one per deployment as the canonical template; it can never be initialized
// again and never accepts a proposal.
func NewTemplate(clock chain.Clock, reg *chain.Registry, jrnl *journal.Journal) *Governor {
	g := New(DefaultConfig(), clock, reg, jrnl)
	g.votes = zeroVotes{}
	g.initialized = true
	return g
}

// Bind implements chain.Bindable.
func (g *Governor) Bind(addr common.Address) { g.addr = addr }

// Address returns the governor's registered address.
func (g *Governor) Address() common.Address { return g.addr }

// Timelock returns the wired execution timelock.
func (g *Governor) Timelock() *timelock.Timelock { return g.tl }

// Initialize wires the vote source and timelock. It can only be called once;
// the clone factory locks template instances by initializing them against the
// sentinel wiring.
func (g *Governor) Initialize(votes VoteSource, tl *timelock.Timelock) error {
	if g.initialized {
		return fmt.Errorf("%w: %w", types.ErrState, ErrAlreadyInitialized)
	}
	if err := g.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrState, err)
	}
	g.votes = votes
	g.tl = tl
	g.initialized = true
	return nil
}

// ProposalCount returns the number of proposals ever created.
func (g *Governor) ProposalCount() uint64 { return g.proposalCount }

// Proposal returns the proposal with the given id.
func (g *Governor) Proposal(id uint64) (*types.Proposal, error) {
	p, ok := g.proposals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %d", types.ErrState, ErrUnknownProposal, id)
	}
	return p, nil
}

// QuorumVotes returns the current quorum requirement in votes.
func (g *Governor) QuorumVotes() *big.Int {
	return bpsOfSupply(g.votes.TotalSupply(), g.cfg.QuorumBps)
}

// ProposalThreshold returns the current proposal threshold in votes.
func (g *Governor) ProposalThreshold() *big.Int {
	return bpsOfSupply(g.votes.TotalSupply(), g.cfg.ProposalThresholdBps)
}

// Propose opens a new proposal over the given actions and returns its id.
// The proposer's voting power at the previous checkpoint must exceed the
// proposal threshold, and the proposer must not already have a proposal that
// is still Pending or Active.
func (g *Governor) Propose(caller common.Address, actions []types.Action, description string) (uint64, error) {
	if err := g.guard.Enter(); err != nil {
		return 0, err
	}
	defer g.guard.Exit()

	power, err := g.votes.PriorVotes(caller, g.clock.Checkpoint()-1)
	if err != nil {
		return 0, err
	}
	if power.Cmp(g.ProposalThreshold()) <= 0 {
		return 0, fmt.Errorf("%w: %w: have %s, need > %s",
			types.ErrAuthorization, ErrBelowThreshold, power, g.ProposalThreshold())
	}

	if lastID, ok := g.latest[caller]; ok {
		switch g.stateOf(g.proposals[lastID]) {
		case types.StatePending, types.StateActive:
			return 0, fmt.Errorf("%w: %w: proposal %d", types.ErrState, ErrLiveProposal, lastID)
		}
	}

	start := g.clock.Checkpoint() + g.cfg.VotingDelay
	end := start + g.cfg.VotingPeriod

	g.proposalCount++
	p, err := types.NewProposal(g.proposalCount, caller, actions, description, start, end)
	if err != nil {
		g.proposalCount--
		return 0, err
	}
	g.proposals[p.ID] = p
	g.latest[caller] = p.ID

	g.jrnl.Append(types.ProposalCreated{
		ID:              p.ID,
		Proposer:        caller,
		StartCheckpoint: start,
		EndCheckpoint:   end,
		Description:     description,
	})
	return p.ID, nil
}

// CastVote records the caller's vote on an Active proposal. The weight is the
// caller's voting power at the proposal's start checkpoint, never the live
// balance.
func (g *Governor) CastVote(caller common.Address, id uint64, support bool) error {
	if err := g.guard.Enter(); err != nil {
		return err
	}
	defer g.guard.Exit()

	p, err := g.Proposal(id)
	if err != nil {
		return err
	}
	if g.stateOf(p) != types.StateActive {
		return fmt.Errorf("%w: %w: proposal %d is %s", types.ErrState, ErrVotingClosed, id, g.stateOf(p))
	}

	votes, err := g.votes.PriorVotes(caller, p.StartCheckpoint)
	if err != nil {
		return err
	}
	if err := p.RecordVote(caller, support, votes); err != nil {
		return err
	}

	g.jrnl.Append(types.VoteCast{Voter: caller, ProposalID: id, Support: support, Votes: votes})
	return nil
}

// Queue hands every action of a Succeeded proposal to the timelock under a
// shared eta of now plus the timelock delay. Queueing is atomic: if any
// action collides with an already-pending tuple, the timelock is rolled back
// and the proposal stays Succeeded. An Expired proposal whose vote still
// stands may be re-queued with a fresh eta.
func (g *Governor) Queue(caller common.Address, id uint64) error {
	if err := g.guard.Enter(); err != nil {
		return err
	}
	defer g.guard.Exit()

	p, err := g.Proposal(id)
	if err != nil {
		return err
	}
	switch g.stateOf(p) {
	case types.StateSucceeded, types.StateExpired:
	default:
		return fmt.Errorf("%w: %w: proposal %d is %s", types.ErrState, ErrNotSucceeded, id, g.stateOf(p))
	}

	eta := g.clock.Now() + g.tl.Delay()
	snap := g.tl.Snapshot()
	g.jrnl.Begin()
	for _, action := range p.Actions {
		if _, err := g.tl.QueueTransaction(g.addr, action, eta); err != nil {
			g.tl.Restore(snap)
			g.jrnl.Discard()
			return err
		}
	}
	p.Eta = eta
	g.jrnl.Commit()

	g.jrnl.Append(types.ProposalQueued{ID: id, Eta: eta})
	return nil
}

// Execute forwards every action of a Queued proposal to the timelock for
// execution and marks the proposal Executed. Execution is atomic across all
// actions: a full chain-state snapshot is taken first, and any action failure
// restores it, leaving the proposal Queued.
func (g *Governor) Execute(caller common.Address, id uint64) error {
	if err := g.guard.Enter(); err != nil {
		return err
	}
	defer g.guard.Exit()

	p, err := g.Proposal(id)
	if err != nil {
		return err
	}
	if g.stateOf(p) != types.StateQueued {
		return fmt.Errorf("%w: %w: proposal %d is %s", types.ErrState, ErrNotQueued, id, g.stateOf(p))
	}
	if g.clock.Now() < p.Eta {
		return fmt.Errorf("%w: %w: now %d, eta %d", types.ErrState, ErrBeforeEta, g.clock.Now(), p.Eta)
	}

	// The snapshot rewinds contract state on failure; the staging scope
	// keeps the already-executed actions' events out of the log with it.
	snaps := g.reg.SnapshotAll()
	g.jrnl.Begin()
	for _, action := range p.Actions {
		if err := g.tl.ExecuteTransaction(g.addr, action, p.Eta); err != nil {
			g.reg.RestoreAll(snaps)
			g.jrnl.Discard()
			return err
		}
	}
	p.Executed = true
	g.jrnl.Commit()

	g.jrnl.Append(types.ProposalExecuted{ID: id})
	return nil
}

// Cancel permanently cancels a proposal that has not executed. Only the
// proposer or the configured guardian may cancel. Queued actions are removed
// from the timelock.
func (g *Governor) Cancel(caller common.Address, id uint64) error {
	if err := g.guard.Enter(); err != nil {
		return err
	}
	defer g.guard.Exit()

	p, err := g.Proposal(id)
	if err != nil {
		return err
	}
	if caller != p.Proposer && (g.cfg.Guardian == common.Address{} || caller != g.cfg.Guardian) {
		return fmt.Errorf("%w: %w", types.ErrAuthorization, ErrNotProposerOrGuard)
	}
	if p.Executed {
		return fmt.Errorf("%w: %w", types.ErrState, ErrAlreadyExecuted)
	}
	if p.Canceled {
		return fmt.Errorf("%w: proposal %d already canceled", types.ErrState, id)
	}

	p.Canceled = true
	if p.Eta != 0 {
		for _, action := range p.Actions {
			// Individual actions may already have executed or expired out
			// of the queue; only pending ones need removal.
			err := g.tl.CancelTransaction(g.addr, action, p.Eta)
			if err != nil && !errors.Is(err, timelock.ErrNotQueued) {
				return err
			}
		}
	}

	g.jrnl.Append(types.ProposalCanceled{ID: id})
	return nil
}

// State resolves the proposal's current lifecycle state.
func (g *Governor) State(id uint64) (types.ProposalState, error) {
	p, err := g.Proposal(id)
	if err != nil {
		return 0, err
	}
	return g.stateOf(p), nil
}

// stateOf resolves state from the proposal record and the clock. Resolution
// order matters: terminal flags first, then the voting window, then the vote
// outcome, then the queue/expiry window.
func (g *Governor) stateOf(p *types.Proposal) types.ProposalState {
	now := g.clock.Checkpoint()
	switch {
	case p.Canceled:
		return types.StateCanceled
	case now <= p.StartCheckpoint:
		return types.StatePending
	case now <= p.EndCheckpoint:
		return types.StateActive
	case p.ForVotes.Cmp(p.AgainstVotes) <= 0 || p.ForVotes.Cmp(g.QuorumVotes()) < 0:
		return types.StateDefeated
	case p.Eta == 0:
		return types.StateSucceeded
	case p.Executed:
		return types.StateExecuted
	case g.clock.Now() > p.Eta+timelock.GracePeriod:
		return types.StateExpired
	default:
		return types.StateQueued
	}
}

// Invoke implements chain.Contract. The governor exposes no governed
// operations; it exists in the registry only to occupy its address.
func (g *Governor) Invoke(caller common.Address, value *big.Int, signature string, data []byte) error {
	return fmt.Errorf("%w: %w: %q", types.ErrState, ErrNoInvocations, signature)
}

// bpsOfSupply returns supply × bps / 10000, rounding down.
func bpsOfSupply(supply *big.Int, bps uint64) *big.Int {
	out := new(big.Int).Mul(supply, new(big.Int).SetUint64(bps))
	return out.Div(out, big.NewInt(bpsDenominator))
}
