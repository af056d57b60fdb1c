package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Errors
var (
	ErrAlreadyVoted    = errors.New("voter already cast a vote")
	ErrProposalClosed  = errors.New("proposal is executed or canceled")
	ErrEtaAlreadySet   = errors.New("eta already set for this queue round")
	ErrNoVotingPower   = errors.New("vote carries no voting power")
	ErrEmptyActionList = errors.New("proposal has no actions")
)

// ProposalState is the resolved lifecycle state of a proposal.
type ProposalState uint8

const (
	StatePending ProposalState = iota
	StateActive
	StateCanceled
	StateDefeated
	StateSucceeded
	StateQueued
	StateExpired
	StateExecuted
)

// String returns the human-readable state name.
func (s ProposalState) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateActive:
		return "Active"
	case StateCanceled:
		return "Canceled"
	case StateDefeated:
		return "Defeated"
	case StateSucceeded:
		return "Succeeded"
	case StateQueued:
		return "Queued"
	case StateExpired:
		return "Expired"
	case StateExecuted:
		return "Executed"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// Receipt records a single account's vote on a proposal.
type Receipt struct {
	HasVoted bool
	Support  bool
	Votes    *big.Int
}

// Proposal is a governance proposal. Ids are monotonic and 1-based. A proposal
// is never deleted; executed and canceled proposals remain as an audit trail
// and admit no further state transition.
type Proposal struct {
	ID          uint64
	Proposer    common.Address
	Actions     []Action
	Description string

	// Voting window, in chain checkpoints. The window is half-open on the
	// left: voting is Active for checkpoints in (Start, End].
	StartCheckpoint uint64
	EndCheckpoint   uint64

	ForVotes     *big.Int
	AgainstVotes *big.Int

	// Eta is the earliest execution time, set at queue time. Zero until the
	// proposal is queued.
	Eta uint64

	Canceled bool
	Executed bool

	receipts map[common.Address]*Receipt
}

// NewProposal creates a proposal with zeroed vote totals.
func NewProposal(id uint64, proposer common.Address, actions []Action, description string, start, end uint64) (*Proposal, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrState, ErrEmptyActionList)
	}
	return &Proposal{
		ID:              id,
		Proposer:        proposer,
		Actions:         actions,
		Description:     description,
		StartCheckpoint: start,
		EndCheckpoint:   end,
		ForVotes:        new(big.Int),
		AgainstVotes:    new(big.Int),
		receipts:        make(map[common.Address]*Receipt),
	}, nil
}

// Terminal reports whether the proposal has reached a state that admits no
// further transition.
func (p *Proposal) Terminal() bool {
	return p.Canceled || p.Executed
}

// GetReceipt returns the vote receipt for voter, or nil if voter has not voted.
func (p *Proposal) GetReceipt(voter common.Address) *Receipt {
	return p.receipts[voter]
}

// RecordVote adds votes to the running totals and stores the voter's receipt.
// A voter may record at most one vote per proposal; re-voting fails and leaves
// the totals untouched.
func (p *Proposal) RecordVote(voter common.Address, support bool, votes *big.Int) error {
	if p.Terminal() {
		return fmt.Errorf("%w: %w", ErrState, ErrProposalClosed)
	}
	if r := p.receipts[voter]; r != nil && r.HasVoted {
		return fmt.Errorf("%w: %w", ErrState, ErrAlreadyVoted)
	}
	if votes == nil || votes.Sign() == 0 {
		return fmt.Errorf("%w: %w", ErrEconomic, ErrNoVotingPower)
	}
	if support {
		p.ForVotes = new(big.Int).Add(p.ForVotes, votes)
	} else {
		p.AgainstVotes = new(big.Int).Add(p.AgainstVotes, votes)
	}
	p.receipts[voter] = &Receipt{HasVoted: true, Support: support, Votes: new(big.Int).Set(votes)}
	return nil
}
