package token

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alchemydao/alchemist/types"
)

// ErrCheckpointNotPast is returned when a prior-votes lookup targets the
// current or a future checkpoint, where the answer is not yet final.
var ErrCheckpointNotPast = errors.New("checkpoint not yet finalized")

// Checkpoint records a delegate's voting power from a given checkpoint number
// onward. A delegate's checkpoint log is append-only and strictly increasing
// in FromCheckpoint, except that multiple changes within the same checkpoint
// collapse into one record.
type Checkpoint struct {
	FromCheckpoint uint64
	Votes          *big.Int
}

// CurrentVotes returns delegate's present voting power.
func (l *Ledger) CurrentVotes(delegate common.Address) *big.Int {
	cps := l.checkpoints[delegate]
	if len(cps) == 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(cps[len(cps)-1].Votes)
}

// PriorVotes returns delegate's voting power as of a past checkpoint, by
// binary search over the delegate's checkpoint log. It never consults the
// live balance. The target checkpoint must already be final, i.e. strictly
// before the clock's current checkpoint.
func (l *Ledger) PriorVotes(delegate common.Address, checkpoint uint64) (*big.Int, error) {
	if checkpoint >= l.clock.Checkpoint() {
		return nil, fmt.Errorf("%w: %w: %d", types.ErrState, ErrCheckpointNotPast, checkpoint)
	}

	cps := l.checkpoints[delegate]
	// First index with FromCheckpoint > checkpoint; the record before it, if
	// any, is the one in force at the target checkpoint.
	i := sort.Search(len(cps), func(i int) bool {
		return cps[i].FromCheckpoint > checkpoint
	})
	if i == 0 {
		return new(big.Int), nil
	}
	return new(big.Int).Set(cps[i-1].Votes), nil
}

// Checkpoints returns a copy of delegate's checkpoint log.
func (l *Ledger) Checkpoints(delegate common.Address) []Checkpoint {
	cps := l.checkpoints[delegate]
	out := make([]Checkpoint, len(cps))
	for i, cp := range cps {
		out[i] = Checkpoint{FromCheckpoint: cp.FromCheckpoint, Votes: new(big.Int).Set(cp.Votes)}
	}
	return out
}

// moveDelegates shifts amount of voting power from one delegate's running
// total to another's, appending a checkpoint for each affected delegate. The
// zero address means "no delegate" and accrues nothing.
func (l *Ledger) moveDelegates(from, to common.Address, amount *big.Int) {
	if from == to || amount == nil || amount.Sign() == 0 {
		return
	}
	if from != (common.Address{}) {
		old := l.CurrentVotes(from)
		l.writeCheckpoint(from, old, new(big.Int).Sub(old, amount))
	}
	if to != (common.Address{}) {
		old := l.CurrentVotes(to)
		l.writeCheckpoint(to, old, new(big.Int).Add(old, amount))
	}
}

// writeCheckpoint appends (or, within the same checkpoint number, overwrites)
// delegate's latest voting-power record.
func (l *Ledger) writeCheckpoint(delegate common.Address, oldVotes, newVotes *big.Int) {
	now := l.clock.Checkpoint()
	cps := l.checkpoints[delegate]
	if n := len(cps); n > 0 && cps[n-1].FromCheckpoint == now {
		cps[n-1].Votes = new(big.Int).Set(newVotes)
	} else {
		l.checkpoints[delegate] = append(cps, Checkpoint{FromCheckpoint: now, Votes: new(big.Int).Set(newVotes)})
	}
	l.jrnl.Append(types.DelegateVotesChanged{
		Delegate: delegate,
		OldVotes: new(big.Int).Set(oldVotes),
		NewVotes: new(big.Int).Set(newVotes),
	})
}
