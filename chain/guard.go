package chain

import (
	"fmt"
	"sync/atomic"

	"github.com/alchemydao/alchemist/types"
)

// ErrReentrantCall is returned when a state-mutating entry point is entered
// while a call on the same instance is still in progress.
var ErrReentrantCall = fmt.Errorf("%w: reentrant call", types.ErrState)

// Guard is a per-instance call-in-progress flag. Entry points acquire it
// before touching state and release it on exit via defer, so the release
// happens whether the call succeeds or fails.
type Guard struct {
	entered atomic.Bool
}

// Enter marks a call in progress. It fails if one already is.
func (g *Guard) Enter() error {
	if !g.entered.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

// Exit clears the call-in-progress flag.
func (g *Guard) Exit() {
	g.entered.Store(false)
}
