package chain

import "sync"

// DefaultCheckpointInterval is the wall-time spacing SimClock assumes between
// consecutive checkpoints, in seconds.
const DefaultCheckpointInterval = 12

// Clock supplies the two time dimensions the stack depends on: the canonical
// checkpoint sequence (voting windows, vote-power snapshots) and unix time
// (timelock etas and grace windows). There is exactly one canonical sequence,
// so checkpoint numbers are globally consistent.
type Clock interface {
	// Checkpoint returns the current checkpoint number.
	Checkpoint() uint64

	// Now returns the current unix time in seconds.
	Now() uint64
}

// SimClock is a manually advanced Clock for tests and demos.
type SimClock struct {
	mu         sync.RWMutex
	checkpoint uint64
	now        uint64
	interval   uint64
}

// NewSimClock creates a SimClock starting at the given checkpoint and time.
func NewSimClock(checkpoint, now uint64) *SimClock {
	return &SimClock{checkpoint: checkpoint, now: now, interval: DefaultCheckpointInterval}
}

// Checkpoint returns the current checkpoint number.
func (c *SimClock) Checkpoint() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.checkpoint
}

// Now returns the current unix time in seconds.
func (c *SimClock) Now() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by n checkpoints, advancing time by the
// checkpoint interval for each.
func (c *SimClock) Advance(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkpoint += n
	c.now += n * c.interval
}

// AdvanceTime moves only the wall time forward by seconds.
func (c *SimClock) AdvanceTime(seconds uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += seconds
}
