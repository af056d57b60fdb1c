package chain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/alchemydao/alchemist/types"
)

// Errors
var (
	ErrUnknownTarget     = errors.New("unknown target contract")
	ErrAlreadyRegistered = errors.New("address already registered")
)

// Contract is an invocable deployed instance. Invoke dispatches over the
// closed set of operation signatures the contract recognizes; an unknown
// signature is a state error, not a silent no-op.
type Contract interface {
	Invoke(caller common.Address, value *big.Int, signature string, data []byte) error
}

// Bindable is implemented by contracts that want to learn their own address
// at registration time.
type Bindable interface {
	Bind(addr common.Address)
}

// Snapshotter captures and restores a state holder's full mutable state.
// Snapshot values are opaque to everything but the holder that produced them.
type Snapshotter interface {
	Snapshot() any
	Restore(snap any)
}

// Registry is the address space: it deploys contracts to deterministic
// addresses and routes governed invocations to them. It also tracks every
// Snapshotter participating in atomic multi-action execution.
type Registry struct {
	mu        sync.RWMutex
	contracts map[common.Address]Contract
	tracked   []Snapshotter
	nonce     uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{contracts: make(map[common.Address]Contract)}
}

// Register deploys a contract at the next derived address and returns that
// address. Contracts implementing Bindable learn their address; contracts
// implementing Snapshotter join the atomic-execution snapshot set.
func (r *Registry) Register(c Contract) common.Address {
	r.mu.Lock()
	defer r.mu.Unlock()

	addr := deriveAddress(r.nonce)
	r.nonce++
	r.contracts[addr] = c
	if b, ok := c.(Bindable); ok {
		b.Bind(addr)
	}
	if s, ok := c.(Snapshotter); ok {
		r.tracked = append(r.tracked, s)
	}
	return addr
}

// Track adds a non-contract state holder (e.g. the bank) to the snapshot set.
func (r *Registry) Track(s Snapshotter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked = append(r.tracked, s)
}

// Lookup returns the contract registered at addr.
func (r *Registry) Lookup(addr common.Address) (Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[addr]
	return c, ok
}

// Invoke routes a call to the contract at target. The target's own failure is
// surfaced as this call's failure.
func (r *Registry) Invoke(caller, target common.Address, value *big.Int, signature string, data []byte) error {
	c, ok := r.Lookup(target)
	if !ok {
		return fmt.Errorf("%w: %w: %s", types.ErrState, ErrUnknownTarget, target.Hex())
	}
	return c.Invoke(caller, value, signature, data)
}

// SnapshotAll captures the state of every tracked holder.
func (r *Registry) SnapshotAll() map[Snapshotter]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snaps := make(map[Snapshotter]any, len(r.tracked))
	for _, s := range r.tracked {
		snaps[s] = s.Snapshot()
	}
	return snaps
}

// RestoreAll restores a snapshot taken with SnapshotAll.
func (r *Registry) RestoreAll(snaps map[Snapshotter]any) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for s, snap := range snaps {
		s.Restore(snap)
	}
}

// deriveAddress maps a creation counter to an address. The derivation is
// deterministic so a fixed deployment order reproduces the same addresses.
func deriveAddress(nonce uint64) common.Address {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	h := crypto.Keccak256([]byte("alchemist/create"), buf[:])
	return common.BytesToAddress(h[12:])
}
