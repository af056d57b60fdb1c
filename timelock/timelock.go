package timelock

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/alchemydao/alchemist/chain"
	"github.com/alchemydao/alchemist/journal"
	"github.com/alchemydao/alchemist/types"
)

// Errors
var (
	ErrNotAdmin           = errors.New("caller is not the timelock admin")
	ErrNotSelf            = errors.New("admin change must be queued as a self-call")
	ErrAlreadyInitialized = errors.New("timelock already initialized")
	ErrEtaTooEarly        = errors.New("eta below required delay")
	ErrAlreadyQueued      = errors.New("identical action already queued for this eta")
	ErrNotQueued          = errors.New("action not queued")
	ErrBeforeEta          = errors.New("eta has not been reached")
	ErrGraceExpired       = errors.New("grace period expired")
	ErrDelayOutOfRange    = errors.New("delay out of range")
	ErrUnknownSignature   = errors.New("unknown operation signature")
)

// Timing constants, in seconds.
const (
	// GracePeriod is the window after an action's eta during which it may
	// still be executed before it expires.
	GracePeriod uint64 = 14 * 24 * 60 * 60

	// MaximumDelay bounds the configurable queue delay.
	MaximumDelay uint64 = 30 * 24 * 60 * 60
)

// Self-administration signatures. Only reachable through a queued self-call.
const (
	SigSetDelay = "setDelay(uint256)"
	SigSetAdmin = "setAdmin(address)"
)

// pendingAction is one queued action together with its execution time.
type pendingAction struct {
	action types.Action
	eta    uint64
}

// Timelock holds exclusive authority to invoke privileged operations on its
// targets. Only the admin (the governance engine) may queue, cancel or
// execute; execution is only valid inside [eta, eta+GracePeriod].
type Timelock struct {
	guard chain.Guard

	addr  common.Address
	admin common.Address
	delay uint64

	clock chain.Clock
	reg   *chain.Registry
	jrnl  *journal.Journal

	queued      map[common.Hash]pendingAction
	initialized bool
}

// New creates an uninitialized timelock. Initialize wires the admin and delay
// exactly once; the clone factory locks template instances by initializing
// them with the sentinel admin.
func New(clock chain.Clock, reg *chain.Registry, jrnl *journal.Journal) *Timelock {
	return &Timelock{
		clock:  clock,
		reg:    reg,
		jrnl:   jrnl,
		queued: make(map[common.Hash]pendingAction),
	}
}

// Bind implements chain.Bindable.
func (t *Timelock) Bind(addr common.Address) { t.addr = addr }

// Address returns the timelock's registered address.
func (t *Timelock) Address() common.Address { return t.addr }

// Admin returns the current admin address.
func (t *Timelock) Admin() common.Address { return t.admin }

// Delay returns the mandatory queue delay in seconds.
func (t *Timelock) Delay() uint64 { return t.delay }

// Initialize sets the admin and delay. It can only be called once.
func (t *Timelock) Initialize(admin common.Address, delay uint64) error {
	if t.initialized {
		return fmt.Errorf("%w: %w", types.ErrState, ErrAlreadyInitialized)
	}
	if delay > MaximumDelay {
		return fmt.Errorf("%w: %w: %d", types.ErrState, ErrDelayOutOfRange, delay)
	}
	t.admin = admin
	t.delay = delay
	t.initialized = true
	return nil
}

// QueueTransaction stores an action keyed by its content hash. The eta must
// leave at least the configured delay, and the exact same
// (target, value, signature, data, eta) tuple must not already be pending.
func (t *Timelock) QueueTransaction(caller common.Address, action types.Action, eta uint64) (common.Hash, error) {
	if err := t.guard.Enter(); err != nil {
		return common.Hash{}, err
	}
	defer t.guard.Exit()

	if caller != t.admin {
		return common.Hash{}, fmt.Errorf("%w: %w", types.ErrAuthorization, ErrNotAdmin)
	}
	if eta < t.clock.Now()+t.delay {
		return common.Hash{}, fmt.Errorf("%w: %w: eta %d, need ≥ %d",
			types.ErrState, ErrEtaTooEarly, eta, t.clock.Now()+t.delay)
	}

	hash := types.ActionHash(action, eta)
	if _, ok := t.queued[hash]; ok {
		return common.Hash{}, fmt.Errorf("%w: %w", types.ErrState, ErrAlreadyQueued)
	}
	t.queued[hash] = pendingAction{action: action, eta: eta}

	t.jrnl.Append(types.TransactionQueued{
		Hash:      hash,
		Target:    action.Target,
		Value:     valueOrZero(action.Value),
		Signature: action.Signature,
		Eta:       eta,
	})
	return hash, nil
}

// CancelTransaction removes a queued action without executing it.
func (t *Timelock) CancelTransaction(caller common.Address, action types.Action, eta uint64) error {
	if err := t.guard.Enter(); err != nil {
		return err
	}
	defer t.guard.Exit()

	if caller != t.admin {
		return fmt.Errorf("%w: %w", types.ErrAuthorization, ErrNotAdmin)
	}
	hash := types.ActionHash(action, eta)
	if _, ok := t.queued[hash]; !ok {
		return fmt.Errorf("%w: %w", types.ErrState, ErrNotQueued)
	}
	delete(t.queued, hash)
	t.jrnl.Append(types.TransactionCanceled{Hash: hash})
	return nil
}

// ExecuteTransaction executes a queued action once its eta has been reached
// and before the grace period runs out. The action leaves the queue only on
// success; the target's own failure is surfaced as this call's failure.
func (t *Timelock) ExecuteTransaction(caller common.Address, action types.Action, eta uint64) error {
	if err := t.guard.Enter(); err != nil {
		return err
	}
	defer t.guard.Exit()

	if caller != t.admin {
		return fmt.Errorf("%w: %w", types.ErrAuthorization, ErrNotAdmin)
	}

	hash := types.ActionHash(action, eta)
	if _, ok := t.queued[hash]; !ok {
		return fmt.Errorf("%w: %w", types.ErrState, ErrNotQueued)
	}
	now := t.clock.Now()
	if now < eta {
		return fmt.Errorf("%w: %w: now %d, eta %d", types.ErrState, ErrBeforeEta, now, eta)
	}
	if now > eta+GracePeriod {
		return fmt.Errorf("%w: %w: now %d, deadline %d", types.ErrState, ErrGraceExpired, now, eta+GracePeriod)
	}

	if err := t.reg.Invoke(t.addr, action.Target, action.Value, action.Signature, action.Data); err != nil {
		return err
	}
	delete(t.queued, hash)

	t.jrnl.Append(types.TransactionExecuted{
		Hash:      hash,
		Target:    action.Target,
		Value:     valueOrZero(action.Value),
		Signature: action.Signature,
		Eta:       eta,
	})
	return nil
}

// Queued reports whether the action identified by hash is pending.
func (t *Timelock) Queued(hash common.Hash) bool {
	_, ok := t.queued[hash]
	return ok
}

// PendingCount returns the number of queued actions.
func (t *Timelock) PendingCount() int { return len(t.queued) }

// setDelayArgs are the RLP arguments of SigSetDelay.
type setDelayArgs struct {
	Delay uint64
}

// setAdminArgs are the RLP arguments of SigSetAdmin.
type setAdminArgs struct {
	Admin common.Address
}

// Invoke implements chain.Contract for the timelock's self-administration
// path. The only accepted caller is the timelock itself, which is what a
// queued self-call resolves to: reconfiguration must travel the governed path.
func (t *Timelock) Invoke(caller common.Address, value *big.Int, signature string, data []byte) error {
	if caller != t.addr {
		return fmt.Errorf("%w: %w", types.ErrAuthorization, ErrNotSelf)
	}

	switch signature {
	case SigSetDelay:
		var args setDelayArgs
		if err := rlp.DecodeBytes(data, &args); err != nil {
			return fmt.Errorf("%w: decoding %s args: %w", types.ErrState, signature, err)
		}
		if args.Delay > MaximumDelay {
			return fmt.Errorf("%w: %w: %d", types.ErrState, ErrDelayOutOfRange, args.Delay)
		}
		t.delay = args.Delay
		t.jrnl.Append(types.NewDelay{Delay: args.Delay})
		return nil

	case SigSetAdmin:
		var args setAdminArgs
		if err := rlp.DecodeBytes(data, &args); err != nil {
			return fmt.Errorf("%w: decoding %s args: %w", types.ErrState, signature, err)
		}
		t.admin = args.Admin
		t.jrnl.Append(types.NewAdmin{Admin: args.Admin})
		return nil

	default:
		return fmt.Errorf("%w: %w: %q", types.ErrState, ErrUnknownSignature, signature)
	}
}

// PackSetDelay encodes SigSetDelay arguments.
func PackSetDelay(delay uint64) []byte {
	enc, err := rlp.EncodeToBytes(setDelayArgs{Delay: delay})
	if err != nil {
		panic("timelock: argument encoding failed: " + err.Error())
	}
	return enc
}

// PackSetAdmin encodes SigSetAdmin arguments.
func PackSetAdmin(admin common.Address) []byte {
	enc, err := rlp.EncodeToBytes(setAdminArgs{Admin: admin})
	if err != nil {
		panic("timelock: argument encoding failed: " + err.Error())
	}
	return enc
}

// timelockSnapshot is the Snapshotter state of a timelock.
type timelockSnapshot struct {
	admin  common.Address
	delay  uint64
	queued map[common.Hash]pendingAction
}

// Snapshot implements chain.Snapshotter.
func (t *Timelock) Snapshot() any {
	snap := timelockSnapshot{
		admin:  t.admin,
		delay:  t.delay,
		queued: make(map[common.Hash]pendingAction, len(t.queued)),
	}
	for h, p := range t.queued {
		snap.queued[h] = p
	}
	return snap
}

// Restore implements chain.Snapshotter.
func (t *Timelock) Restore(snap any) {
	s := snap.(timelockSnapshot)
	t.admin = s.admin
	t.delay = s.delay
	t.queued = make(map[common.Hash]pendingAction, len(s.queued))
	for h, p := range s.queued {
		t.queued[h] = p
	}
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
