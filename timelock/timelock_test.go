package timelock

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alchemydao/alchemist/chain"
	"github.com/alchemydao/alchemist/journal"
	"github.com/alchemydao/alchemist/types"
)

const testDelay uint64 = 2 * 24 * 60 * 60

var (
	admin    = common.HexToAddress("0xad")
	stranger = common.HexToAddress("0x99")
)

// targetContract counts invocations and optionally fails.
type targetContract struct {
	calls int
	fail  error
}

func (c *targetContract) Invoke(caller common.Address, value *big.Int, signature string, data []byte) error {
	c.calls++
	return c.fail
}

type fixture struct {
	clock  *chain.SimClock
	reg    *chain.Registry
	tl     *Timelock
	target *targetContract
	taddr  common.Address
}

func makeTestTimelock(t *testing.T) *fixture {
	t.Helper()
	clock := chain.NewSimClock(100, 1_000_000)
	reg := chain.NewRegistry()
	jrnl := journal.New()

	tl := New(clock, reg, jrnl)
	reg.Register(tl)
	if err := tl.Initialize(admin, testDelay); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	target := &targetContract{}
	taddr := reg.Register(target)
	return &fixture{clock: clock, reg: reg, tl: tl, target: target, taddr: taddr}
}

func (f *fixture) action(sig string) types.Action {
	return types.Action{Target: f.taddr, Signature: sig}
}

func TestInitializeOnce(t *testing.T) {
	f := makeTestTimelock(t)
	if err := f.tl.Initialize(stranger, testDelay); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	if f.tl.Admin() != admin {
		t.Errorf("admin changed to %s", f.tl.Admin().Hex())
	}
}

func TestInitializeRejectsExcessiveDelay(t *testing.T) {
	tl := New(chain.NewSimClock(0, 0), chain.NewRegistry(), journal.New())
	if err := tl.Initialize(admin, MaximumDelay+1); !errors.Is(err, ErrDelayOutOfRange) {
		t.Fatalf("expected ErrDelayOutOfRange, got %v", err)
	}
}

func TestQueueRequiresAdmin(t *testing.T) {
	f := makeTestTimelock(t)
	eta := f.clock.Now() + testDelay
	_, err := f.tl.QueueTransaction(stranger, f.action("poke()"), eta)
	if !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if !errors.Is(err, types.ErrAuthorization) {
		t.Fatalf("expected authorization-class error, got %v", err)
	}
}

func TestQueueEnforcesDelay(t *testing.T) {
	f := makeTestTimelock(t)
	_, err := f.tl.QueueTransaction(admin, f.action("poke()"), f.clock.Now()+testDelay-1)
	if !errors.Is(err, ErrEtaTooEarly) {
		t.Fatalf("expected ErrEtaTooEarly, got %v", err)
	}
}

func TestQueueRejectsDuplicate(t *testing.T) {
	f := makeTestTimelock(t)
	eta := f.clock.Now() + testDelay
	a := f.action("poke()")

	hash, err := f.tl.QueueTransaction(admin, a, eta)
	if err != nil {
		t.Fatalf("QueueTransaction: %v", err)
	}
	if !f.tl.Queued(hash) {
		t.Fatal("queued action not reported pending")
	}

	if _, err := f.tl.QueueTransaction(admin, a, eta); !errors.Is(err, ErrAlreadyQueued) {
		t.Fatalf("expected ErrAlreadyQueued, got %v", err)
	}
	// The same action at a later eta is a distinct pending entry.
	if _, err := f.tl.QueueTransaction(admin, a, eta+1); err != nil {
		t.Fatalf("queue at different eta: %v", err)
	}
	if f.tl.PendingCount() != 2 {
		t.Errorf("pending count = %d, want 2", f.tl.PendingCount())
	}
}

func TestExecuteWindow(t *testing.T) {
	f := makeTestTimelock(t)
	eta := f.clock.Now() + testDelay
	a := f.action("poke()")
	if _, err := f.tl.QueueTransaction(admin, a, eta); err != nil {
		t.Fatalf("QueueTransaction: %v", err)
	}

	// Too early.
	if err := f.tl.ExecuteTransaction(admin, a, eta); !errors.Is(err, ErrBeforeEta) {
		t.Fatalf("expected ErrBeforeEta, got %v", err)
	}

	f.clock.AdvanceTime(testDelay)
	if err := f.tl.ExecuteTransaction(admin, a, eta); err != nil {
		t.Fatalf("ExecuteTransaction at eta: %v", err)
	}
	if f.target.calls != 1 {
		t.Errorf("target saw %d calls, want 1", f.target.calls)
	}
	if f.tl.PendingCount() != 0 {
		t.Errorf("pending count = %d after execute, want 0", f.tl.PendingCount())
	}

	// Executing again fails: the action left the queue.
	if err := f.tl.ExecuteTransaction(admin, a, eta); !errors.Is(err, ErrNotQueued) {
		t.Fatalf("expected ErrNotQueued on re-execute, got %v", err)
	}
}

func TestExecuteAfterGraceFails(t *testing.T) {
	f := makeTestTimelock(t)
	eta := f.clock.Now() + testDelay
	a := f.action("poke()")
	if _, err := f.tl.QueueTransaction(admin, a, eta); err != nil {
		t.Fatalf("QueueTransaction: %v", err)
	}

	f.clock.AdvanceTime(testDelay + GracePeriod + 1)
	if err := f.tl.ExecuteTransaction(admin, a, eta); !errors.Is(err, ErrGraceExpired) {
		t.Fatalf("expected ErrGraceExpired, got %v", err)
	}
	if f.target.calls != 0 {
		t.Errorf("target invoked %d times despite expired grace", f.target.calls)
	}
}

func TestExecuteKeepsFailedActionQueued(t *testing.T) {
	f := makeTestTimelock(t)
	f.target.fail = errors.New("target rejected")

	eta := f.clock.Now() + testDelay
	a := f.action("poke()")
	if _, err := f.tl.QueueTransaction(admin, a, eta); err != nil {
		t.Fatalf("QueueTransaction: %v", err)
	}

	f.clock.AdvanceTime(testDelay)
	if err := f.tl.ExecuteTransaction(admin, a, eta); err == nil {
		t.Fatal("execute succeeded despite target failure")
	}
	if f.tl.PendingCount() != 1 {
		t.Errorf("failed action left the queue: pending = %d", f.tl.PendingCount())
	}

	// Retry succeeds once the target recovers.
	f.target.fail = nil
	if err := f.tl.ExecuteTransaction(admin, a, eta); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestCancelRemovesAction(t *testing.T) {
	f := makeTestTimelock(t)
	eta := f.clock.Now() + testDelay
	a := f.action("poke()")
	hash, err := f.tl.QueueTransaction(admin, a, eta)
	if err != nil {
		t.Fatalf("QueueTransaction: %v", err)
	}

	if err := f.tl.CancelTransaction(admin, a, eta); err != nil {
		t.Fatalf("CancelTransaction: %v", err)
	}
	if f.tl.Queued(hash) {
		t.Error("canceled action still pending")
	}

	f.clock.AdvanceTime(testDelay)
	if err := f.tl.ExecuteTransaction(admin, a, eta); !errors.Is(err, ErrNotQueued) {
		t.Fatalf("expected ErrNotQueued, got %v", err)
	}
}

func TestCancelUnknownAction(t *testing.T) {
	f := makeTestTimelock(t)
	err := f.tl.CancelTransaction(admin, f.action("never()"), f.clock.Now()+testDelay)
	if !errors.Is(err, ErrNotQueued) {
		t.Fatalf("expected ErrNotQueued, got %v", err)
	}
}

func TestSetDelayOnlyViaSelfCall(t *testing.T) {
	f := makeTestTimelock(t)

	// Direct invocation, even by the admin, is rejected.
	err := f.tl.Invoke(admin, nil, SigSetDelay, PackSetDelay(testDelay*2))
	if !errors.Is(err, ErrNotSelf) {
		t.Fatalf("expected ErrNotSelf, got %v", err)
	}

	// The governed path queues a self-call and executes it after the delay.
	a := types.Action{Target: f.tl.Address(), Signature: SigSetDelay, Data: PackSetDelay(testDelay * 2)}
	eta := f.clock.Now() + testDelay
	if _, err := f.tl.QueueTransaction(admin, a, eta); err != nil {
		t.Fatalf("QueueTransaction: %v", err)
	}
	f.clock.AdvanceTime(testDelay)
	if err := f.tl.ExecuteTransaction(admin, a, eta); err != nil {
		t.Fatalf("ExecuteTransaction: %v", err)
	}
	if f.tl.Delay() != testDelay*2 {
		t.Errorf("delay = %d, want %d", f.tl.Delay(), testDelay*2)
	}
}

func TestSetDelayRejectsOutOfRange(t *testing.T) {
	f := makeTestTimelock(t)
	a := types.Action{Target: f.tl.Address(), Signature: SigSetDelay, Data: PackSetDelay(MaximumDelay + 1)}
	eta := f.clock.Now() + testDelay
	if _, err := f.tl.QueueTransaction(admin, a, eta); err != nil {
		t.Fatalf("QueueTransaction: %v", err)
	}
	f.clock.AdvanceTime(testDelay)
	if err := f.tl.ExecuteTransaction(admin, a, eta); !errors.Is(err, ErrDelayOutOfRange) {
		t.Fatalf("expected ErrDelayOutOfRange, got %v", err)
	}
}

func TestSetAdminViaSelfCall(t *testing.T) {
	f := makeTestTimelock(t)
	next := common.HexToAddress("0xbe")

	a := types.Action{Target: f.tl.Address(), Signature: SigSetAdmin, Data: PackSetAdmin(next)}
	eta := f.clock.Now() + testDelay
	if _, err := f.tl.QueueTransaction(admin, a, eta); err != nil {
		t.Fatalf("QueueTransaction: %v", err)
	}
	f.clock.AdvanceTime(testDelay)
	if err := f.tl.ExecuteTransaction(admin, a, eta); err != nil {
		t.Fatalf("ExecuteTransaction: %v", err)
	}

	if f.tl.Admin() != next {
		t.Fatalf("admin = %s, want %s", f.tl.Admin().Hex(), next.Hex())
	}
	// The old admin lost queue authority.
	_, err := f.tl.QueueTransaction(admin, f.action("poke()"), f.clock.Now()+testDelay)
	if !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin for old admin, got %v", err)
	}
}

func TestInvokeUnknownSignature(t *testing.T) {
	f := makeTestTimelock(t)
	err := f.tl.Invoke(f.tl.Address(), nil, "format()", nil)
	if !errors.Is(err, ErrUnknownSignature) {
		t.Fatalf("expected ErrUnknownSignature, got %v", err)
	}
}

func TestTemplateLockedBySentinel(t *testing.T) {
	clock := chain.NewSimClock(0, 0)
	reg := chain.NewRegistry()
	tl := New(clock, reg, journal.New())
	reg.Register(tl)
	if err := tl.Initialize(types.LockedSentinel, testDelay); err != nil {
		t.Fatalf("locking template: %v", err)
	}

	if err := tl.Initialize(admin, testDelay); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	if _, err := tl.QueueTransaction(admin, types.Action{Target: admin, Signature: "x()"}, testDelay); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin on locked template, got %v", err)
	}
}
