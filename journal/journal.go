package journal

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/alchemydao/alchemist/types"
)

// Errors
var (
	ErrCorruptFrame = errors.New("journal frame corrupted")
	ErrShortFrame   = errors.New("journal frame truncated")
)

// Entry is one recorded event: its position in the canonical sequence, the
// event name and the RLP encoding of the event payload.
type Entry struct {
	Seq  uint64
	Name string
	Data []byte
}

// Sink receives encoded entries as they are appended.
type Sink interface {
	WriteEntry(e Entry) error
	Close() error
}

// Journal is the append-only event log. Entries are never mutated or removed.
// A staging scope (Begin/Commit/Discard) lets multi-step operations hold
// their events back until the state changes are known to stick.
type Journal struct {
	mu      sync.RWMutex
	entries []Entry
	staged  []types.Event
	staging bool
	sink    Sink
	sinkErr error
}

// New creates an in-memory journal.
func New() *Journal {
	return &Journal{}
}

// NewWithSink creates a journal that additionally writes each entry to sink.
func NewWithSink(sink Sink) *Journal {
	return &Journal{sink: sink}
}

// Append records an event. Inside a staging scope the event is held back and
// only reaches the log on Commit. Payload encoding cannot fail for
// well-formed event types; a sink write failure is retained and reported by
// Err without affecting the in-memory log.
func (j *Journal) Append(ev types.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.staging {
		j.staged = append(j.staged, ev)
		return
	}
	j.append(ev)
}

func (j *Journal) append(ev types.Event) {
	data, err := rlp.EncodeToBytes(ev)
	if err != nil {
		// Event structs only carry RLP-encodable fields; this is a defect.
		panic("journal: event encoding failed: " + err.Error())
	}

	entry := Entry{
		Seq:  uint64(len(j.entries)) + 1,
		Name: ev.EventName(),
		Data: data,
	}
	j.entries = append(j.entries, entry)

	if j.sink != nil && j.sinkErr == nil {
		j.sinkErr = j.sink.WriteEntry(entry)
	}
}

// Begin opens a staging scope. Events appended before the matching Commit or
// Discard are held back from the log.
func (j *Journal) Begin() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.staging = true
}

// Commit records every staged event in order and closes the scope.
func (j *Journal) Commit() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.staging = false
	for _, ev := range j.staged {
		j.append(ev)
	}
	j.staged = nil
}

// Discard drops the staged events and closes the scope.
func (j *Journal) Discard() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.staging = false
	j.staged = nil
}

// Entries returns a copy of all recorded entries in order.
func (j *Journal) Entries() []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Len returns the number of recorded entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// Err returns the first sink write failure, if any.
func (j *Journal) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.sinkErr
}

// Close closes the sink, if one is attached.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.sink == nil {
		return nil
	}
	return j.sink.Close()
}

// Decode decodes an entry's payload into the matching event struct pointer.
func Decode(e Entry, into any) error {
	return rlp.DecodeBytes(e.Data, into)
}
