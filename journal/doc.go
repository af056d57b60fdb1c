// Package journal implements the append-only event audit log.
//
// Every state-changing operation in the stack emits one structured event; the
// journal is the only externally observable record of what happened. Entries
// carry a monotonic sequence number, the event name and the RLP encoding of
// the event's resolved arguments. Because the encoding is deterministic, the
// same sequence of inputs always produces byte-identical journal contents.
//
// The journal always keeps entries in memory. An optional file sink writes
// each entry as a length-prefixed, CRC32-checked frame; ReadFile replays a
// sink file back into entries, verifying every frame.
package journal
