// Package measurement defines the record type that flows from a
// FrameParser, through a SensorWorker, into the GlobalQueue, and out to
// whatever consumer drains it.
package measurement

import (
	"time"

	"github.com/cespare/xxhash/v2"
)

// Measurement is a validated payload captured from one sensor, stamped
// with the moment its frame became complete. Once constructed it is not
// mutated again: it is handed off by the worker that built it, carried
// through the queue, and owned by whichever consumer pops it.
type Measurement struct {
	Payload        []byte
	SystemTime     time.Time
	SensorID       uint64
	SequenceNumber uint64
}

// Digest hashes the payload so a downstream consumer can deduplicate
// measurements or notice a gap across a drop-oldest boundary without
// having to trust sequence numbers alone.
func (m *Measurement) Digest() uint64 {
	return xxhash.Sum64(m.Payload)
}
