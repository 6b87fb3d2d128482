// Package fakesource provides a deterministic ByteSource for tests: it
// replays a fixed byte slice and then blocks until StopRequest is called,
// mirroring the original reference fixture's behavior.
package fakesource

import (
	"sync"
	"sync/atomic"
)

// FakeSource replays data once, then blocks its caller until
// StopRequest is invoked (which makes the blocked Read return 0,
// simulating end-of-stream).
type FakeSource struct {
	data      []byte
	offset    int
	mu        sync.Mutex
	cond      *sync.Cond
	unblocked atomic.Bool
}

// New creates a FakeSource that will replay data to its first callers of
// Read, then block.
func New(data []byte) *FakeSource {
	s := &FakeSource{data: data}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Read returns the next slice of unread replay bytes, or blocks once the
// replay data is exhausted until StopRequest unblocks it (returning 0).
func (s *FakeSource) Read(buf []byte) int {
	if s.offset < len(s.data) {
		n := copy(buf, s.data[s.offset:])
		s.offset += n
		return n
	}

	s.mu.Lock()
	for !s.unblocked.Load() {
		s.cond.Wait()
	}
	s.unblocked.Store(false)
	s.mu.Unlock()

	return 0
}

// StopRequest wakes a blocked Read, causing it to return 0. Idempotent
// and safe to call concurrently with an in-flight Read.
func (s *FakeSource) StopRequest() error {
	s.mu.Lock()
	s.unblocked.Store(true)
	s.cond.Signal()
	s.mu.Unlock()
	return nil
}
