// Package queue implements the bounded multi-producer/single-consumer
// channel that fans the output of every SensorWorker into one sequence
// of measurements for a consumer to drain.
package queue

import (
	"sync"

	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/measurement"
)

// GlobalQueue is a fixed-capacity ring of *measurement.Measurement with
// drop-oldest overflow: a Push into a full queue silently displaces the
// oldest pending item. It is safe for concurrent use by many producers
// and one or more consumers.
type GlobalQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	ring     []*measurement.Measurement
	capacity int
	read     int
	write    int
	size     int
	shutdown bool
}

// New creates a GlobalQueue with the given capacity, which must be at
// least 1.
func New(capacity int) (*GlobalQueue, error) {
	if capacity < 1 {
		return nil, errInvalidCapacity
	}
	q := &GlobalQueue{
		ring:     make([]*measurement.Measurement, capacity),
		capacity: capacity,
	}
	q.cond = sync.NewCond(&q.mu)
	return q, nil
}

// Capacity returns the fixed queue capacity.
func (q *GlobalQueue) Capacity() int {
	return q.capacity
}

// Push writes item into the ring. If the queue is shut down, Push
// returns false and item is not stored. If the ring is full, the oldest
// pending item is overwritten and lost. Push never blocks beyond its
// internal critical section.
func (q *GlobalQueue) Push(item *measurement.Measurement) bool {
	q.mu.Lock()
	if q.shutdown {
		q.mu.Unlock()
		return false
	}

	q.ring[q.write] = item
	if q.size == q.capacity {
		q.read = (q.read + 1) % q.capacity
	} else {
		q.size++
	}
	q.write = (q.write + 1) % q.capacity

	q.mu.Unlock()
	q.cond.Signal()
	return true
}

// Pop blocks until an item is available or the queue is shut down. It
// returns false only once the queue has been shut down and drained.
func (q *GlobalQueue) Pop() (*measurement.Measurement, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.shutdown && q.size == 0 {
		q.cond.Wait()
	}

	if q.size == 0 {
		return nil, false
	}

	item := q.ring[q.read]
	q.ring[q.read] = nil
	q.read = (q.read + 1) % q.capacity
	q.size--

	return item, true
}

// TryPop is the non-blocking form of Pop: it returns false immediately
// if the queue is empty, regardless of shutdown state.
func (q *GlobalQueue) TryPop() (*measurement.Measurement, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return nil, false
	}

	item := q.ring[q.read]
	q.ring[q.read] = nil
	q.read = (q.read + 1) % q.capacity
	q.size--

	return item, true
}

// Shutdown is idempotent. Once called, Push refuses new items and any
// blocked or future Pop returns false as soon as the ring is drained.
// Items already queued remain drainable via TryPop or Pop.
func (q *GlobalQueue) Shutdown() {
	q.mu.Lock()
	if q.shutdown {
		q.mu.Unlock()
		return
	}
	q.shutdown = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
