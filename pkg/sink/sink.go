// Package sink drains a GlobalQueue and mirrors every measurement into
// Redis as a CBOR-encoded binary payload, sharding across a configurable
// number of Redis connections by rendezvous-hashing the sensor ID.
package sink

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/dgryski/go-rendezvous"
	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/measurement"
	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/queue"
)

// wireMeasurement is the CBOR-encoded form written to Redis. It mirrors
// measurement.Measurement field-for-field (SystemTime as Unix
// nanoseconds) and adds the payload Digest; kept separate so the wire
// shape does not change silently if the in-process struct grows a field
// with no stable encoding (e.g. a channel or pointer).
type wireMeasurement struct {
	Payload        []byte `cbor:"payload"`
	SystemTimeUnix int64  `cbor:"ts"`
	SensorID       uint64 `cbor:"sensor_id"`
	SequenceNumber uint64 `cbor:"seq"`
	Digest         uint64 `cbor:"digest"`
}

// Shard is one Redis connection a Sink may write to.
type Shard struct {
	Name   string
	Client *redis.Client
}

// Sink is a GlobalQueue consumer goroutine. It stops when Pop returns
// false, i.e. once the queue has been shut down and drained, mirroring a
// SensorWorker's own termination-on-shutdown policy.
type Sink struct {
	queue      *queue.GlobalQueue
	shards     []Shard
	hash       *rendezvous.Rendezvous
	keyPrefix  string
	channel    string
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	writeCount atomic.Uint64
}

// New creates a Sink that drains q and mirrors measurements across
// shards, keyed under keyPrefix (one Redis list per sensor ID) and
// published on channel.
func New(q *queue.GlobalQueue, shards []Shard, keyPrefix, channel string) (*Sink, error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("sink: at least one shard is required")
	}

	names := make([]string, len(shards))
	for i, s := range shards {
		names[i] = s.Name
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Sink{
		queue:     q,
		shards:    shards,
		hash:      rendezvous.New(names, xxhashString),
		keyPrefix: keyPrefix,
		channel:   channel,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}, nil
}

// Run drains the queue until it is shut down and emptied. Call it in its
// own goroutine; it closes its done channel when it returns.
func (s *Sink) Run() {
	defer close(s.done)

	for {
		m, ok := s.queue.Pop()
		if !ok {
			return
		}
		s.write(m)
	}
}

// Stop cancels any in-flight Redis call. It does not shut down the
// queue; callers stop producers and shut down the queue first so Run
// exits on its own once drained.
func (s *Sink) Stop() {
	s.cancel()
}

// Done returns a channel closed once Run has returned.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

func (s *Sink) write(m *measurement.Measurement) {
	shard := s.shards[s.shardIndex(m.SensorID)]

	wire := wireMeasurement{
		Payload:        m.Payload,
		SystemTimeUnix: m.SystemTime.UnixNano(),
		SensorID:       m.SensorID,
		SequenceNumber: m.SequenceNumber,
		Digest:         m.Digest(),
	}

	encoded, err := cbor.Marshal(wire)
	if err != nil {
		return
	}

	key := fmt.Sprintf("%s:%d", s.keyPrefix, m.SensorID)

	pipe := shard.Client.Pipeline()
	pipe.RPush(s.ctx, key, encoded)
	pipe.Publish(s.ctx, s.channel, encoded)
	_, _ = pipe.Exec(s.ctx)

	s.writeCount.Add(1)
}

// shardIndex rendezvous-hashes sensorID to the shard that owns it.
func (s *Sink) shardIndex(sensorID uint64) int {
	name := s.hash.Lookup(strconv.FormatUint(sensorID, 10))
	for i, sh := range s.shards {
		if sh.Name == name {
			return i
		}
	}
	return 0
}

// WriteCount returns the number of measurements written so far. Useful
// for tests and for a liveness metric.
func (s *Sink) WriteCount() uint64 {
	return s.writeCount.Load()
}
