// Package worker implements the SensorWorker: a per-sensor task that
// composes a blocking ByteSource, a StreamBuffer, a FrameParser, and the
// shared GlobalQueue.
package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/frameparser"
	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/queue"
	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/source"
	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/streambuffer"
)

const (
	// maxSourceRead bounds the scratch buffer used for a single
	// ByteSource.Read call.
	maxSourceRead = 256
	// parserChunkSize bounds how many bytes are extracted from the
	// stream buffer and handed to the parser in one FeedBytes call, and
	// is also the floor applied to the stream buffer's capacity.
	parserChunkSize = 64
)

// Config names a SensorWorker's construction parameters explicitly;
// named fields avoid the positional-argument ambiguity the original C++
// constructor had two call sites disagreeing on.
type Config struct {
	SensorID         uint64
	StreamBufferSize int
	Source           source.ByteSource
	Parser           frameparser.FrameParser
	Queue            *queue.GlobalQueue
}

// SensorWorker owns one StreamBuffer and scratch buffer, and wires one
// ByteSource and one FrameParser into the shared GlobalQueue inside a
// dedicated goroutine.
type SensorWorker struct {
	sensorID uint64
	src      source.ByteSource
	parser   frameparser.FrameParser
	globalQ  *queue.GlobalQueue
	stBuf    *streambuffer.StreamBuffer
	scratch  []byte

	stopRequested atomic.Bool
	started       bool
	startMu       sync.Mutex
	wg            sync.WaitGroup

	sequence uint64

	readErrors         uint64
	eosCount           uint64
	streamOverflowByte uint64
}

// New builds a SensorWorker. It does not start the worker's goroutine;
// call Start for that.
func New(cfg Config) *SensorWorker {
	bufSize := cfg.StreamBufferSize
	if bufSize < parserChunkSize {
		bufSize = parserChunkSize
	}

	scratchSize := maxSourceRead
	if bufSize < scratchSize {
		scratchSize = bufSize
	}

	return &SensorWorker{
		sensorID: cfg.SensorID,
		src:      cfg.Source,
		parser:   cfg.Parser,
		globalQ:  cfg.Queue,
		stBuf:    streambuffer.New(bufSize),
		scratch:  make([]byte, scratchSize),
	}
}

// SensorID returns the identifier this worker stamps onto every
// measurement it emits.
func (w *SensorWorker) SensorID() uint64 {
	return w.sensorID
}

// Start spawns the worker's run loop. It may be called from only one
// control goroutine and only once per worker instance; a call while the
// worker is already started returns false with no effect.
func (w *SensorWorker) Start() bool {
	w.startMu.Lock()
	defer w.startMu.Unlock()

	if w.started {
		return false
	}

	w.started = true
	w.stopRequested.Store(false)
	w.wg.Add(1)
	go w.run()
	return true
}

// Stop is idempotent. It sets the stop flag, signals the source's
// unblock, and joins the worker goroutine before returning.
func (w *SensorWorker) Stop() {
	w.startMu.Lock()
	if w.stopRequested.Swap(true) || !w.started {
		w.startMu.Unlock()
		return
	}
	w.startMu.Unlock()

	_ = w.src.StopRequest()
	w.wg.Wait()

	w.startMu.Lock()
	w.started = false
	w.startMu.Unlock()
}

// ReadErrors returns the count of transient source read errors observed.
func (w *SensorWorker) ReadErrors() uint64 { return atomic.LoadUint64(&w.readErrors) }

// EOSCount returns the count of terminal end-of-stream signals observed
// (0 or 1, since the run loop exits on the first one).
func (w *SensorWorker) EOSCount() uint64 { return atomic.LoadUint64(&w.eosCount) }

// StreamOverflowBytes returns the total bytes dropped because the stream
// buffer could not hold a full read.
func (w *SensorWorker) StreamOverflowBytes() uint64 {
	return atomic.LoadUint64(&w.streamOverflowByte)
}

// ErrorCount returns the parser's CRC-mismatch counter.
func (w *SensorWorker) ErrorCount() uint64 { return w.parser.ErrorCount() }

// DroppedFrames returns the parser's FIFO-overflow counter.
func (w *SensorWorker) DroppedFrames() uint64 { return w.parser.DroppedFrames() }

// run is the worker's dedicated goroutine. It terminates, in priority
// order, when: stop_requested is observed true at the loop head; the
// source reports end-of-stream; or a push to the global queue fails
// because the queue has been shut down.
func (w *SensorWorker) run() {
	defer w.wg.Done()

	chunk := make([]byte, parserChunkSize)

	for !w.stopRequested.Load() {
		n := w.src.Read(w.scratch)

		switch {
		case n == 0:
			atomic.AddUint64(&w.eosCount, 1)
			return

		case n < 0:
			atomic.AddUint64(&w.readErrors, 1)
			continue

		default:
			appended := w.stBuf.Append(w.scratch[:n])
			if appended < n {
				atomic.AddUint64(&w.streamOverflowByte, uint64(n-appended))
			}
		}

		for w.stBuf.Available() > 0 {
			k := w.stBuf.Available()
			if k > parserChunkSize {
				k = parserChunkSize
			}

			if !w.stBuf.Extract(chunk[:k]) {
				// Unreachable: Available() just reported at least k
				// bytes present to this single consumer.
				return
			}

			w.parser.FeedBytes(chunk[:k])

			for w.parser.HasFrame() {
				m := w.parser.ExtractFrame()
				m.SensorID = w.sensorID
				m.SystemTime = time.Now()
				w.sequence++
				m.SequenceNumber = w.sequence

				if !w.globalQ.Push(m) {
					return
				}
			}
		}
	}
}
