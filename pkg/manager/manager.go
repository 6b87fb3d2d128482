// Package manager is the wiring façade that instantiates concrete
// ByteSource/FrameParser pairs and their SensorWorkers against one
// shared GlobalQueue. It carries no tested invariant of its own beyond
// "it starts and stops what it created."
package manager

import (
	"fmt"

	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/frameparser"
	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/queue"
	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/source"
	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/uartsource"
	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/worker"
)

// Manager owns the shared GlobalQueue and every sensor it has been
// asked to add.
type Manager struct {
	queue    *queue.GlobalQueue
	nextID   uint64
	workers  []*worker.SensorWorker
	closable []closer
}

type closer interface {
	Close() error
}

// New creates a Manager whose shared queue has the given capacity.
func New(queueCapacity int) (*Manager, error) {
	q, err := queue.New(queueCapacity)
	if err != nil {
		return nil, fmt.Errorf("manager: %w", err)
	}
	return &Manager{queue: q}, nil
}

// Queue returns the shared GlobalQueue consumers should drain.
func (m *Manager) Queue() *queue.GlobalQueue {
	return m.queue
}

// AddUART wires a real serial-line sensor: a UARTSource opened against
// cfg, feeding a UARTParser, into a new SensorWorker.
func (m *Manager) AddUART(cfg uartsource.Config, streamBufferSize int) (*worker.SensorWorker, error) {
	src, err := uartsource.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("manager: add uart sensor: %w", err)
	}

	w := m.addWorker(src, frameparser.NewUART(), streamBufferSize)
	m.closable = append(m.closable, src)
	return w, nil
}

// AddFake wires a test/demo sensor: a caller-supplied source.ByteSource
// feeding a FakeParser, into a new SensorWorker. Used for the FAKE
// sensor_type from the original reference manager.
func (m *Manager) AddFake(src source.ByteSource, streamBufferSize int) *worker.SensorWorker {
	return m.addWorker(src, frameparser.NewFake(), streamBufferSize)
}

func (m *Manager) addWorker(src source.ByteSource, parser frameparser.FrameParser, streamBufferSize int) *worker.SensorWorker {
	id := m.nextID
	m.nextID++

	w := worker.New(worker.Config{
		SensorID:         id,
		StreamBufferSize: streamBufferSize,
		Source:           src,
		Parser:           parser,
		Queue:            m.queue,
	})
	m.workers = append(m.workers, w)
	return w
}

// StartAll starts every worker the manager has created.
func (m *Manager) StartAll() {
	for _, w := range m.workers {
		w.Start()
	}
}

// StopAll stops every worker, then shuts down the shared queue so any
// blocked consumer unblocks, then releases any owned transport handles
// (e.g. serial ports opened by AddUART).
func (m *Manager) StopAll() {
	for _, w := range m.workers {
		w.Stop()
	}
	m.queue.Shutdown()
	for _, c := range m.closable {
		_ = c.Close()
	}
}
