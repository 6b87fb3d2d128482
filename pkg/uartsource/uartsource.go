// Package uartsource implements source.ByteSource over a real serial
// line using go.bug.st/serial.
package uartsource

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// defaultPollInterval bounds how long a Read can sit inside the serial
// driver before UARTSource checks whether a stop was requested. It is
// the Go-idiomatic analogue of the original's eventfd+poll unblock: a
// bounded wait plus a flag, rather than a second blocking primitive.
const defaultPollInterval = 200 * time.Millisecond

// Config describes how to open and configure a UART device.
type Config struct {
	Device       string
	BaudRate     int
	DataBits     int // 7 or 8
	Parity       serial.Parity
	StopBits     serial.StopBits
	PollInterval time.Duration // 0 uses defaultPollInterval
}

// UARTSource is a source.ByteSource backed by a real serial port.
type UARTSource struct {
	port    serial.Port
	stopped atomic.Bool
}

// Open opens and configures the serial device named by cfg.Device.
// Construction errors (bad device path, unsupported mode) are returned,
// never panicked.
func Open(cfg Config) (*UARTSource, error) {
	dataBits := cfg.DataBits
	if dataBits == 0 {
		dataBits = 8
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: dataBits,
		Parity:   cfg.Parity,
		StopBits: cfg.StopBits,
	}

	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("uartsource: open %s: %w", cfg.Device, err)
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if err := port.SetReadTimeout(pollInterval); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("uartsource: set read timeout: %w", err)
	}

	return &UARTSource{port: port}, nil
}

// Read blocks until at least one byte arrives, a stop is requested, or a
// transient read error occurs. The underlying port's read timeout
// (PollInterval) bounds how long a single driver-level read can run
// before Read re-checks the stop flag, so a blocked Read always notices
// a StopRequest within roughly one poll interval.
func (u *UARTSource) Read(buf []byte) int {
	for {
		if u.stopped.Load() {
			return 0
		}

		n, err := u.port.Read(buf)
		if err != nil {
			return -1
		}
		if n > 0 {
			return n
		}
		// n == 0, err == nil: the poll interval elapsed with no data.
		// Loop back around and re-check the stop flag.
	}
}

// StopRequest causes the next poll-interval tick inside a blocked Read
// to return 0. Idempotent; safe to call concurrently with an in-flight
// Read from any goroutine.
func (u *UARTSource) StopRequest() error {
	u.stopped.Store(true)
	return nil
}

// Close releases the underlying serial port. Safe to call after StopRequest.
func (u *UARTSource) Close() error {
	return u.port.Close()
}
