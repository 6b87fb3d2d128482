// Package frameparser turns arbitrary-sized byte chunks into framed
// Measurements. A FrameParser is a stateful byte sink: FeedBytes never
// blocks and may advance the internal state machine through zero, one,
// or many complete frames per call.
package frameparser

import "github.com/kfirwolf/sensor-pipeline-mpsc/pkg/measurement"

// FrameParser consumes raw bytes and yields zero or more measurements.
// Implementations must never block inside FeedBytes. ExtractFrame's
// precondition is HasFrame(); violating it is a programming error.
type FrameParser interface {
	FeedBytes(chunk []byte)
	HasFrame() bool
	ExtractFrame() *measurement.Measurement
	ErrorCount() uint64
	DroppedFrames() uint64
}
