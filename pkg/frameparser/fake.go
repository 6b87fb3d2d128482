package frameparser

import "github.com/kfirwolf/sensor-pipeline-mpsc/pkg/measurement"

// fakeFrameSize is the fixed number of bytes FakeParser groups into one
// frame. There is no sync byte and no CRC: every fakeFrameSize
// consecutive bytes fed in become a measurement.
const fakeFrameSize = 8

// FakeParser is a null FrameParser used by tests and by sensor_type FAKE
// in the manager façade: it performs no framing validation at all.
type FakeParser struct {
	buf []byte
}

// NewFake creates a FakeParser.
func NewFake() *FakeParser {
	return &FakeParser{}
}

// FeedBytes appends chunk to the internal accumulator.
func (p *FakeParser) FeedBytes(chunk []byte) {
	p.buf = append(p.buf, chunk...)
}

// HasFrame reports whether at least fakeFrameSize bytes are buffered.
func (p *FakeParser) HasFrame() bool {
	return len(p.buf) >= fakeFrameSize
}

// ExtractFrame removes and returns the next fakeFrameSize bytes as a
// measurement payload. Precondition: HasFrame().
func (p *FakeParser) ExtractFrame() *measurement.Measurement {
	if !p.HasFrame() {
		panic("frameparser: ExtractFrame called with no frame available")
	}
	payload := make([]byte, fakeFrameSize)
	copy(payload, p.buf[:fakeFrameSize])
	p.buf = p.buf[fakeFrameSize:]
	return &measurement.Measurement{Payload: payload}
}

// ErrorCount always returns 0: the fake parser has no error condition.
func (p *FakeParser) ErrorCount() uint64 {
	return 0
}

// DroppedFrames always returns 0: the fake parser never drops a frame.
func (p *FakeParser) DroppedFrames() uint64 {
	return 0
}
