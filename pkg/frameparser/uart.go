package frameparser

import "github.com/kfirwolf/sensor-pipeline-mpsc/pkg/measurement"

// Wire format: [sync=0xAA] [len] [len bytes of payload] [crc8], CRC-8
// computed over the payload only (polynomial 0x07, initial register 0,
// MSB-first, no final XOR). Any L > maxPayloadLen resyncs without
// incrementing error_count; a bad CRC increments it.
const (
	syncByte       byte = 0xAA
	crc8Polynomial byte = 0x07
	maxPayloadLen       = 64
	fifoDepth           = 4
)

type parseState int

const (
	stateWaitSync parseState = iota
	stateReadLen
	stateReadPayload
	stateReadCRC
)

// UARTParser implements the [SYNC][LEN][PAYLOAD][CRC8] wire protocol.
type UARTParser struct {
	state         parseState
	payload       []byte
	payloadLen    int
	payloadIndex  int
	crc           byte
	pending       []*measurement.Measurement
	errorCount    uint64
	droppedFrames uint64
}

// NewUART creates a UARTParser, ready to consume bytes starting at
// WAIT_SYNC.
func NewUART() *UARTParser {
	return &UARTParser{state: stateWaitSync}
}

// FeedBytes consumes the entire chunk, advancing the state machine byte
// by byte. It never blocks.
func (p *UARTParser) FeedBytes(chunk []byte) {
	for _, b := range chunk {
		p.step(b)
	}
}

func (p *UARTParser) step(b byte) {
	switch p.state {
	case stateWaitSync:
		if b != syncByte {
			return
		}
		p.crc = 0
		p.state = stateReadLen

	case stateReadLen:
		length := int(b)
		if length > maxPayloadLen {
			p.state = stateWaitSync
			return
		}
		if cap(p.payload) < length {
			p.payload = make([]byte, length)
		} else {
			p.payload = p.payload[:length]
		}
		p.payloadLen = length
		p.payloadIndex = 0
		p.state = stateReadPayload
		if p.payloadLen == 0 {
			p.state = stateReadCRC
		}

	case stateReadPayload:
		updateCRC(&p.crc, b)
		p.payload[p.payloadIndex] = b
		p.payloadIndex++
		if p.payloadIndex == p.payloadLen {
			p.state = stateReadCRC
		}

	case stateReadCRC:
		if b == p.crc {
			p.publish()
		} else {
			p.errorCount++
		}
		p.crc = 0
		p.state = stateWaitSync
	}
}

func (p *UARTParser) publish() {
	if len(p.pending) >= fifoDepth {
		p.droppedFrames++
		return
	}
	body := make([]byte, len(p.payload))
	copy(body, p.payload)
	p.pending = append(p.pending, &measurement.Measurement{Payload: body})
}

// HasFrame reports whether a completed frame is waiting to be taken.
func (p *UARTParser) HasFrame() bool {
	return len(p.pending) > 0
}

// ExtractFrame removes and returns the oldest completed frame.
// Precondition: HasFrame().
func (p *UARTParser) ExtractFrame() *measurement.Measurement {
	if len(p.pending) == 0 {
		panic("frameparser: ExtractFrame called with no frame available")
	}
	m := p.pending[0]
	p.pending = p.pending[1:]
	return m
}

// ErrorCount returns the number of CRC mismatches observed so far.
func (p *UARTParser) ErrorCount() uint64 {
	return p.errorCount
}

// DroppedFrames returns the number of valid frames discarded because the
// internal FIFO was full.
func (p *UARTParser) DroppedFrames() uint64 {
	return p.droppedFrames
}

// updateCRC folds one payload byte into the running CRC-8 register
// (polynomial 0x07, MSB-first, no reflection, no final XOR).
func updateCRC(crc *byte, b byte) {
	acc := *crc ^ b
	for i := 0; i < 8; i++ {
		if acc&0x80 != 0 {
			acc = (acc << 1) ^ crc8Polynomial
		} else {
			acc <<= 1
		}
	}
	*crc = acc
}
