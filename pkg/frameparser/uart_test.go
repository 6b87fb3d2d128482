package frameparser

import "testing"

// crc8 computes the reference CRC-8 (poly 0x07, init 0, MSB-first, no
// final XOR) over payload, independent of the parser under test.
func crc8(payload []byte) byte {
	var crc byte
	for _, b := range payload {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ crc8Polynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func frameBytes(payload []byte) []byte {
	out := []byte{syncByte, byte(len(payload))}
	out = append(out, payload...)
	out = append(out, crc8(payload))
	return out
}

func TestUARTSingleValidFrame(t *testing.T) {
	p := NewUART()
	p.FeedBytes(frameBytes([]byte{1, 2, 3}))

	if !p.HasFrame() {
		t.Fatalf("expected a frame")
	}
	m := p.ExtractFrame()
	if string(m.Payload) != string([]byte{1, 2, 3}) {
		t.Fatalf("payload = %v, want [1 2 3]", m.Payload)
	}
	if p.ErrorCount() != 0 || p.DroppedFrames() != 0 {
		t.Fatalf("error_count=%d dropped_frames=%d, want 0 0", p.ErrorCount(), p.DroppedFrames())
	}
	if p.HasFrame() {
		t.Fatalf("expected no further frames")
	}
}

func TestUARTGarbageThenFrame(t *testing.T) {
	p := NewUART()
	input := append([]byte{0x00, 0xFF, 0x10}, frameBytes([]byte{1, 2, 3})...)
	p.FeedBytes(input)

	if !p.HasFrame() {
		t.Fatalf("expected a frame after garbage prefix")
	}
	m := p.ExtractFrame()
	if string(m.Payload) != string([]byte{1, 2, 3}) {
		t.Fatalf("payload = %v, want [1 2 3]", m.Payload)
	}
	if p.ErrorCount() != 0 {
		t.Fatalf("error_count = %d, want 0", p.ErrorCount())
	}
}

func TestUARTCRCMismatch(t *testing.T) {
	p := NewUART()
	// CRC of {0x42} is not 0x00.
	p.FeedBytes([]byte{0xAA, 0x01, 0x42, 0x00})

	if p.HasFrame() {
		t.Fatalf("expected no frame on CRC mismatch")
	}
	if p.ErrorCount() != 1 {
		t.Fatalf("error_count = %d, want 1", p.ErrorCount())
	}

	// Parser should have resynced to WAIT_SYNC and parse a subsequent
	// valid frame normally.
	p.FeedBytes(frameBytes([]byte{9}))
	if !p.HasFrame() {
		t.Fatalf("expected a frame after resync")
	}
}

func TestUARTOversizedLength(t *testing.T) {
	p := NewUART()
	p.FeedBytes([]byte{0xAA, 0x41}) // L=65 > max_payload_len(64)

	if p.HasFrame() {
		t.Fatalf("expected no frame for oversized length")
	}
	if p.ErrorCount() != 0 {
		t.Fatalf("error_count = %d, want 0 (oversized length is a silent resync)", p.ErrorCount())
	}

	p.FeedBytes(frameBytes([]byte{1, 2, 3, 4, 5}))
	if !p.HasFrame() {
		t.Fatalf("expected a well-formed frame immediately after the oversized one")
	}
	m := p.ExtractFrame()
	if len(m.Payload) != 5 {
		t.Fatalf("payload len = %d, want 5", len(m.Payload))
	}
}

func TestUARTBitFlipSuppressesFrame(t *testing.T) {
	payload := []byte{0x10, 0x20, 0x30}
	good := frameBytes(payload)

	for i := 2; i < len(good); i++ { // skip sync+len, flip payload/crc bytes
		flipped := append([]byte(nil), good...)
		flipped[i] ^= 0x01

		p := NewUART()
		p.FeedBytes(flipped)

		if p.HasFrame() {
			t.Fatalf("byte %d: flipping a bit should suppress the frame", i)
		}
		if p.ErrorCount() != 1 {
			t.Fatalf("byte %d: error_count = %d, want 1", i, p.ErrorCount())
		}
	}
}

func TestUARTFIFOOverflow(t *testing.T) {
	p := NewUART()
	for i := 0; i < fifoDepth+2; i++ {
		p.FeedBytes(frameBytes([]byte{byte(i)}))
	}

	count := 0
	for p.HasFrame() {
		p.ExtractFrame()
		count++
	}
	if count != fifoDepth {
		t.Fatalf("drained %d frames, want %d", count, fifoDepth)
	}
	if p.DroppedFrames() != 2 {
		t.Fatalf("dropped_frames = %d, want 2", p.DroppedFrames())
	}
}

func TestUARTZeroLengthPayload(t *testing.T) {
	p := NewUART()
	p.FeedBytes(frameBytes(nil))

	if !p.HasFrame() {
		t.Fatalf("expected a frame for a zero-length payload")
	}
	m := p.ExtractFrame()
	if len(m.Payload) != 0 {
		t.Fatalf("payload len = %d, want 0", len(m.Payload))
	}
	if p.ErrorCount() != 0 {
		t.Fatalf("error_count = %d, want 0", p.ErrorCount())
	}
}

func TestUARTSyncByteInsidePayloadIsNotResync(t *testing.T) {
	p := NewUART()
	// Payload contains 0xAA in the middle; it must be treated as data,
	// not as a new sync.
	payload := []byte{0x01, 0xAA, 0x03}
	p.FeedBytes(frameBytes(payload))

	if !p.HasFrame() {
		t.Fatalf("expected a frame even though the payload contains a sync byte")
	}
	m := p.ExtractFrame()
	if string(m.Payload) != string(payload) {
		t.Fatalf("payload = %v, want %v", m.Payload, payload)
	}
}

func TestExtractFrameWithoutHasFramePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected ExtractFrame to panic when HasFrame is false")
		}
	}()
	p := NewUART()
	p.ExtractFrame()
}
