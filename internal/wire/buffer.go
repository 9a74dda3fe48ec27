package wire

import "sync"

// Buffers holds the bounded read/write byte buffers for one connection,
// guarded by a single mutex covering every buffer mutation (spec §5: "Per-
// Connection mutex ... covers every buffer mutation").
type Buffers struct {
	mu    sync.Mutex
	read  []byte
	write []byte
}

// Recv appends data to the read buffer. It refuses to grow past MaxBufferSize
// and signals an error in that case (spec §4.E, invariant 7's read-side twin).
func (b *Buffers) Recv(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.read)+len(data) > MaxBufferSize {
		return ErrBufferOverflow
	}
	b.read = append(b.read, data...)
	return nil
}

// ExtractMessages drains complete frames from the read buffer, retaining any
// incomplete tail.
func (b *Buffers) ExtractMessages() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	frames, rest := ExtractMessages(b.read)
	if len(frames) == 0 {
		return nil
	}
	// Copy the remainder so the retained slice doesn't pin the whole original
	// backing array as the read buffer grows over the connection's lifetime.
	tail := make([]byte, len(rest))
	copy(tail, rest)
	b.read = tail
	return frames
}

// AppendToWriteBuffer queues a frame for sending. Per spec §4.E, it silently
// drops the frame (signalling neither success nor retry) when the cap would
// be exceeded rather than erroring.
func (b *Buffers) AppendToWriteBuffer(msgType uint16, payload []byte) {
	frame, err := Encode(msgType, payload)
	if err != nil {
		return // oversize payload, invariant 7: dropped silently
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.write)+len(frame) > MaxBufferSize {
		return
	}
	b.write = append(b.write, frame...)
}

// DrainWrite removes and returns up to maxBytes from the front of the write
// buffer, for the reactor's chunked write-ready drain (§4.F, 4 KiB chunks).
func (b *Buffers) DrainWrite(maxBytes int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.write) == 0 {
		return nil
	}
	n := maxBytes
	if n > len(b.write) {
		n = len(b.write)
	}
	chunk := make([]byte, n)
	copy(chunk, b.write[:n])
	b.write = b.write[n:]
	return chunk
}

// HasPendingWrites reports whether the write buffer still holds data.
func (b *Buffers) HasPendingWrites() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.write) > 0
}
