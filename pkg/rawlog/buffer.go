package rawlog

// MinBufferSize is the initial capacity of a message Buffer.
const MinBufferSize = 4096

// Buffer is a growable byte buffer owned by a single Reader.
// Capacity grows by half of itself until it fits the request.
type Buffer struct {
	b []byte
}

// Ensure makes the buffer hold at least n bytes, preserving its contents.
func (buf *Buffer) Ensure(n int) {
	if n <= len(buf.b) {
		return
	}
	size := len(buf.b)
	if size < MinBufferSize {
		size = MinBufferSize
	}
	for size < n {
		size += size / 2
	}
	next := make([]byte, size)
	copy(next, buf.b)
	buf.b = next
}

// Bytes returns the first n bytes of the buffer. n must not exceed Cap.
func (buf *Buffer) Bytes(n int) []byte {
	return buf.b[:n]
}

// Cap returns the current buffer size.
func (buf *Buffer) Cap() int {
	return len(buf.b)
}
