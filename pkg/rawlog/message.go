package rawlog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// TimestampSize is the on-disk size of a message timestamp.
const TimestampSize = 8

// MaxMicroseconds is the largest valid microseconds value.
const MaxMicroseconds = 999999

// Timestamp is the big-endian concatenation of seconds and microseconds,
// exactly as stored in a message header. Byte-wise order is time order.
type Timestamp [TimestampSize]byte

// MakeTimestamp encodes seconds and microseconds.
func MakeTimestamp(sec, usec uint32) Timestamp {
	var ts Timestamp
	binary.BigEndian.PutUint32(ts[0:4], sec)
	binary.BigEndian.PutUint32(ts[4:8], usec)
	return ts
}

// Seconds returns the wall-clock seconds.
func (ts Timestamp) Seconds() uint32 {
	return binary.BigEndian.Uint32(ts[0:4])
}

// Microseconds returns the microseconds part.
func (ts Timestamp) Microseconds() uint32 {
	return binary.BigEndian.Uint32(ts[4:8])
}

// Compare orders timestamps without converting to host order.
func (ts Timestamp) Compare(other Timestamp) int {
	return bytes.Compare(ts[:], other[:])
}

// Time converts the timestamp to a time.Time in UTC.
func (ts Timestamp) Time() time.Time {
	return time.Unix(int64(ts.Seconds()), int64(ts.Microseconds())*1000).UTC()
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("%d.%06d", ts.Seconds(), ts.Microseconds())
}

// Message is one decoded log record.
//
// Byte slices of a Message returned by Reader.NextMessage alias the reader's
// buffer and are valid until the next call on that reader.
type Message struct {
	Version   byte
	Timestamp Timestamp
	Level     uint32
	ID        uint32

	Entity []byte
	User   []byte
	Format []byte
	Args   [][]byte

	// Raw is the exact on-disk byte span of the message, terminator included.
	Raw []byte
}

// EncodedSize returns the number of bytes m occupies when written with c.
func (c *Codec) EncodedSize(m *Message) int {
	n := c.fixed
	n += 3*c.cfg.NFLWidth + len(m.Entity) + len(m.User) + len(m.Format)
	for _, a := range m.Args {
		n += c.cfg.NFLWidth + len(a)
	}
	return n + c.cfg.NFLWidth
}

// AppendMessage appends the encoding of m to dst.
// The Version, Level and ID of m must fit the codec widths and no field may
// be as long as the end-of-record sentinel.
func (c *Codec) AppendMessage(dst []byte, m *Message) ([]byte, error) {
	if m.Level > maxUint(c.cfg.LevelWidth) {
		return dst, fmt.Errorf("level %#x does not fit %d bytes", m.Level, c.cfg.LevelWidth)
	}
	if m.ID > maxUint(c.cfg.IDWidth) {
		return dst, fmt.Errorf("id %d does not fit %d bytes", m.ID, c.cfg.IDWidth)
	}

	start := len(dst)
	dst = grow(dst, c.EncodedSize(m))
	b := dst[start:]

	b[0] = m.Version
	copy(b[1:1+TimestampSize], m.Timestamp[:])
	pos := 1 + TimestampSize
	putUint(b[pos:], c.cfg.LevelWidth, m.Level)
	pos += c.cfg.LevelWidth
	putUint(b[pos:], c.cfg.IDWidth, m.ID)
	pos += c.cfg.IDWidth

	put := func(field []byte) error {
		if uint64(len(field)) > uint64(c.MaxFieldLen()) {
			return fmt.Errorf("field of %d bytes exceeds maximum %d", len(field), c.MaxFieldLen())
		}
		c.PutFieldHeader(b[pos:], Payload(uint32(len(field))))
		pos += c.cfg.NFLWidth
		pos += copy(b[pos:], field)
		return nil
	}

	for _, f := range [][]byte{m.Entity, m.User, m.Format} {
		if err := put(f); err != nil {
			return dst[:start], err
		}
	}
	for _, a := range m.Args {
		if err := put(a); err != nil {
			return dst[:start], err
		}
	}
	c.PutFieldHeader(b[pos:], EndOfRecord)

	return dst, nil
}

// grow extends dst by n bytes.
func grow(dst []byte, n int) []byte {
	if cap(dst)-len(dst) < n {
		next := make([]byte, len(dst), len(dst)+n)
		copy(next, dst)
		dst = next
	}
	return dst[:len(dst)+n]
}
