package rawlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/eunmann/rgt-idx/pkg/rgterr"
)

// InputBufferSize is the read buffer size used for log input.
const InputBufferSize = 16 * 1024

// maxFixedHeader is the fixed header size with the widest level and id.
const maxFixedHeader = 1 + TimestampSize + 4 + 4

type span struct {
	lo, hi int
}

// Reader decodes messages from a raw log stream and tracks the input offset.
type Reader struct {
	codec *Codec
	br    *bufio.Reader
	off   int64

	hdr   [maxFixedHeader]byte
	buf   Buffer
	spans []span
}

// NewReader returns a reader positioned at offset 0 of r.
func NewReader(r io.Reader, codec *Codec) *Reader {
	return NewReaderAt(r, codec, 0)
}

// NewReaderAt returns a reader for a stream whose next byte is at offset off.
func NewReaderAt(r io.Reader, codec *Codec, off int64) *Reader {
	return &Reader{
		codec: codec,
		br:    bufio.NewReaderSize(r, InputBufferSize),
		off:   off,
		spans: make([]span, 0, 8),
	}
}

// Reset discards buffered input and continues reading from src at offset off.
// It is used after seeking the underlying file.
func (r *Reader) Reset(src io.Reader, off int64) {
	r.br.Reset(src)
	r.off = off
}

// Offset returns the offset of the next unread byte.
func (r *Reader) Offset() int64 {
	return r.off
}

// Codec returns the codec used by the reader.
func (r *Reader) Codec() *Codec {
	return r.codec
}

// ReadFileVersion reads and validates the version byte at the start of a log.
func (r *Reader) ReadFileVersion() (byte, error) {
	start := r.off
	var v [1]byte
	if _, err := r.readFull(v[:]); err != nil {
		return 0, r.fail(err, "read log file version", start)
	}
	if v[0] != Version {
		return v[0], rgterr.New(rgterr.ErrUnsupportedVersion,
			fmt.Sprintf("log file version %d", v[0]), start, start)
	}
	return v[0], nil
}

// NextTimestamp reads the next message and returns only its timestamp.
// Field payloads are skipped without being copied.
// It returns io.EOF if the stream ends before the next message.
func (r *Reader) NextTimestamp() (Timestamp, error) {
	var ts Timestamp

	start := r.off
	hdr := r.hdr[:r.codec.fixed]
	if err := r.readHeader(hdr, start); err != nil {
		return ts, err
	}
	copy(ts[:], hdr[1:1+TimestampSize])

	nfl := r.hdr[:r.codec.cfg.NFLWidth]
	required := 3
	for {
		if _, err := r.readFull(nfl); err != nil {
			return ts, r.fail(err, "read field length", start)
		}
		h := r.codec.ParseFieldHeader(nfl)
		if h.IsEndOfRecord() {
			if required > 0 {
				return ts, r.endInRequired(start, required)
			}
			return ts, nil
		}
		if required > 0 {
			required--
		}
		if err := r.discard(int(h.Len())); err != nil {
			return ts, r.fail(err, "skip field", start)
		}
	}
}

// NextMessage reads the next complete message into m.
// The slices stored in m alias the reader's buffer and stay valid until
// the next call. It returns io.EOF if the stream ends before the next message.
func (r *Reader) NextMessage(m *Message) error {
	start := r.off
	fixed := r.codec.fixed
	width := r.codec.cfg.NFLWidth

	r.buf.Ensure(fixed)
	if err := r.readHeader(r.buf.Bytes(fixed), start); err != nil {
		return err
	}

	n := fixed
	r.spans = r.spans[:0]
	required := 3
	for {
		r.buf.Ensure(n + width)
		nfl := r.buf.Bytes(n + width)[n:]
		if _, err := r.readFull(nfl); err != nil {
			return r.fail(err, "read field length", start)
		}
		h := r.codec.ParseFieldHeader(nfl)
		n += width
		if h.IsEndOfRecord() {
			if required > 0 {
				return r.endInRequired(start, required)
			}
			break
		}
		if required > 0 {
			required--
		}

		l := int(h.Len())
		r.buf.Ensure(n + l)
		if _, err := r.readFull(r.buf.Bytes(n + l)[n:]); err != nil {
			return r.fail(err, "read field", start)
		}
		r.spans = append(r.spans, span{lo: n, hi: n + l})
		n += l
	}

	raw := r.buf.Bytes(n)
	lw, iw := r.codec.cfg.LevelWidth, r.codec.cfg.IDWidth
	pos := 1 + TimestampSize

	m.Version = raw[0]
	copy(m.Timestamp[:], raw[1:pos])
	m.Level = getUint(raw[pos:], lw)
	m.ID = getUint(raw[pos+lw:], iw)
	m.Entity = raw[r.spans[0].lo:r.spans[0].hi]
	m.User = raw[r.spans[1].lo:r.spans[1].hi]
	m.Format = raw[r.spans[2].lo:r.spans[2].hi]
	m.Args = m.Args[:0]
	for _, s := range r.spans[3:] {
		m.Args = append(m.Args, raw[s.lo:s.hi])
	}
	m.Raw = raw

	return nil
}

// readHeader reads the fixed part of a message into hdr.
// A clean end of stream before the version byte yields io.EOF.
func (r *Reader) readHeader(hdr []byte, start int64) error {
	n, err := r.readFull(hdr[:1])
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return io.EOF
		}
		return r.fail(err, "read message version", start)
	}
	if hdr[0] != Version {
		return rgterr.New(rgterr.ErrUnsupportedVersion,
			fmt.Sprintf("message version %d", hdr[0]), start, start)
	}
	if _, err := r.readFull(hdr[1:]); err != nil {
		return r.fail(err, "read message header", start)
	}
	return nil
}

func (r *Reader) endInRequired(start int64, missing int) error {
	return rgterr.New(rgterr.ErrMalformed,
		fmt.Sprintf("end of record with %d required fields missing", missing),
		start, r.off-int64(r.codec.cfg.NFLWidth))
}

func (r *Reader) readFull(p []byte) (int, error) {
	n, err := io.ReadFull(r.br, p)
	r.off += int64(n)
	return n, err
}

func (r *Reader) discard(n int) error {
	d, err := r.br.Discard(n)
	r.off += int64(d)
	return err
}

// fail classifies a read error: any end of stream inside a message is truncation.
func (r *Reader) fail(err error, op string, start int64) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return rgterr.Wrap(rgterr.ErrTruncated, op, start, r.off, io.ErrUnexpectedEOF)
	}
	return rgterr.Wrap(rgterr.ErrIO, op, start, r.off, err)
}
