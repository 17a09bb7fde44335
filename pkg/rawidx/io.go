package rawidx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/eunmann/rgt-idx/pkg/rgterr"
)

// BufferSize is the read and write buffer size for index streams.
// It is a multiple of EntrySize.
const BufferSize = 1024 * EntrySize

// Reader reads index entries sequentially.
type Reader struct {
	br  *bufio.Reader
	off int64
	n   int64
}

// NewReader returns a buffered index reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, BufferSize)}
}

// Next reads the next entry. It returns io.EOF at a clean end of stream and
// an ErrMalformed error if the stream ends inside an entry.
func (r *Reader) Next() (Entry, error) {
	var e Entry
	n, err := io.ReadFull(r.br, e[:])
	start := r.off
	r.off += int64(n)
	switch {
	case err == nil:
		r.n++
		return e, nil
	case n == 0 && errors.Is(err, io.EOF):
		return e, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return e, rgterr.New(rgterr.ErrMalformed,
			fmt.Sprintf("partial index entry of %d bytes", n), start, r.off)
	default:
		return e, rgterr.Wrap(rgterr.ErrIO, "read index", start, r.off, err)
	}
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int64 {
	return r.off
}

// Count returns the number of complete entries read.
func (r *Reader) Count() int64 {
	return r.n
}

// Writer writes index entries to a buffered stream.
type Writer struct {
	bw *bufio.Writer
	n  int64
}

// NewWriter returns a buffered index writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, BufferSize)}
}

// Write appends one entry.
func (w *Writer) Write(e Entry) error {
	if _, err := w.bw.Write(e[:]); err != nil {
		return rgterr.Wrap(rgterr.ErrIO, "write index", w.n*EntrySize, rgterr.NoPos, err)
	}
	w.n++
	return nil
}

// Count returns the number of entries written.
func (w *Writer) Count() int64 {
	return w.n
}

// Flush writes buffered entries to the underlying stream.
func (w *Writer) Flush() error {
	if err := w.bw.Flush(); err != nil {
		return rgterr.Wrap(rgterr.ErrIO, "flush index", rgterr.NoPos, rgterr.NoPos, err)
	}
	return nil
}

// Size returns the size of r when it is a regular file, and false otherwise.
func Size(r io.Reader) (int64, bool) {
	f, ok := r.(*os.File)
	if !ok {
		return 0, false
	}
	fi, err := f.Stat()
	if err != nil || !fi.Mode().IsRegular() {
		return 0, false
	}
	return fi.Size(), true
}

// CheckSize returns an ErrMalformed error if size is not a whole number of entries.
func CheckSize(size int64) error {
	if _, ok := Count(size); !ok {
		return rgterr.New(rgterr.ErrMalformed,
			fmt.Sprintf("invalid input length %d: not a multiple of %d", size, EntrySize),
			rgterr.NoPos, size-size%EntrySize)
	}
	return nil
}

// GrowFunc is called before ReadAll enlarges its buffer. It is asked for
// want more bytes and returns the number granted, which is at least need,
// or an error that stops the read.
type GrowFunc func(want, need int64) (int64, error)

// ReadAll reads a whole index into buf, growing it as needed. Every
// enlargement is granted by grow first; a nil grow allows any size.
// A buf with capacity for the whole stream is filled without reallocation.
// The returned slice length is a multiple of EntrySize.
func ReadAll(r io.Reader, buf []byte, grow GrowFunc) ([]byte, error) {
	data := buf[:0]
	var pending [EntrySize]byte
	for {
		var n int
		var err error
		if len(data) < cap(data) {
			n, err = r.Read(data[len(data):cap(data)])
			data = data[:len(data)+n]
		} else {
			n, err = r.Read(pending[:])
			if n > 0 {
				var gerr error
				if data, gerr = enlarge(data, int64(n), grow); gerr != nil {
					return nil, gerr
				}
				data = append(data, pending[:n]...)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rgterr.Wrap(rgterr.ErrIO, "read index", rgterr.NoPos, int64(len(data)), err)
		}
	}
	if err := CheckSize(int64(len(data))); err != nil {
		return nil, err
	}
	return data, nil
}

// enlarge returns data copied into a buffer with room for at least need
// more bytes, doubling the capacity when grow allows it.
func enlarge(data []byte, need int64, grow GrowFunc) ([]byte, error) {
	extra := max(int64(cap(data)), BufferSize, need)
	if grow != nil {
		granted, err := grow(extra, need)
		if err != nil {
			return nil, err
		}
		extra = max(granted, need)
	}
	bigger := make([]byte, len(data), int64(cap(data))+extra)
	copy(bigger, data)
	return bigger, nil
}
