package rawlog

import (
	"bufio"
	"io"

	"github.com/eunmann/rgt-idx/pkg/rgterr"
)

// OutputBufferSize is the write buffer size used for log output.
const OutputBufferSize = 16 * 1024

// Writer appends a raw log to a stream. It never seeks.
type Writer struct {
	codec *Codec
	bw    *bufio.Writer
	off   int64
	buf   []byte
}

// NewWriter returns a buffered log writer.
func NewWriter(w io.Writer, codec *Codec) *Writer {
	return &Writer{
		codec: codec,
		bw:    bufio.NewWriterSize(w, OutputBufferSize),
	}
}

// WriteFileVersion writes the leading version byte.
func (w *Writer) WriteFileVersion(v byte) error {
	if err := w.bw.WriteByte(v); err != nil {
		return rgterr.Wrap(rgterr.ErrIO, "write log file version", rgterr.NoPos, w.off, err)
	}
	w.off++
	return nil
}

// WriteMessage encodes m and writes it.
func (w *Writer) WriteMessage(m *Message) error {
	buf, err := w.codec.AppendMessage(w.buf[:0], m)
	if err != nil {
		return rgterr.Wrap(rgterr.ErrMalformed, "encode message", w.off, w.off, err)
	}
	w.buf = buf
	return w.WriteRaw(buf)
}

// WriteRaw writes an already encoded message span verbatim.
func (w *Writer) WriteRaw(raw []byte) error {
	n, err := w.bw.Write(raw)
	start := w.off
	w.off += int64(n)
	if err != nil {
		return rgterr.Wrap(rgterr.ErrIO, "write message", start, w.off, err)
	}
	return nil
}

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int64 {
	return w.off
}

// Flush writes any buffered data to the underlying stream.
func (w *Writer) Flush() error {
	if err := w.bw.Flush(); err != nil {
		return rgterr.Wrap(rgterr.ErrIO, "flush log", rgterr.NoPos, rgterr.NoPos, err)
	}
	return nil
}
