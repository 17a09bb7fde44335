package streamio

import (
	"bufio"
	"errors"
	"io"
	"os"

	seekable "github.com/SaveTheRbtz/zstd-seekable-format-go/pkg"
	"github.com/klauspost/compress/zstd"

	"github.com/eunmann/rgt-idx/pkg/rgterr"
)

// FrameSize is the uncompressed size of each seekable zstd frame.
// Random access decompresses at most one frame per message that fits in it.
const FrameSize = 256 << 10

// Output is an opened output stream.
type Output struct {
	io.Writer

	// Name is the path as given, or "-".
	Name string

	file  *os.File
	frame *bufio.Writer
	sw    io.WriteCloser
	enc   *zstd.Encoder
}

// Create opens name for writing, truncating an existing file.
func Create(name string, stdout io.Writer) (*Output, error) {
	if name == StdStream {
		return &Output{Writer: stdout, Name: name}, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, rgterr.Wrap(rgterr.ErrIO, "create "+name, rgterr.NoPos, rgterr.NoPos, err)
	}
	return &Output{Writer: f, Name: name, file: f}, nil
}

// CreateCompressed is like Create but writes seekable zstd, so the result can
// be read back with OpenSeekableLog. Close must be called to write the seek
// table.
func CreateCompressed(name string, stdout io.Writer) (*Output, error) {
	out, err := Create(name, stdout)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1))
	if err != nil {
		_ = out.Close()
		return nil, rgterr.Wrap(rgterr.ErrIO, "init zstd encoder", rgterr.NoPos, rgterr.NoPos, err)
	}
	sw, err := seekable.NewWriter(out.Writer, enc)
	if err != nil {
		_ = enc.Close()
		_ = out.Close()
		return nil, rgterr.Wrap(rgterr.ErrIO, "init seekable zstd writer", rgterr.NoPos, rgterr.NoPos, err)
	}
	// Every Write to the seekable writer becomes one frame.
	out.frame = bufio.NewWriterSize(sw, FrameSize)
	out.sw = sw
	out.enc = enc
	out.Writer = out.frame
	return out, nil
}

// Close flushes any compression state and releases the output.
// Standard output is left open.
func (o *Output) Close() error {
	var errs []error
	if o.frame != nil {
		errs = append(errs, o.frame.Flush())
	}
	if o.sw != nil {
		errs = append(errs, o.sw.Close())
	}
	if o.enc != nil {
		errs = append(errs, o.enc.Close())
	}
	if o.file != nil {
		errs = append(errs, o.file.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return rgterr.Wrap(rgterr.ErrIO, "close "+o.Name, rgterr.NoPos, rgterr.NoPos, err)
	}
	return nil
}
