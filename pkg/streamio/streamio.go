// Package streamio opens the inputs and outputs named on the command line.
//
// The name "-" selects the standard stream. Logs may be zstd compressed:
// sequential readers decompress any zstd stream transparently, while random
// access requires the seekable zstd format, whose seek table maps
// uncompressed offsets to frames.
package streamio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/eunmann/rgt-idx/pkg/rgterr"
)

// StdStream is the path that selects standard input or output.
const StdStream = "-"

// BufferSize is the buffer size used when peeking at inputs.
const BufferSize = 64 * 1024

// zstdMagic starts every zstd frame, including the first frame of a
// seekable zstd stream.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Input is an opened input stream.
type Input struct {
	io.Reader

	// Name is the path as given, or "-".
	Name string
	// Compressed reports whether the stream is being decompressed.
	Compressed bool

	file *os.File
	dec  *zstd.Decoder
}

// Close releases the input. Standard input is left open.
func (in *Input) Close() error {
	if in.dec != nil {
		in.dec.Close()
	}
	if in.file != nil {
		if err := in.file.Close(); err != nil {
			return rgterr.Wrap(rgterr.ErrIO, "close "+in.Name, rgterr.NoPos, rgterr.NoPos, err)
		}
	}
	return nil
}

// Open opens name for reading without any transformation, so a regular file
// can still be sized with Stat.
func Open(name string, stdin io.Reader) (*Input, error) {
	if name == StdStream {
		return &Input{Reader: stdin, Name: name}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, rgterr.Wrap(rgterr.ErrIO, "open "+name, rgterr.NoPos, rgterr.NoPos, err)
	}
	return &Input{Reader: f, Name: name, file: f}, nil
}

// OpenLog opens a log for sequential reading, decompressing it if it starts
// with a zstd frame. Offsets seen by the reader are uncompressed offsets.
func OpenLog(name string, stdin io.Reader) (*Input, error) {
	in, err := Open(name, stdin)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(in.Reader, BufferSize)
	in.Reader = br

	magic, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		_ = in.Close()
		return nil, rgterr.Wrap(rgterr.ErrIO, "read "+name, rgterr.NoPos, 0, err)
	}
	if !bytes.Equal(magic, zstdMagic) {
		return in, nil
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		_ = in.Close()
		return nil, rgterr.Wrap(rgterr.ErrIO, "open zstd stream "+name, rgterr.NoPos, 0, err)
	}
	in.Reader = &decodeErrReader{r: dec, name: name}
	in.dec = dec
	in.Compressed = true
	return in, nil
}

// decodeErrReader classifies decompression failures as I/O errors so that
// the log reader does not mistake them for a truncated message.
type decodeErrReader struct {
	r    io.Reader
	name string
}

func (d *decodeErrReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("decompress %s: %w", d.name, err)
	}
	return n, err
}
