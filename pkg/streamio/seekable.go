package streamio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	seekable "github.com/SaveTheRbtz/zstd-seekable-format-go/pkg"
	"github.com/klauspost/compress/zstd"

	"github.com/eunmann/rgt-idx/pkg/rgterr"
)

// ErrNotSeekable indicates a log that cannot be read at arbitrary offsets.
var ErrNotSeekable = errors.New("log is not seekable")

// zstdDec is shared by all seekable readers; it is safe for concurrent use.
var zstdDec *zstd.Decoder

func init() {
	var err error
	zstdDec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic("zstd: init decoder: " + err.Error())
	}
}

// SeekableLog is a log opened for random access by uncompressed offset.
type SeekableLog struct {
	io.ReadSeeker

	// Name is the path as given, or "-".
	Name string
	// Compressed reports whether the log is seekable zstd.
	Compressed bool

	file *os.File
	sr   seekable.Reader
}

// Close releases the log. Standard input is left open.
func (l *SeekableLog) Close() error {
	var errs []error
	if l.sr != nil {
		errs = append(errs, l.sr.Close())
	}
	if l.file != nil {
		errs = append(errs, l.file.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return rgterr.Wrap(rgterr.ErrIO, "close "+l.Name, rgterr.NoPos, rgterr.NoPos, err)
	}
	return nil
}

// OpenSeekableLog opens a log for random access. Plain logs must be
// seekable files; compressed logs must be in the seekable zstd format.
// Anything else fails with an ErrIO error wrapping ErrNotSeekable.
func OpenSeekableLog(name string, stdin io.Reader) (*SeekableLog, error) {
	log := &SeekableLog{Name: name}
	var src io.Reader
	if name == StdStream {
		src = stdin
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, rgterr.Wrap(rgterr.ErrIO, "open "+name, rgterr.NoPos, rgterr.NoPos, err)
		}
		log.file = f
		src = f
	}

	rs, ok := src.(io.ReadSeeker)
	if !ok {
		_ = log.Close()
		return nil, notSeekable(name, nil)
	}
	if _, err := rs.Seek(0, io.SeekCurrent); err != nil {
		_ = log.Close()
		return nil, notSeekable(name, err)
	}

	var magic [4]byte
	n, err := io.ReadFull(rs, magic[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		_ = log.Close()
		return nil, rgterr.Wrap(rgterr.ErrIO, "read "+name, rgterr.NoPos, 0, err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		_ = log.Close()
		return nil, notSeekable(name, err)
	}

	if n < len(magic) || !bytes.Equal(magic[:], zstdMagic) {
		log.ReadSeeker = rs
		return log, nil
	}

	sr, err := seekable.NewReader(rs, zstdDec)
	if err != nil {
		_ = log.Close()
		return nil, notSeekable(name, fmt.Errorf("zstd stream without seek table: %w", err))
	}
	log.sr = sr
	log.ReadSeeker = sr
	log.Compressed = true
	return log, nil
}

func notSeekable(name string, cause error) error {
	err := ErrNotSeekable
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrNotSeekable, cause)
	}
	return rgterr.Wrap(rgterr.ErrIO, "open "+name, rgterr.NoPos, rgterr.NoPos, err)
}
