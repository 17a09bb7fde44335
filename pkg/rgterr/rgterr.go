// Package rgterr defines the error kinds shared by the raw log index tools.
//
// Every failure surfaced by the codec and the index pipelines carries one of
// the sentinel kinds below, so callers can classify it with errors.Is while
// still reaching the underlying OS error through errors.Unwrap.
package rgterr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedVersion indicates a file or message version byte other than 1.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrTruncated indicates end of stream where more bytes were required.
	ErrTruncated = errors.New("truncated")
	// ErrMalformed indicates a structurally invalid message or index.
	ErrMalformed = errors.New("malformed")
	// ErrOffsetOutOfRange indicates an index offset the host cannot seek to.
	ErrOffsetOutOfRange = errors.New("offset out of range")
	// ErrIO indicates an underlying read, write or seek failure.
	ErrIO = errors.New("i/o error")
	// ErrOutOfMemory indicates a required allocation does not fit the memory budget.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrUsage indicates missing, extraneous or empty command-line arguments.
	ErrUsage = errors.New("usage error")
)

// NoPos marks Offset or Pos as not applicable.
const NoPos int64 = -1

// Error is a classified failure with its input position.
type Error struct {
	// Kind is one of the sentinel errors of this package.
	Kind error
	// Op describes what was being done, e.g. "read message".
	Op string
	// Offset is the start of the record being processed, or NoPos.
	Offset int64
	// Pos is the input position at which the failure was detected, or NoPos.
	Pos int64
	// Err is the cause, if any.
	Err error
}

// New returns an Error without a cause.
func New(kind error, op string, offset, pos int64) *Error {
	return &Error{Kind: kind, Op: op, Offset: offset, Pos: pos}
}

// Wrap returns an Error with the given cause.
func Wrap(kind error, op string, offset, pos int64, err error) *Error {
	return &Error{Kind: kind, Op: op, Offset: offset, Pos: pos, Err: err}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Offset != NoPos {
		fmt.Fprintf(&sb, " (starting at %d)", e.Offset)
	}
	if e.Pos != NoPos && e.Pos != e.Offset {
		fmt.Fprintf(&sb, " at %d", e.Pos)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Kind.Error())
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// kinds is searched in order; ErrUsage comes first so a usage error that
// wraps another failure is still reported as misuse.
var kinds = []error{
	ErrUsage,
	ErrUnsupportedVersion,
	ErrTruncated,
	ErrMalformed,
	ErrOffsetOutOfRange,
	ErrIO,
	ErrOutOfMemory,
}

// KindOf returns the kind of err, or nil if err carries none.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
