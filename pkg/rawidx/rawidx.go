// Package rawidx implements the secondary timestamp index of a raw log.
//
// Index format: a headerless sequence of 16-byte entries.
//
//	entry :=
//	  offset:    uint64   // big-endian, message offset in the log
//	  timestamp: [8]byte  // message ts_sec and ts_usec, verbatim (big-endian)
//
// Entries are ordered by comparing the timestamp bytes directly; no host
// conversion is needed because both halves are stored big-endian.
package rawidx

import (
	"bytes"
	"encoding/binary"
	"math"
)

const (
	// EntrySize is the size of one index entry in bytes.
	EntrySize = 16
	// TimestampOffset is the position of the timestamp inside an entry.
	TimestampOffset = 8
	// MaxOffset is the largest offset the host can seek to.
	MaxOffset = math.MaxInt64
)

// Entry is one index record in its on-disk form.
type Entry [EntrySize]byte

// NewEntry builds an entry from a message offset and its raw timestamp.
func NewEntry(offset uint64, ts [8]byte) Entry {
	var e Entry
	binary.BigEndian.PutUint64(e[0:TimestampOffset], offset)
	copy(e[TimestampOffset:], ts[:])
	return e
}

// Offset returns the message offset.
func (e Entry) Offset() uint64 {
	return binary.BigEndian.Uint64(e[0:TimestampOffset])
}

// Timestamp returns the raw 8 timestamp bytes.
func (e Entry) Timestamp() [8]byte {
	var ts [8]byte
	copy(ts[:], e[TimestampOffset:])
	return ts
}

// Seekable reports whether the offset fits a host file offset.
func (e Entry) Seekable() bool {
	return e.Offset() <= MaxOffset
}

// CompareTimestamps orders two encoded entries by their timestamp bytes.
// Both slices must be at least EntrySize long.
func CompareTimestamps(a, b []byte) int {
	return bytes.Compare(a[TimestampOffset:EntrySize], b[TimestampOffset:EntrySize])
}

// Count returns the number of entries in an index of size bytes,
// and false if size is not a whole number of entries.
func Count(size int64) (int64, bool) {
	if size < 0 || size%EntrySize != 0 {
		return 0, false
	}
	return size / EntrySize, true
}
