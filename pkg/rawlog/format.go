// Package rawlog reads and writes the RGT raw log format.
//
// A raw log is one version byte followed by self-delimited messages:
//
//	log     := version message*
//	message :=
//	  version:  uint8           // must equal the file version
//	  ts_sec:   uint32          // big-endian
//	  ts_usec:  uint32          // big-endian, [0, 999999]
//	  level:    uint{8,16,32}   // big-endian, LevelWidth
//	  id:       uint{8,16,32}   // big-endian, IDWidth
//	  field{3}                  // entity, user, format
//	  field*                    // format arguments
//	  nfl:      EOR             // all-ones of NFLWidth
//	field   := nfl payload[nfl]
//
// The widths of nfl, level and id are a property of the log family and are
// chosen when the Codec is constructed.
package rawlog

import (
	"encoding/binary"
	"fmt"
)

// Version is the only supported file and message version.
const Version byte = 1

// Config pins the variable integer widths of a log family.
type Config struct {
	// NFLWidth is the width of every field length header (1, 2 or 4).
	NFLWidth int
	// LevelWidth is the width of the level bitmask (1, 2 or 4).
	LevelWidth int
	// IDWidth is the width of the logical stream id (1, 2 or 4).
	IDWidth int
}

// DefaultConfig returns the widths used when none are configured.
func DefaultConfig() Config {
	return Config{
		NFLWidth:   2,
		LevelWidth: 2,
		IDWidth:    4,
	}
}

func validWidth(w int) bool {
	return w == 1 || w == 2 || w == 4
}

// Validate checks that all widths are supported.
func (c Config) Validate() error {
	if !validWidth(c.NFLWidth) {
		return fmt.Errorf("invalid nfl width %d: must be 1, 2 or 4", c.NFLWidth)
	}
	if !validWidth(c.LevelWidth) {
		return fmt.Errorf("invalid level width %d: must be 1, 2 or 4", c.LevelWidth)
	}
	if !validWidth(c.IDWidth) {
		return fmt.Errorf("invalid id width %d: must be 1, 2 or 4", c.IDWidth)
	}
	return nil
}

// FieldHeader is a decoded nfl: either a payload length or the end-of-record marker.
type FieldHeader struct {
	n   uint32
	eor bool
}

// Payload returns a header announcing n payload bytes.
func Payload(n uint32) FieldHeader {
	return FieldHeader{n: n}
}

// EndOfRecord is the header terminating a message.
var EndOfRecord = FieldHeader{eor: true}

// IsEndOfRecord reports whether h terminates the message.
func (h FieldHeader) IsEndOfRecord() bool {
	return h.eor
}

// Len returns the payload length. It is zero for EndOfRecord.
func (h FieldHeader) Len() uint32 {
	return h.n
}

// Codec encodes and decodes the integer fields of one log family.
type Codec struct {
	cfg    Config
	eorLen uint32
	// fixed is the size of version+timestamp+level+id.
	fixed int
}

// NewCodec returns a codec for the given widths.
func NewCodec(cfg Config) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Codec{
		cfg:    cfg,
		eorLen: maxUint(cfg.NFLWidth),
		fixed:  1 + TimestampSize + cfg.LevelWidth + cfg.IDWidth,
	}, nil
}

// Config returns the widths of the codec.
func (c *Codec) Config() Config {
	return c.cfg
}

// FixedHeaderSize is the number of bytes before the first field header.
func (c *Codec) FixedHeaderSize() int {
	return c.fixed
}

// EndOfRecordLen is the on-disk sentinel value of the nfl width.
func (c *Codec) EndOfRecordLen() uint32 {
	return c.eorLen
}

// MaxFieldLen is the largest payload a field can carry.
func (c *Codec) MaxFieldLen() uint32 {
	return c.eorLen - 1
}

// ParseFieldHeader decodes an nfl from the first NFLWidth bytes of b.
func (c *Codec) ParseFieldHeader(b []byte) FieldHeader {
	n := getUint(b, c.cfg.NFLWidth)
	if n == c.eorLen {
		return EndOfRecord
	}
	return Payload(n)
}

// PutFieldHeader encodes h into the first NFLWidth bytes of b.
func (c *Codec) PutFieldHeader(b []byte, h FieldHeader) {
	if h.eor {
		putUint(b, c.cfg.NFLWidth, c.eorLen)
		return
	}
	putUint(b, c.cfg.NFLWidth, h.n)
}

func getUint(b []byte, width int) uint32 {
	switch width {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(binary.BigEndian.Uint16(b))
	default:
		return binary.BigEndian.Uint32(b)
	}
}

func putUint(b []byte, width int, v uint32) {
	switch width {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.BigEndian.PutUint16(b, uint16(v))
	default:
		binary.BigEndian.PutUint32(b, v)
	}
}

// maxUint returns the largest value representable in width bytes.
func maxUint(width int) uint32 {
	return uint32(uint64(1)<<(8*uint(width)) - 1)
}
