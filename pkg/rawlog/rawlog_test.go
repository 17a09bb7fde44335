package rawlog

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/eunmann/rgt-idx/pkg/rgterr"
)

func mustCodec(t *testing.T, cfg Config) *Codec {
	t.Helper()
	c, err := NewCodec(cfg)
	if err != nil {
		t.Fatalf("NewCodec(%+v): %v", cfg, err)
	}
	return c
}

func msg(sec, usec uint32, entity, user, format string, args ...string) Message {
	m := Message{
		Version:   Version,
		Timestamp: MakeTimestamp(sec, usec),
		Level:     0x10,
		ID:        7,
		Entity:    []byte(entity),
		User:      []byte(user),
		Format:    []byte(format),
	}
	for _, a := range args {
		m.Args = append(m.Args, []byte(a))
	}
	return m
}

// encodeLog returns the version byte followed by msgs, plus message offsets.
func encodeLog(t *testing.T, c *Codec, msgs ...Message) ([]byte, []int64) {
	t.Helper()
	log := []byte{Version}
	var offs []int64
	for i := range msgs {
		offs = append(offs, int64(len(log)))
		var err error
		log, err = c.AppendMessage(log, &msgs[i])
		if err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}
	return log, offs
}

func TestNewCodecWidths(t *testing.T) {
	tests := []struct {
		cfg     Config
		eor     uint32
		fixed   int
		wantErr string
	}{
		{cfg: Config{1, 1, 1}, eor: 0xFF, fixed: 11},
		{cfg: Config{2, 2, 4}, eor: 0xFFFF, fixed: 15},
		{cfg: Config{4, 4, 4}, eor: 0xFFFFFFFF, fixed: 17},
		{cfg: Config{3, 2, 4}, wantErr: "nfl width"},
		{cfg: Config{2, 0, 4}, wantErr: "level width"},
		{cfg: Config{2, 2, 8}, wantErr: "id width"},
	}

	for _, tt := range tests {
		c, err := NewCodec(tt.cfg)
		if tt.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewCodec(%+v) error = %v, want %q", tt.cfg, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewCodec(%+v): %v", tt.cfg, err)
		}
		if c.EndOfRecordLen() != tt.eor {
			t.Errorf("EndOfRecordLen() = %#x, want %#x", c.EndOfRecordLen(), tt.eor)
		}
		if c.FixedHeaderSize() != tt.fixed {
			t.Errorf("FixedHeaderSize() = %d, want %d", c.FixedHeaderSize(), tt.fixed)
		}
	}
}

func TestFieldHeader(t *testing.T) {
	for _, w := range []int{1, 2, 4} {
		c := mustCodec(t, Config{NFLWidth: w, LevelWidth: 2, IDWidth: 4})
		b := make([]byte, w)

		c.PutFieldHeader(b, EndOfRecord)
		if !bytes.Equal(b, bytes.Repeat([]byte{0xFF}, w)) {
			t.Errorf("width %d: EndOfRecord encoded as %x", w, b)
		}
		if h := c.ParseFieldHeader(b); !h.IsEndOfRecord() || h.Len() != 0 {
			t.Errorf("width %d: parsed %+v, want EndOfRecord", w, h)
		}

		c.PutFieldHeader(b, Payload(c.MaxFieldLen()))
		h := c.ParseFieldHeader(b)
		if h.IsEndOfRecord() || h.Len() != c.MaxFieldLen() {
			t.Errorf("width %d: parsed %+v, want Payload(%d)", w, h, c.MaxFieldLen())
		}
	}
}

func TestTimestamp(t *testing.T) {
	ts := MakeTimestamp(1000, 500)
	want := []byte{0, 0, 0x03, 0xE8, 0, 0, 0x01, 0xF4}
	if !bytes.Equal(ts[:], want) {
		t.Errorf("MakeTimestamp(1000, 500) = %x, want %x", ts[:], want)
	}
	if ts.Seconds() != 1000 || ts.Microseconds() != 500 {
		t.Errorf("Seconds/Microseconds = %d/%d", ts.Seconds(), ts.Microseconds())
	}
	if ts.String() != "1000.000500" {
		t.Errorf("String() = %q", ts.String())
	}

	ordered := []Timestamp{
		MakeTimestamp(0, 0),
		MakeTimestamp(0, 999999),
		MakeTimestamp(1, 0),
		MakeTimestamp(256, 1),
		MakeTimestamp(0xFFFFFFFF, 0),
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Compare(ordered[i]) >= 0 {
			t.Errorf("%v should sort before %v", ordered[i-1], ordered[i])
		}
	}
	if ts.Compare(MakeTimestamp(1000, 500)) != 0 {
		t.Error("equal timestamps should compare 0")
	}
}

func TestAppendMessageLayout(t *testing.T) {
	c := mustCodec(t, Config{NFLWidth: 2, LevelWidth: 2, IDWidth: 4})
	m := msg(1000, 500, "E", "U", "F")
	m.Level = 0x0102
	m.ID = 0x0A0B0C0D

	got, err := c.AppendMessage(nil, &m)
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	want := []byte{
		0x01,
		0x00, 0x00, 0x03, 0xE8,
		0x00, 0x00, 0x01, 0xF4,
		0x01, 0x02,
		0x0A, 0x0B, 0x0C, 0x0D,
		0x00, 0x01, 'E',
		0x00, 0x01, 'U',
		0x00, 0x01, 'F',
		0xFF, 0xFF,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("encoded\n got %x\nwant %x", got, want)
	}
	if c.EncodedSize(&m) != len(want) {
		t.Errorf("EncodedSize = %d, want %d", c.EncodedSize(&m), len(want))
	}
}

func TestAppendMessageRejects(t *testing.T) {
	c := mustCodec(t, Config{NFLWidth: 1, LevelWidth: 1, IDWidth: 1})

	long := msg(1, 0, "E", "U", "F", strings.Repeat("x", 255))
	if _, err := c.AppendMessage(nil, &long); err == nil {
		t.Error("expected error for field as long as the sentinel")
	}

	fits := msg(1, 0, "E", "U", "F", strings.Repeat("x", 254))
	if _, err := c.AppendMessage(nil, &fits); err != nil {
		t.Errorf("254-byte field should fit nfl width 1: %v", err)
	}

	wide := msg(1, 0, "E", "U", "F")
	wide.Level = 0x100
	if _, err := c.AppendMessage(nil, &wide); err == nil {
		t.Error("expected error for level wider than 1 byte")
	}

	wide = msg(1, 0, "E", "U", "F")
	wide.ID = 0x100
	if _, err := c.AppendMessage(nil, &wide); err == nil {
		t.Error("expected error for id wider than 1 byte")
	}
}

func TestReaderRoundTrip(t *testing.T) {
	widths := []Config{{1, 1, 1}, {2, 2, 4}, {4, 4, 4}, {2, 4, 1}}
	msgs := []Message{
		msg(2000, 0, "Tester", "Self", "no args"),
		msg(1000, 999999, "Agt_A", "RCF", "%s=%d", "key", "42"),
		msg(1000, 0, "", "", ""),
		msg(5, 1, "E", "U", "%s%s%s%s", "", "a", "", "bb"),
	}

	for _, cfg := range widths {
		c := mustCodec(t, cfg)
		log, offs := encodeLog(t, c, msgs...)

		t.Run("timestamps", func(t *testing.T) {
			r := NewReader(bytes.NewReader(log), c)
			if v, err := r.ReadFileVersion(); err != nil || v != Version {
				t.Fatalf("ReadFileVersion = %d, %v", v, err)
			}
			for i, want := range msgs {
				if r.Offset() != offs[i] {
					t.Errorf("message %d: offset %d, want %d", i, r.Offset(), offs[i])
				}
				ts, err := r.NextTimestamp()
				if err != nil {
					t.Fatalf("message %d: %v", i, err)
				}
				if ts != want.Timestamp {
					t.Errorf("message %d: timestamp %v, want %v", i, ts, want.Timestamp)
				}
			}
			if _, err := r.NextTimestamp(); err != io.EOF {
				t.Errorf("expected io.EOF, got %v", err)
			}
			if r.Offset() != int64(len(log)) {
				t.Errorf("final offset %d, want %d", r.Offset(), len(log))
			}
		})

		t.Run("messages", func(t *testing.T) {
			r := NewReader(bytes.NewReader(log), c)
			if _, err := r.ReadFileVersion(); err != nil {
				t.Fatal(err)
			}
			var m Message
			for i, want := range msgs {
				if err := r.NextMessage(&m); err != nil {
					t.Fatalf("message %d: %v", i, err)
				}
				end := int64(len(log))
				if i+1 < len(offs) {
					end = offs[i+1]
				}
				if !bytes.Equal(m.Raw, log[offs[i]:end]) {
					t.Errorf("message %d: raw span mismatch", i)
				}
				if m.Timestamp != want.Timestamp || m.Level != want.Level || m.ID != want.ID {
					t.Errorf("message %d: header mismatch: %+v", i, m)
				}
				if string(m.Entity) != string(want.Entity) ||
					string(m.User) != string(want.User) ||
					string(m.Format) != string(want.Format) {
					t.Errorf("message %d: required fields mismatch", i)
				}
				if len(m.Args) != len(want.Args) {
					t.Fatalf("message %d: %d args, want %d", i, len(m.Args), len(want.Args))
				}
				for j := range m.Args {
					if string(m.Args[j]) != string(want.Args[j]) {
						t.Errorf("message %d arg %d: %q, want %q", i, j, m.Args[j], want.Args[j])
					}
				}
			}
			if err := r.NextMessage(&m); err != io.EOF {
				t.Errorf("expected io.EOF, got %v", err)
			}
		})
	}
}

func TestReaderLargeField(t *testing.T) {
	for _, w := range []int{2, 4} {
		c := mustCodec(t, Config{NFLWidth: w, LevelWidth: 2, IDWidth: 4})
		big := strings.Repeat("z", 3*MinBufferSize+17)
		log, _ := encodeLog(t, c,
			msg(1, 0, "E", "U", "%s", big),
			msg(2, 0, "E", "U", "small"),
		)

		r := NewReader(bytes.NewReader(log), c)
		if _, err := r.ReadFileVersion(); err != nil {
			t.Fatal(err)
		}
		var m Message
		if err := r.NextMessage(&m); err != nil {
			t.Fatalf("width %d: %v", w, err)
		}
		if len(m.Args) != 1 || string(m.Args[0]) != big {
			t.Errorf("width %d: large argument not decoded", w)
		}
		if err := r.NextMessage(&m); err != nil {
			t.Fatalf("width %d: second message: %v", w, err)
		}
		if string(m.Format) != "small" {
			t.Errorf("width %d: format %q", w, m.Format)
		}

		r = NewReader(bytes.NewReader(log), c)
		_, _ = r.ReadFileVersion()
		if _, err := r.NextTimestamp(); err != nil {
			t.Fatalf("width %d: fast path: %v", w, err)
		}
		ts, err := r.NextTimestamp()
		if err != nil || ts.Seconds() != 2 {
			t.Errorf("width %d: fast path second message: %v %v", w, ts, err)
		}
	}
}

func TestReaderTruncated(t *testing.T) {
	c := mustCodec(t, DefaultConfig())
	log, _ := encodeLog(t, c, msg(1000, 500, "E", "U", "F", "arg"))

	for cut := 2; cut < len(log); cut++ {
		r := NewReader(bytes.NewReader(log[:cut]), c)
		if _, err := r.ReadFileVersion(); err != nil {
			t.Fatal(err)
		}
		_, err := r.NextTimestamp()
		if !errors.Is(err, rgterr.ErrTruncated) {
			t.Errorf("cut %d: NextTimestamp error = %v, want truncated", cut, err)
		}

		r = NewReader(bytes.NewReader(log[:cut]), c)
		_, _ = r.ReadFileVersion()
		var m Message
		err = r.NextMessage(&m)
		if !errors.Is(err, rgterr.ErrTruncated) {
			t.Errorf("cut %d: NextMessage error = %v, want truncated", cut, err)
		}
		var e *rgterr.Error
		if errors.As(err, &e) && (e.Offset != 1 || e.Pos != int64(cut)) {
			t.Errorf("cut %d: positions %d/%d, want 1/%d", cut, e.Offset, e.Pos, cut)
		}
	}
}

func TestReaderSentinelInRequiredField(t *testing.T) {
	c := mustCodec(t, DefaultConfig())
	log := []byte{
		0x01,
		0x01,
		0, 0, 0, 1, 0, 0, 0, 0,
		0, 0,
		0, 0, 0, 0,
		0x00, 0x01, 'E',
		0xFF, 0xFF,
	}

	r := NewReader(bytes.NewReader(log), c)
	_, _ = r.ReadFileVersion()
	if _, err := r.NextTimestamp(); !errors.Is(err, rgterr.ErrMalformed) {
		t.Errorf("NextTimestamp error = %v, want malformed", err)
	}

	r = NewReader(bytes.NewReader(log), c)
	_, _ = r.ReadFileVersion()
	var m Message
	if err := r.NextMessage(&m); !errors.Is(err, rgterr.ErrMalformed) {
		t.Errorf("NextMessage error = %v, want malformed", err)
	}
}

func TestReaderVersion(t *testing.T) {
	c := mustCodec(t, DefaultConfig())

	t.Run("empty file", func(t *testing.T) {
		r := NewReader(bytes.NewReader(nil), c)
		if _, err := r.ReadFileVersion(); !errors.Is(err, rgterr.ErrTruncated) {
			t.Errorf("error = %v, want truncated", err)
		}
	})

	t.Run("wrong file version", func(t *testing.T) {
		r := NewReader(bytes.NewReader([]byte{2}), c)
		v, err := r.ReadFileVersion()
		if !errors.Is(err, rgterr.ErrUnsupportedVersion) {
			t.Errorf("error = %v, want unsupported version", err)
		}
		if v != 2 {
			t.Errorf("version = %d, want 2", v)
		}
	})

	t.Run("wrong message version", func(t *testing.T) {
		log, _ := encodeLog(t, c, msg(1, 0, "E", "U", "F"), msg(2, 0, "E", "U", "F"))
		second := 1 + c.EncodedSize(&Message{Entity: []byte("E"), User: []byte("U"), Format: []byte("F")})
		log[second] = 3

		r := NewReader(bytes.NewReader(log), c)
		_, _ = r.ReadFileVersion()
		if _, err := r.NextTimestamp(); err != nil {
			t.Fatalf("first message: %v", err)
		}
		_, err := r.NextTimestamp()
		if !errors.Is(err, rgterr.ErrUnsupportedVersion) {
			t.Fatalf("error = %v, want unsupported version", err)
		}
		var e *rgterr.Error
		if !errors.As(err, &e) || e.Offset != int64(second) {
			t.Errorf("error offset = %+v, want %d", e, second)
		}
	})
}

func TestReaderReset(t *testing.T) {
	c := mustCodec(t, DefaultConfig())
	log, offs := encodeLog(t, c,
		msg(3, 0, "A", "U", "F"),
		msg(1, 0, "B", "U", "F"),
		msg(2, 0, "C", "U", "F"),
	)

	src := bytes.NewReader(log)
	r := NewReader(src, c)
	var m Message
	for _, i := range []int{2, 0, 1, 2} {
		if _, err := src.Seek(offs[i], io.SeekStart); err != nil {
			t.Fatal(err)
		}
		r.Reset(src, offs[i])
		if err := r.NextMessage(&m); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if want := string(rune('A' + i)); string(m.Entity) != want {
			t.Errorf("message %d: entity %q, want %q", i, m.Entity, want)
		}
	}
}

func TestBufferEnsure(t *testing.T) {
	var buf Buffer
	buf.Ensure(1)
	if buf.Cap() != MinBufferSize {
		t.Errorf("Cap() = %d, want %d", buf.Cap(), MinBufferSize)
	}

	copy(buf.Bytes(3), "abc")
	buf.Ensure(MinBufferSize + 1)
	if buf.Cap() != MinBufferSize+MinBufferSize/2 {
		t.Errorf("Cap() = %d, want %d", buf.Cap(), MinBufferSize+MinBufferSize/2)
	}
	if string(buf.Bytes(3)) != "abc" {
		t.Errorf("contents lost on growth: %q", buf.Bytes(3))
	}

	before := buf.Cap()
	buf.Ensure(10)
	if buf.Cap() != before {
		t.Error("Ensure should not shrink")
	}
}

func TestWriter(t *testing.T) {
	c := mustCodec(t, DefaultConfig())
	msgs := []Message{msg(1, 2, "E", "U", "F", "a"), msg(3, 4, "E2", "U2", "F2")}
	want, _ := encodeLog(t, c, msgs...)

	var out bytes.Buffer
	w := NewWriter(&out, c)
	if err := w.WriteFileVersion(Version); err != nil {
		t.Fatal(err)
	}
	for i := range msgs {
		if err := w.WriteMessage(&msgs[i]); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("writer output differs from AppendMessage")
	}
	if w.Offset() != int64(len(want)) {
		t.Errorf("Offset() = %d, want %d", w.Offset(), len(want))
	}

	tooLong := msg(1, 0, "E", "U", "F", strings.Repeat("x", 0xFFFF))
	if err := w.WriteMessage(&tooLong); !errors.Is(err, rgterr.ErrMalformed) {
		t.Errorf("error = %v, want malformed", err)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriterIOError(t *testing.T) {
	c := mustCodec(t, DefaultConfig())
	w := NewWriter(failWriter{}, c)
	_ = w.WriteFileVersion(Version)
	err := w.Flush()
	if !errors.Is(err, rgterr.ErrIO) {
		t.Errorf("Flush error = %v, want i/o error", err)
	}
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected OS message in %v", err)
	}
}
