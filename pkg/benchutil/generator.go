// Package benchutil provides synthetic raw log generation for benchmarks and testing.
package benchutil

import (
	"fmt"
	"math/rand"

	"github.com/eunmann/rgt-idx/pkg/rawlog"
)

// GeneratorConfig configures synthetic log generation.
type GeneratorConfig struct {
	// NumMessages is the total number of messages to generate.
	NumMessages int
	// MaxArgs is the maximum number of format arguments per message.
	MaxArgs int
	// MaxFieldLen caps the length of generated arguments.
	MaxFieldLen int
	// BaseSeconds is the earliest timestamp second.
	BaseSeconds uint32
	// SpreadSeconds is the width of the timestamp window.
	// Small spreads produce many equal timestamps.
	SpreadSeconds uint32
	// Entities is the number of distinct entity names.
	Entities int
	// Seed for reproducible generation. 0 = use default seed.
	Seed int64
}

// DefaultConfig returns a reasonable default configuration.
func DefaultConfig(numMessages int) GeneratorConfig {
	return GeneratorConfig{
		NumMessages:   numMessages,
		MaxArgs:       4,
		MaxFieldLen:   64,
		BaseSeconds:   1_700_000_000,
		SpreadSeconds: 3600,
		Entities:      8,
		Seed:          BenchmarkSeed,
	}
}

// CollidingConfig returns a config where most messages share a timestamp.
func CollidingConfig(numMessages int) GeneratorConfig {
	cfg := DefaultConfig(numMessages)
	cfg.SpreadSeconds = 2
	return cfg
}

// Generator generates synthetic log messages.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewGenerator creates a new message generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = BenchmarkSeed
	}
	if cfg.Entities <= 0 {
		cfg.Entities = 1
	}
	if cfg.SpreadSeconds == 0 {
		cfg.SpreadSeconds = 1
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Generate returns a slice of synthetic messages in unsorted timestamp order.
func (g *Generator) Generate() []rawlog.Message {
	msgs := make([]rawlog.Message, g.cfg.NumMessages)
	for i := range msgs {
		msgs[i] = g.generateMessage()
	}
	return msgs
}

func (g *Generator) generateMessage() rawlog.Message {
	sec := g.cfg.BaseSeconds + uint32(g.rng.Int63n(int64(g.cfg.SpreadSeconds)))
	usec := uint32(0)
	if g.rng.Intn(4) != 0 {
		usec = uint32(g.rng.Intn(rawlog.MaxMicroseconds + 1))
	}

	m := rawlog.Message{
		Version:   rawlog.Version,
		Timestamp: rawlog.MakeTimestamp(sec, usec),
		Level:     uint32(1) << uint(g.rng.Intn(8)),
		ID:        uint32(g.rng.Intn(200)),
		Entity:    []byte(fmt.Sprintf("Agt_%c", 'A'+byte(g.rng.Intn(g.cfg.Entities)%26))),
		User:      []byte(g.generateUser()),
	}

	nargs := 0
	if g.cfg.MaxArgs > 0 {
		nargs = g.rng.Intn(g.cfg.MaxArgs + 1)
	}
	format := "event"
	for range nargs {
		format += " %s"
		m.Args = append(m.Args, g.generateArg())
	}
	m.Format = []byte(format)
	return m
}

func (g *Generator) generateUser() string {
	users := []string{"Tester", "Configurator", "RCF", "TAPI Job", "Self", ""}
	return users[g.rng.Intn(len(users))]
}

func (g *Generator) generateArg() []byte {
	n := 0
	if g.cfg.MaxFieldLen > 0 {
		n = g.rng.Intn(g.cfg.MaxFieldLen + 1)
	}
	arg := make([]byte, n)
	for i := range arg {
		arg[i] = byte(g.rng.Intn(256))
	}
	return arg
}

// Message builds a message from strings, for hand-written test logs.
func Message(sec, usec uint32, entity, user, format string, args ...string) rawlog.Message {
	m := rawlog.Message{
		Version:   rawlog.Version,
		Timestamp: rawlog.MakeTimestamp(sec, usec),
		Entity:    []byte(entity),
		User:      []byte(user),
		Format:    []byte(format),
	}
	for _, a := range args {
		m.Args = append(m.Args, []byte(a))
	}
	return m
}

// EncodeLog encodes a complete log: the version byte followed by msgs.
// It also returns the offset of every message.
func EncodeLog(codec *rawlog.Codec, msgs []rawlog.Message) ([]byte, []int64, error) {
	log := []byte{rawlog.Version}
	offsets := make([]int64, 0, len(msgs))
	for i := range msgs {
		offsets = append(offsets, int64(len(log)))
		var err error
		log, err = codec.AppendMessage(log, &msgs[i])
		if err != nil {
			return nil, nil, fmt.Errorf("encode message %d: %w", i, err)
		}
	}
	return log, offsets, nil
}

// MustEncodeLog is like EncodeLog but panics on error.
func MustEncodeLog(codec *rawlog.Codec, msgs []rawlog.Message) []byte {
	log, _, err := EncodeLog(codec, msgs)
	if err != nil {
		panic(err)
	}
	return log
}

// MustCodec returns a codec for cfg or panics.
func MustCodec(cfg rawlog.Config) *rawlog.Codec {
	c, err := rawlog.NewCodec(cfg)
	if err != nil {
		panic(err)
	}
	return c
}
