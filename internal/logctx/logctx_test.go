package logctx

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/eunmann/rgt-idx/pkg/logging"
	"github.com/rs/zerolog"
)

func TestFromContext_NilContext(t *testing.T) {
	var buf bytes.Buffer
	logging.SetLogger(zerolog.New(&buf).With().Str("global", "yes").Logger())
	defer logging.InitWriter(os.Stderr, logging.DefaultLevel, false)

	//nolint:staticcheck // nil context is part of the contract
	logger := FromContext(nil)
	logger.Warn().Msg("test")

	if !strings.Contains(buf.String(), `"global":"yes"`) {
		t.Errorf("expected global logger, got: %s", buf.String())
	}
}

func TestFromContext_ContextWithoutLogger(t *testing.T) {
	var buf bytes.Buffer
	logging.SetLogger(zerolog.New(&buf))
	defer logging.InitWriter(os.Stderr, logging.DefaultLevel, false)

	logger := FromContext(context.Background())
	logger.Warn().Msg("test")

	if buf.Len() == 0 {
		t.Error("expected global logger to produce output")
	}
}

func TestWithLogger_AndFromContext(t *testing.T) {
	var buf bytes.Buffer
	customLogger := zerolog.New(&buf).With().Str("custom", "field").Logger()

	ctx := WithLogger(context.Background(), customLogger)
	logger := FromContext(ctx)
	logger.Warn().Msg("test")

	if !strings.Contains(buf.String(), `"custom":"field"`) {
		t.Errorf("expected custom field in output, got: %s", buf.String())
	}
}

func TestWithLogger_NilContext(t *testing.T) {
	var buf bytes.Buffer

	//nolint:staticcheck // nil context is part of the contract
	ctx := WithLogger(nil, zerolog.New(&buf))
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}

	logger := FromContext(ctx)
	logger.Warn().Msg("test")
	if buf.Len() == 0 {
		t.Error("expected logger to produce output")
	}
}

func TestChainedFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	ctx = WithStr(ctx, "tool", "rgt-idx-apply")
	ctx = WithInt64(ctx, "entry", 5)

	logger := FromContext(ctx)
	logger.Warn().Msg("test")

	output := buf.String()
	if !strings.Contains(output, `"tool":"rgt-idx-apply"`) {
		t.Errorf("expected tool field, got: %s", output)
	}
	if !strings.Contains(output, `"entry":5`) {
		t.Errorf("expected entry field, got: %s", output)
	}
}
