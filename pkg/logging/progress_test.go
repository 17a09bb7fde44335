package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// debugGlobalLevel lowers the global level for the duration of t so
// info and debug events reach test loggers.
func debugGlobalLevel(t *testing.T) {
	t.Helper()
	old := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(old) })
}

// setPretty switches human-readable companions for the duration of t.
func setPretty(t *testing.T, on bool) {
	t.Helper()
	old := prettyMode.Load()
	prettyMode.Store(on)
	t.Cleanup(func() { prettyMode.Store(old) })
}

func TestProgressTracker_Add(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	debugGlobalLevel(t)

	pt := NewProgressTracker("make", 10, log)
	pt.interval = 4

	var logged int
	for range 10 {
		if pt.Add(1) {
			logged++
		}
	}
	if logged != 2 {
		t.Errorf("expected 2 progress events, got %d", logged)
	}
	if done := pt.done.Load(); done != 10 {
		t.Errorf("expected done=10, got %d", done)
	}
	if n := strings.Count(buf.String(), `"event":"progress"`); n != 2 {
		t.Errorf("expected 2 progress lines, got %d: %s", n, buf.String())
	}
	if !strings.Contains(buf.String(), `"done":8`) {
		t.Errorf("expected done=8 in second event, got: %s", buf.String())
	}
}

func TestProgressTracker_AddBatchCrossesInterval(t *testing.T) {
	pt := NewProgressTracker("make", 0, zerolog.Nop())
	pt.interval = 100

	if pt.Add(99) {
		t.Error("99 items should not cross the interval")
	}
	if !pt.Add(250) {
		t.Error("349 items should cross the interval")
	}
	if pt.Add(1) {
		t.Error("350 items should not cross a new interval")
	}
}

func TestProgressTracker_Pct(t *testing.T) {
	debugGlobalLevel(t)
	setPretty(t, false)
	var buf bytes.Buffer
	pt := NewProgressTracker("apply", 4, zerolog.New(&buf))
	pt.interval = 1
	pt.Add(1)

	output := buf.String()
	if !strings.Contains(output, `"progress_pct":25`) {
		t.Errorf("expected progress_pct=25, got: %s", output)
	}
	if !strings.Contains(output, `"total":4`) {
		t.Errorf("expected total=4, got: %s", output)
	}
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	pt := NewProgressTracker("make", 0, zerolog.Nop())
	pt.Add(5)

	if eta := pt.ETA(); eta != 0 {
		t.Errorf("expected 0 ETA for unknown total, got %v", eta)
	}
}

func TestCompletionEvent_BasicFields(t *testing.T) {
	debugGlobalLevel(t)
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	setPretty(t, false)

	ce := NewCompletionEvent(log, "test_event", "test_phase", 500*time.Millisecond)
	ce.Str("key", "value").
		Int64("big_count", 1000000).
		Log("test message")

	output := buf.String()

	if !strings.Contains(output, `"event":"test_event"`) {
		t.Errorf("expected event field, got: %s", output)
	}
	if !strings.Contains(output, `"phase":"test_phase"`) {
		t.Errorf("expected phase field, got: %s", output)
	}
	if !strings.Contains(output, `"duration_ms":500`) {
		t.Errorf("expected duration_ms field, got: %s", output)
	}
	if !strings.Contains(output, `"key":"value"`) {
		t.Errorf("expected key field, got: %s", output)
	}
	if !strings.Contains(output, `"big_count":1000000`) {
		t.Errorf("expected big_count field, got: %s", output)
	}
	if strings.Contains(output, `"duration_h"`) {
		t.Errorf("unexpected human field outside pretty mode: %s", output)
	}
}

func TestCompletionEvent_BytesAndCounts(t *testing.T) {
	debugGlobalLevel(t)
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	setPretty(t, true)

	ce := NewCompletionEvent(log, "test_event", "test_phase", 1*time.Second)
	ce.Bytes("size", 1073741824).
		Count("items", 1500000).
		Log("test message")

	output := buf.String()

	if !strings.Contains(output, `"size":1073741824`) {
		t.Errorf("expected raw size field, got: %s", output)
	}
	if !strings.Contains(output, `"items":1500000`) {
		t.Errorf("expected raw items field, got: %s", output)
	}
	if !strings.Contains(output, `"size_h":"1.00 GiB"`) {
		t.Errorf("expected human size field, got: %s", output)
	}
	if !strings.Contains(output, `"items_h":"1.50M"`) {
		t.Errorf("expected human items field, got: %s", output)
	}
}

func TestCompletionEvent_Progress(t *testing.T) {
	debugGlobalLevel(t)
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	setPretty(t, true)

	ce := NewCompletionEvent(log, "test_event", "test_phase", 1*time.Second)
	ce.Progress(50, 100, 30*time.Second).
		Log("test message")

	output := buf.String()

	if !strings.Contains(output, `"done":50`) {
		t.Errorf("expected done field, got: %s", output)
	}
	if !strings.Contains(output, `"total":100`) {
		t.Errorf("expected total field, got: %s", output)
	}
	if !strings.Contains(output, `"progress_pct":50`) {
		t.Errorf("expected progress_pct field, got: %s", output)
	}
	if !strings.Contains(output, `"eta_ms":30000`) {
		t.Errorf("expected eta_ms field, got: %s", output)
	}
	if !strings.Contains(output, `"eta_h":`) {
		t.Errorf("expected eta_h field in pretty mode, got: %s", output)
	}
}

func TestCompletionEvent_ProgressUnknownTotal(t *testing.T) {
	debugGlobalLevel(t)
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	setPretty(t, false)

	NewCompletionEvent(log, "progress", "make", time.Second).
		Progress(1<<20, 0, 0).
		Log("progress")

	output := buf.String()
	if !strings.Contains(output, `"done":1048576`) {
		t.Errorf("expected done field, got: %s", output)
	}
	if strings.Contains(output, `"total"`) || strings.Contains(output, `"progress_pct"`) {
		t.Errorf("unknown total should omit total and percentage, got: %s", output)
	}
}

func TestCompletionEvent_Throughput(t *testing.T) {
	debugGlobalLevel(t)
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	setPretty(t, true)

	ce := NewCompletionEvent(log, "test_event", "test_phase", 1*time.Second)
	ce.Throughput(104857600).
		Rate("messages", 2500).
		Log("test message")

	output := buf.String()

	if !strings.Contains(output, `"throughput_bps":`) {
		t.Errorf("expected throughput_bps field, got: %s", output)
	}
	if !strings.Contains(output, `"throughput_h":"100.00 MiB/s"`) {
		t.Errorf("expected throughput_h field, got: %s", output)
	}
	if !strings.Contains(output, `"messages_per_sec":2500`) {
		t.Errorf("expected messages_per_sec field, got: %s", output)
	}
	if !strings.Contains(output, `"messages_rate_h":"2.50K messages/s"`) {
		t.Errorf("expected messages_rate_h field, got: %s", output)
	}
}

func TestHelperFunctions(t *testing.T) {
	debugGlobalLevel(t)
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	setPretty(t, false)

	PhaseComplete(log, "sort", 1*time.Second).
		Str("key", "value").
		Log("phase done")

	if !strings.Contains(buf.String(), `"event":"phase_completed"`) {
		t.Errorf("expected phase_completed event, got: %s", buf.String())
	}

	buf.Reset()
	FileCreated(log, "apply", 100*time.Millisecond).
		Str("file", "out.rgt").
		Log("file done")

	if !strings.Contains(buf.String(), `"event":"file_created"`) {
		t.Errorf("expected file_created event, got: %s", buf.String())
	}
}

func TestCompletionEvent_LogDebug(t *testing.T) {
	debugGlobalLevel(t)
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	setPretty(t, false)

	ce := NewCompletionEvent(log, "test_event", "test_phase", 1*time.Second)
	ce.LogDebug("debug message")

	if !strings.Contains(buf.String(), `"level":"debug"`) {
		t.Errorf("expected debug level, got: %s", buf.String())
	}
}
