package logging

import (
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerBuffersUntilFlush(t *testing.T) {
	h := NewHandler()
	var out strings.Builder
	h.SetStream(&out)

	log := slog.New(h)
	log.Info("early")

	if out.Len() != 0 {
		t.Fatalf("wrote before Flush: %q", out.String())
	}

	h.Flush()

	if !strings.Contains(out.String(), "early") {
		t.Fatalf("flushed output = %q, want it to contain %q", out.String(), "early")
	}
}

func TestFlushDropsRecordsBelowFinalLevel(t *testing.T) {
	h := NewHandler()
	var out strings.Builder
	h.SetStream(&out)

	log := slog.New(h)
	log.Debug("noise")
	log.Warn("signal")

	h.SetLevel(slog.LevelWarn)
	h.Flush()

	got := out.String()
	if strings.Contains(got, "noise") {
		t.Fatalf("output = %q, want debug record dropped", got)
	}
	if !strings.Contains(got, "signal") {
		t.Fatalf("output = %q, want warn record kept", got)
	}
}

func TestHandlerFiltersAfterFlush(t *testing.T) {
	h := NewHandler()
	var out strings.Builder
	h.SetStream(&out)
	h.SetLevel(slog.LevelInfo)
	h.Flush()

	log := slog.New(h)
	log.Debug("hidden")
	log.Info("shown")

	got := out.String()
	if strings.Contains(got, "hidden") {
		t.Fatalf("output = %q, want debug filtered", got)
	}
	if !strings.Contains(got, "shown") {
		t.Fatalf("output = %q, want info present", got)
	}
}

func TestPlainOutputQuotesMessage(t *testing.T) {
	h := NewHandler()
	var out strings.Builder
	h.SetStream(&out)
	h.Flush()

	slog.New(h).Info("two words", "key", "a value")

	got := out.String()
	if !strings.Contains(got, `msg="two words"`) {
		t.Fatalf("output = %q, want quoted msg", got)
	}
	if !strings.Contains(got, `key="a value"`) {
		t.Fatalf("output = %q, want quoted attr value", got)
	}
}

func TestWithGroupPrefixesKeys(t *testing.T) {
	h := NewHandler()
	var out strings.Builder
	h.SetStream(&out)
	h.Flush()

	slog.New(h).WithGroup("build").Info("step", "name", "copy")

	if got := out.String(); !strings.Contains(got, "build.name=copy") {
		t.Fatalf("output = %q, want grouped key %q", got, "build.name=copy")
	}
}

func TestWithAttrsAppearOnEveryRecord(t *testing.T) {
	h := NewHandler()
	var out strings.Builder
	h.SetStream(&out)
	h.Flush()

	log := slog.New(h).With("tag", "demo:latest")
	log.Info("one")
	log.Info("two")

	if got := strings.Count(out.String(), "tag=demo:latest"); got != 2 {
		t.Fatalf("attr occurrences = %d, want 2", got)
	}
}
