package logbuf

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func fill(buf *Buffer, base time.Time, n int) {
	for i := 0; i < n; i++ {
		buf.Add(Entry{
			Time:    base.Add(time.Duration(i) * time.Second),
			Level:   "INFO",
			Message: "msg",
			Attrs:   map[string]any{"i": i},
		})
	}
}

func TestBufferEvictsOldest(t *testing.T) {
	buf := New(3)
	fill(buf, time.Now(), 5)

	if got := buf.Len(); got != 3 {
		t.Fatalf("Len = %d, want capacity 3", got)
	}

	entries := buf.Query(time.Time{}, slog.LevelDebug, 0)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Attrs["i"] != 2 || entries[2].Attrs["i"] != 4 {
		t.Fatalf("wrong window retained: %v .. %v", entries[0].Attrs["i"], entries[2].Attrs["i"])
	}
}

func TestBufferQuerySince(t *testing.T) {
	buf := New(10)
	base := time.Now()
	fill(buf, base, 5)

	entries := buf.Query(base.Add(3*time.Second), slog.LevelDebug, 0)
	if len(entries) != 2 {
		t.Fatalf("got %d entries since t+3s, want 2", len(entries))
	}
}

func TestBufferQueryLevel(t *testing.T) {
	buf := New(10)
	now := time.Now()
	for _, lvl := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
		buf.Add(Entry{Time: now, Level: lvl, Message: lvl})
	}

	entries := buf.Query(time.Time{}, slog.LevelWarn, 0)
	if len(entries) != 2 {
		t.Fatalf("got %d entries at WARN+, want 2", len(entries))
	}
	if entries[0].Message != "WARN" || entries[1].Message != "ERROR" {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

func TestBufferQueryLimitKeepsNewest(t *testing.T) {
	buf := New(10)
	fill(buf, time.Now(), 8)

	entries := buf.Query(time.Time{}, slog.LevelDebug, 3)
	if len(entries) != 3 {
		t.Fatalf("got %d entries with limit, want 3", len(entries))
	}
	if entries[2].Attrs["i"] != 7 {
		t.Fatalf("limit should keep the newest entries, last i = %v", entries[2].Attrs["i"])
	}
}

func newTestLogger(innerLevel slog.Level) (*slog.Logger, *Buffer) {
	buf := New(16)
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: innerLevel})
	return slog.New(NewHandler(inner, buf)), buf
}

func TestHandlerCaptures(t *testing.T) {
	logger, buf := newTestLogger(slog.LevelDebug)

	logger.Info("hello", "key", "value")
	logger.Warn("warning")

	entries := buf.Query(time.Time{}, slog.LevelDebug, 0)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Message != "hello" || entries[0].Attrs["key"] != "value" {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[1].Level != "WARN" {
		t.Fatalf("second entry level = %q, want WARN", entries[1].Level)
	}
}

func TestHandlerBoundAttrs(t *testing.T) {
	logger, buf := newTestLogger(slog.LevelDebug)

	logger.With("component", "triage").Info("msg")

	entries := buf.Query(time.Time{}, slog.LevelDebug, 0)
	if len(entries) != 1 || entries[0].Attrs["component"] != "triage" {
		t.Fatalf("bound attr missing: %+v", entries)
	}
}

func TestHandlerErrorAttrsAsStrings(t *testing.T) {
	logger, buf := newTestLogger(slog.LevelDebug)

	logger.Error("failed", "error", errors.New("boom"))

	entries := buf.Query(time.Time{}, slog.LevelDebug, 0)
	if entries[0].Attrs["error"] != "boom" {
		t.Fatalf("error attr = %v, want string", entries[0].Attrs["error"])
	}
}

func TestHandlerCapturesBelowInnerLevel(t *testing.T) {
	logger, buf := newTestLogger(slog.LevelWarn)

	logger.Debug("debug msg")
	logger.Info("info msg")
	logger.Warn("warn msg")

	if h, ok := logger.Handler().(*Handler); !ok || !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("capture handler must accept all levels")
	}
	entries := buf.Query(time.Time{}, slog.LevelDebug, 0)
	if len(entries) != 3 {
		t.Fatalf("buffer holds %d entries, want 3 regardless of inner filter", len(entries))
	}
}
