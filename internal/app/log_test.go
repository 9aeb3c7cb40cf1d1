package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSnapHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "archive complete",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tarchive complete\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "snapshots listed",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tsnapshots listed\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelWarn,
			message: "skipping symlink",
			attrs:   []slog.Attr{slog.String("path", "docs/link"), slog.Int("count", 42)},
			want:    "2024-06-15T14:30:45Z\tWARN\top-789\tskipping symlink\tpath=docs/link\tcount=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &snapHandler{sinks: []logSink{{w: &buf, min: slog.LevelDebug}}, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestSnapHandler_SinkLevels(t *testing.T) {
	var file, console bytes.Buffer
	logger := slog.New(&snapHandler{
		sinks: []logSink{{w: &file, min: slog.LevelDebug}, {w: &console, min: slog.LevelWarn}},
		opID:  "op-1",
	})

	logger.Info("archive started")
	logger.Warn("snapshot rejected", "file", "bad.json")

	if got := strings.Count(file.String(), "\n"); got != 2 {
		t.Errorf("file got %d lines, want 2: %q", got, file.String())
	}
	if strings.Contains(console.String(), "archive started") {
		t.Errorf("console received INFO record: %q", console.String())
	}
	if !strings.Contains(console.String(), "snapshot rejected\tfile=bad.json") {
		t.Errorf("console missing WARN record: %q", console.String())
	}
}

func TestSnapHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &snapHandler{sinks: []logSink{{w: &buf}}, opID: "op-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*snapHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "put", 0)
	r.AddAttrs(slog.String("key", "abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=vault") {
		t.Errorf("expected pre-set attr component=vault, got: %q", got)
	}
	if !strings.Contains(got, "key=abc") {
		t.Errorf("expected record attr key=abc, got: %q", got)
	}
}

func TestSnapHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	h := &snapHandler{opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*snapHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestSnapHandler_Enabled(t *testing.T) {
	h := &snapHandler{sinks: []logSink{{min: slog.LevelWarn}}}
	for level, want := range map[slog.Level]bool{
		slog.LevelDebug: false,
		slog.LevelInfo:  false,
		slog.LevelWarn:  true,
		slog.LevelError: true,
	} {
		if got := h.Enabled(context.Background(), level); got != want {
			t.Errorf("Enabled(%v) = %v, want %v", level, got, want)
		}
	}
}

func TestNewOperationID(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	a, err := newOperationID(now)
	if err != nil {
		t.Fatalf("newOperationID() error = %v", err)
	}
	b, err := newOperationID(now.Add(time.Second))
	if err != nil {
		t.Fatalf("newOperationID() error = %v", err)
	}
	if len(a) != 26 {
		t.Errorf("expected 26-char ULID, got %q", a)
	}
	if a >= b {
		t.Errorf("IDs do not sort by time: %s >= %s", a, b)
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	var console bytes.Buffer

	logger, f, err := newLogger(dir, "test-op", &console)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("only in file")
	logger.Error("in both")
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, LogFilename))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "only in file") || !strings.Contains(string(data), "in both") {
		t.Errorf("log file missing records: %q", data)
	}
	if strings.Contains(console.String(), "only in file") || !strings.Contains(console.String(), "in both") {
		t.Errorf("unexpected console output: %q", console.String())
	}
}
