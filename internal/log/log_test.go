package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestTUIHandler(t *testing.T) {
	var buf bytes.Buffer
	ch := make(chan tea.Msg, 1)
	h := NewTUIHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}), ch)
	logger := slog.New(h)

	logger.Info("scan finished", "count", 3)
	select {
	case msg := <-ch:
		if r := slog.Record(msg.(LogMsg)); r.Message != "scan finished" {
			t.Errorf("got message %q", r.Message)
		}
	default:
		t.Fatal("no LogMsg sent")
	}
	if buf.Len() != 0 {
		t.Errorf("info record reached the warn handler: %q", buf.String())
	}

	// A full channel must not block.
	logger.Warn("one")
	logger.Warn("two")
	if !strings.Contains(buf.String(), "two") {
		t.Errorf("warn record missing from output: %q", buf.String())
	}
}

func TestTUIHandlerKeepsLastRecords(t *testing.T) {
	h := NewTUIHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), nil)
	logger := slog.New(h)
	for i := range keep + 5 {
		logger.Info("line", "i", i)
	}
	logs := h.Logs()
	if len(logs) != keep {
		t.Fatalf("got %d records, want %d", len(logs), keep)
	}
	var first int64
	logs[0].Attrs(func(a slog.Attr) bool {
		first = a.Value.Int64()
		return false
	})
	if first != 5 {
		t.Errorf("oldest kept record is %d, want 5", first)
	}
}

func TestNewHandlerDebug(t *testing.T) {
	t.Chdir(t.TempDir())
	var buf bytes.Buffer
	h, closer, err := NewHandler(&buf, true)
	if err != nil {
		t.Fatalf("NewHandler() failed: %v", err)
	}
	logger := slog.New(h)
	logger.Debug("trying candidate")
	logger.Error("driver gone")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(buf.String(), "trying candidate") {
		t.Error("debug record reached the terminal handler")
	}
	data, err := os.ReadFile(DebugFileName)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"trying candidate", "driver gone"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("debug log missing %q: %s", want, data)
		}
	}
}

func TestNewHandlerQuiet(t *testing.T) {
	var buf bytes.Buffer
	h, closer, err := NewHandler(&buf, false)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled without --debug")
	}
}
