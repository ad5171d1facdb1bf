package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// DebugFileName is written by --debug in the working directory.
const DebugFileName = "wifirecover-debug.log"

// keep is the number of records retained for display.
const keep = 20

// TUIHandler is a slog.Handler that sends log messages to a tea.Program.
type TUIHandler struct {
	slog.Handler
	mu   sync.Mutex
	ch   chan<- tea.Msg
	logs []slog.Record
}

// NewTUIHandler creates a new TUIHandler.
func NewTUIHandler(handler slog.Handler, ch chan<- tea.Msg) *TUIHandler {
	return &TUIHandler{
		Handler: handler,
		ch:      ch,
	}
}

// Handle sends the log message to the tea.Program.
func (h *TUIHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	h.logs = append(h.logs, r.Clone())
	if len(h.logs) > keep {
		h.logs = h.logs[1:]
	}
	ch := h.ch
	h.mu.Unlock()

	// Messages are dropped while the program is not reading.
	if ch != nil {
		select {
		case ch <- LogMsg(r):
		default:
		}
	}

	if !h.Handler.Enabled(ctx, r.Level) {
		return nil
	}
	return h.Handler.Handle(ctx, r)
}

// Enabled lets every record through so the TUI sees them; the wrapped handler
// applies its own level in Handle.
func (h *TUIHandler) Enabled(context.Context, slog.Level) bool { return true }

// Logs returns the stored log messages.
func (h *TUIHandler) Logs() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]slog.Record(nil), h.logs...)
}

// LogMsg is a tea.Msg that represents a log message.
type LogMsg slog.Record

// SetOutput sets the output channel for the handler.
func (h *TUIHandler) SetOutput(ch chan<- tea.Msg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ch = ch
}

var defaultHandler *TUIHandler

// Init initializes the default logger.
func Init(handler slog.Handler) {
	defaultHandler = NewTUIHandler(handler, nil)
	slog.SetDefault(slog.New(defaultHandler))
}

// SetOutput sets the output channel for the default logger.
func SetOutput(ch chan<- tea.Msg) {
	if defaultHandler != nil {
		defaultHandler.SetOutput(ch)
	}
}

// Logs returns the stored log messages from the default logger.
func Logs() []slog.Record {
	if defaultHandler == nil {
		return nil
	}
	return defaultHandler.Logs()
}

// NewHandler returns the handler for normal runs: warnings and errors to w.
// With debug set, everything also goes to DebugFileName, truncated first.
// The returned closer flushes the debug file.
func NewHandler(w io.Writer, debug bool) (slog.Handler, io.Closer, error) {
	level := slog.LevelWarn
	if !debug {
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), nopCloser{}, nil
	}
	f, err := os.OpenFile(DebugFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening debug log: %w", err)
	}
	return &teeHandler{
		handlers: []slog.Handler{
			slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
			slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}),
		},
	}, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// teeHandler hands each record to every handler that accepts its level.
type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: hs}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: hs}
}
