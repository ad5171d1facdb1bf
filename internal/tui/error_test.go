package tui

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shazow/wifirecover/internal/search"
	"github.com/shazow/wifirecover/wifi"
)

func TestErrorModel_View(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"scan busy", fmt.Errorf("failed to scan: %w", wifi.ErrBusy), "Error: failed to scan: " + wifi.ErrBusy.Error()},
		{"search already running", fmt.Errorf("failed to start search: %w", search.ErrAlreadyRunning), "failed to start search: " + search.ErrAlreadyRunning.Error()},
		{"no candidates", fmt.Errorf("failed to start search: %w", search.ErrNoCandidates), search.ErrNoCandidates.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := NewErrorModel(tt.err).View()
			if !strings.Contains(view, tt.want) {
				t.Errorf("View does not contain %q in\n%s", tt.want, view)
			}
		})
	}
}

func TestErrorModel_KeyDismisses(t *testing.T) {
	m := NewErrorModel(fmt.Errorf("failed to start search: %w", search.ErrAlreadyRunning))

	if _, cmd := m.Update(searchEventMsg(search.Event{Kind: search.EventProgress})); cmd != nil {
		t.Errorf("search events should not dismiss the error, got %T", cmd())
	}
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("r")},
		{Type: tea.KeyEnter},
		{Type: tea.KeyEsc},
	} {
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("%s: expected a command", key)
		}
		if msg := cmd(); msg != (popViewMsg{}) {
			t.Errorf("%s: expected popViewMsg, got %T", key, msg)
		}
	}
}
