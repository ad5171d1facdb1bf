package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shazow/wifirecover/wifi"
)

// messages runs cmd and any batched commands it returns.
func messages(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var r []tea.Msg
		for _, c := range batch {
			r = append(r, messages(c)...)
		}
		return r
	}
	return []tea.Msg{msg}
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestList() *ListModel {
	m := NewListModel(NewScanSchedule(func() tea.Msg { return scanMsg{} }))
	m.Resize(100, 40)
	m.SetAccessPoints([]wifi.AccessPoint{
		{SSID: "TestNetwork1", Connectable: true, LinkQuality: 90},
		{SSID: "TestNetwork2", Connectable: true, LinkQuality: 40},
	})
	return m
}

func TestListModel_ScanKey(t *testing.T) {
	m := newTestList()
	_, cmd := m.Update(runeKey("s"))
	msgs := messages(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %v", msgs)
	}
	if _, ok := msgs[0].(scanMsg); !ok {
		t.Errorf("expected a scanMsg but got %T", msgs[0])
	}
}

func TestListModel_RecoverKey(t *testing.T) {
	m := newTestList()
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	var found bool
	for _, msg := range messages(cmd) {
		if start, ok := msg.(startSearchMsg); ok {
			found = true
			if start.ap.SSID != "TestNetwork2" {
				t.Errorf("expected startSearchMsg for 'TestNetwork2' but got for '%s'", start.ap.SSID)
			}
		}
	}
	if !found {
		t.Errorf("expected a startSearchMsg")
	}
}

func TestListModel_AutoScanToggle(t *testing.T) {
	m := newTestList()
	_, cmd := m.Update(runeKey("a"))
	if !m.scanner.Enabled() {
		t.Fatal("auto scan was not enabled")
	}
	if cmd == nil {
		t.Fatal("enabling auto scan should scan right away")
	}

	// Starting a search stops the schedule.
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.scanner.Enabled() {
		t.Error("auto scan should stop when a search starts")
	}
}

func TestListModel_SetAccessPointsKeepsSelection(t *testing.T) {
	m := newTestList()
	m.Update(tea.KeyMsg{Type: tea.KeyDown})

	m.SetAccessPoints([]wifi.AccessPoint{
		{SSID: "TestNetwork2", LinkQuality: 95},
		{SSID: "TestNetwork3", LinkQuality: 50},
		{SSID: "TestNetwork1", LinkQuality: 10},
	})
	ap, ok := m.Selected()
	if !ok || ap.SSID != "TestNetwork2" {
		t.Errorf("selected = %q, want TestNetwork2", ap.SSID)
	}
}

func TestSignalColor(t *testing.T) {
	original := CurrentTheme
	t.Cleanup(func() { CurrentTheme = original })
	CurrentTheme.SignalLow = Color{lipgloss.Color("#FF0000")}
	CurrentTheme.SignalHigh = Color{lipgloss.Color("#00FF00")}

	tests := []struct {
		quality int
		want    lipgloss.TerminalColor
	}{
		{0, lipgloss.Color("#ff0000")},
		{100, lipgloss.Color("#00ff00")},
		{150, lipgloss.Color("#00ff00")},
		{-5, lipgloss.Color("#ff0000")},
	}
	for _, tt := range tests {
		if got := signalColor(tt.quality); got != tt.want {
			t.Errorf("signalColor(%d) = %v, want %v", tt.quality, got, tt.want)
		}
	}

	CurrentTheme.SignalLow = Color{lipgloss.ANSIColor(1)}
	if got := signalColor(50); got != CurrentTheme.Normal {
		t.Errorf("non-hex colors should fall back to Normal, got %v", got)
	}
}
