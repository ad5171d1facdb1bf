package tui

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	wifilog "github.com/shazow/wifirecover/internal/log"
)

// LogViewModel shows the latest log records.
type LogViewModel struct {
	height int
}

// NewLogViewModel creates a new LogViewModel.
func NewLogViewModel() *LogViewModel {
	return &LogViewModel{}
}

func (m *LogViewModel) Init() tea.Cmd { return nil }

func (m *LogViewModel) Resize(width, height int) { m.height = height }

func (m *LogViewModel) Update(msg tea.Msg) (Component, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc":
			return m, pop
		}
	}
	// wifilog.LogMsg needs no handling: View reads the records on every render.
	return m, nil
}

func (m *LogViewModel) View() string {
	var s strings.Builder
	s.WriteString("Latest logs (press 'q' to return):\n\n")

	logs := wifilog.Logs()
	if m.height > 4 && len(logs) > m.height-4 {
		logs = logs[len(logs)-(m.height-4):]
	}
	for _, r := range logs {
		var style lipgloss.Style
		switch {
		case r.Level >= slog.LevelError:
			style = lipgloss.NewStyle().Foreground(CurrentTheme.Error)
		case r.Level >= slog.LevelWarn:
			style = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
		default:
			style = lipgloss.NewStyle().Foreground(CurrentTheme.Normal)
		}
		s.WriteString(style.Render(fmt.Sprintf("[%s] %s", r.Level, r.Message)))
		r.Attrs(func(a slog.Attr) bool {
			s.WriteString(style.Render(fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())))
			return true
		})
		s.WriteString("\n")
	}

	return s.String()
}
