package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shazow/wifirecover/internal/search"
	"github.com/shazow/wifirecover/wifi"
)

const skippedShown = 5

var (
	keyCancel = key.NewBinding(key.WithKeys("esc", "x"), key.WithHelp("esc", "cancel"))
	keyBack   = key.NewBinding(key.WithKeys("esc", "q", "enter"), key.WithHelp("esc", "back"))
)

// SearchModel shows the progress of a running search.
type SearchModel struct {
	ap      wifi.AccessPoint
	session *search.Session
	// total is the number of candidates, or -1 when it is not known.
	total int

	state     search.State
	attempts  int
	perMinute float64
	candidate string
	skipped   []string
	done      *search.Event

	spinner  spinner.Model
	progress progress.Model
	width    int
}

// NewSearchModel creates the view for session searching ap.
func NewSearchModel(ap wifi.AccessPoint, session *search.Session, total int) *SearchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)

	p := progress.New(
		progress.WithGradient(CurrentTheme.SignalLow.hex(), CurrentTheme.SignalHigh.hex()),
		progress.WithoutPercentage(),
	)
	return &SearchModel{
		ap:       ap,
		session:  session,
		total:    total,
		state:    search.Searching,
		spinner:  s,
		progress: p,
	}
}

func (m *SearchModel) Init() tea.Cmd { return m.spinner.Tick }

func (m *SearchModel) Resize(width, height int) {
	m.width = width
	m.progress.Width = max(10, min(60, width-8))
}

// Running reports whether the search has not finished yet.
func (m *SearchModel) Running() bool { return m.done == nil }

// OnLeave stops a search that is still running.
func (m *SearchModel) OnLeave() tea.Cmd {
	if m.Running() && m.session != nil {
		m.session.Cancel()
	}
	return nil
}

func (m *SearchModel) Update(msg tea.Msg) (Component, tea.Cmd) {
	switch msg := msg.(type) {
	case searchEventMsg:
		m.apply(search.Event(msg))
		return m, nil
	case spinner.TickMsg:
		if !m.Running() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if m.Running() {
			if key.Matches(msg, keyCancel) && m.session != nil {
				m.session.Cancel()
			}
			return m, nil
		}
		if key.Matches(msg, keyBack) {
			return m, pop
		}
	}
	return m, nil
}

func (m *SearchModel) apply(ev search.Event) {
	m.state = ev.State
	switch ev.Kind {
	case search.EventProgress:
		m.attempts = ev.Attempts
		m.perMinute = ev.PerMinute
		m.candidate = ev.Candidate
	case search.EventInfo:
		m.skipped = append(m.skipped, fmt.Sprintf("%s: %s", ev.Candidate, ev.Message))
		if len(m.skipped) > skippedShown {
			m.skipped = m.skipped[1:]
		}
	case search.EventDone:
		m.attempts = ev.Attempts
		m.done = &ev
	}
}

func (m *SearchModel) View() string {
	var s strings.Builder
	title := lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)
	subtle := lipgloss.NewStyle().Foreground(CurrentTheme.Subtle)

	s.WriteString(title.Render(fmt.Sprintf("Recovering %q", m.ap.SSID)))
	s.WriteString(subtle.Render(fmt.Sprintf("  %s/%s", m.ap.Authentication, m.ap.Encryption)))
	s.WriteString("\n\n")

	if m.total > 0 {
		s.WriteString(m.progress.ViewAs(float64(m.attempts) / float64(m.total)))
		s.WriteString(fmt.Sprintf(" %d/%d\n", m.attempts, m.total))
	} else {
		s.WriteString(fmt.Sprintf("%d attempts\n", m.attempts))
	}
	s.WriteString(subtle.Render(fmt.Sprintf("%.1f attempts/min", m.perMinute)))
	s.WriteString("\n\n")

	if m.done != nil {
		s.WriteString(m.resultView())
		s.WriteString("\n\n")
		s.WriteString(subtle.Render("esc: back"))
		return lipgloss.NewStyle().Margin(1, 2).Render(s.String())
	}

	s.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), m.state))
	if m.candidate != "" {
		s.WriteString(subtle.Render(fmt.Sprintf("  last tried: %s", m.candidate)))
	}
	s.WriteString("\n")
	for _, line := range m.skipped {
		s.WriteString(subtle.Render("skipped " + line))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(subtle.Render("esc: cancel"))
	return lipgloss.NewStyle().Margin(1, 2).Render(s.String())
}

func (m *SearchModel) resultView() string {
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).Padding(0, 1)
	switch m.done.State {
	case search.Succeeded:
		return box.BorderForeground(CurrentTheme.Success).
			Foreground(CurrentTheme.Success).
			Render(m.done.Message)
	case search.Cancelled:
		return box.BorderForeground(CurrentTheme.Subtle).Render(m.done.Message)
	}
	return box.BorderForeground(CurrentTheme.Error).
		Foreground(CurrentTheme.Error).
		Render(m.done.Message)
}
