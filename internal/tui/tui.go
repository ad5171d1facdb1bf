// Package tui is the interactive access point picker and search progress
// view.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shazow/wifirecover/internal/candidate"
	"github.com/shazow/wifirecover/internal/controller"
	wifilog "github.com/shazow/wifirecover/internal/log"
	"github.com/shazow/wifirecover/internal/search"
	"github.com/shazow/wifirecover/wifi"
)

// Options configures the program.
type Options struct {
	Controller *controller.Controller
	// Store receives recovered passwords. It may be nil.
	Store  search.Store
	Source candidate.Source
	// SSID starts a search on this network as soon as it is seen.
	SSID    string
	Timeout time.Duration
	Logger  *slog.Logger
}

// The main model for our TUI application
type model struct {
	ctx    context.Context
	ctrl   *controller.Controller
	engine *search.Engine
	source candidate.Source
	events chan search.Event
	// session is the most recently started search.
	session *search.Session

	stack   *ComponentStack
	list    *ListModel
	scanner *ScanSchedule

	spinner       spinner.Model
	loading       bool
	statusMessage string
	pendingSSID   string
	result        *search.Result
}

// NewModel creates the starting state of our application. Searches stop when
// ctx is done.
func NewModel(ctx context.Context, opts Options) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &model{
		ctx:           ctx,
		ctrl:          opts.Controller,
		source:        opts.Source,
		events:        make(chan search.Event, 64),
		spinner:       s,
		loading:       true,
		statusMessage: "Scanning for networks...",
		pendingSSID:   opts.SSID,
	}
	m.engine = search.New(opts.Controller.Driver(), opts.Store,
		search.WithTimeout(opts.Timeout),
		search.WithLogger(logger),
		search.WithEventHandler(m.forward),
	)
	m.scanner = NewScanSchedule(func() tea.Msg { return scanMsg{} })
	m.list = NewListModel(m.scanner)
	m.stack = NewComponentStack(m.list)
	return m
}

// forward hands engine events to the program. Progress events are dropped
// when the program falls behind; the others are not.
func (m *model) forward(ev search.Event) {
	if ev.Kind == search.EventProgress {
		select {
		case m.events <- ev:
		default:
		}
		return
	}
	select {
	case m.events <- ev:
	case <-m.ctx.Done():
	}
}

// Result returns the outcome of the last search, if any ran.
func (m *model) Result() *search.Result { return m.result }

// Init is the first command that is run when the program starts
func (m *model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForEvent(m.events),
		scanAccessPoints(m.ctx, m.ctrl),
	)
}

func (m *model) total() int {
	if c, ok := m.source.(interface{ Len() int }); ok {
		return c.Len()
	}
	return -1
}

func (m *model) startSearch(ap wifi.AccessPoint) tea.Cmd {
	session, err := m.engine.Start(m.ctx, &ap, m.source)
	if err != nil {
		return m.stack.Push(NewErrorModel(fmt.Errorf("failed to start search: %w", err)))
	}
	m.session = session
	m.statusMessage = ""
	return m.stack.Push(NewSearchModel(ap, session, m.total()))
}

// stopSearch cancels the latest search and blocks until its goroutine has
// returned, so the caller may release the candidate source.
func (m *model) stopSearch() {
	if m.session == nil {
		return
	}
	m.session.Cancel()
	m.session.Wait()
}

// Update handles all incoming messages and updates the model accordingly
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.stack.Resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case popViewMsg:
		cmd := m.stack.Pop()
		if m.stack.Top() == m.list {
			return m, tea.Batch(cmd, loadAccessPoints(m.ctx, m.ctrl))
		}
		return m, cmd
	case errorMsg:
		m.loading = false
		m.statusMessage = ""
		return m, m.stack.Push(NewErrorModel(msg.err))
	case scanMsg:
		if m.engine.Running() || m.ctrl.Busy() {
			return m, nil
		}
		m.loading = true
		m.statusMessage = "Scanning for networks..."
		return m, scanAccessPoints(m.ctx, m.ctrl)
	case accessPointsLoadedMsg:
		m.loading = false
		m.statusMessage = ""
		cmd := m.list.SetAccessPoints(msg)
		if m.pendingSSID == "" {
			return m, cmd
		}
		ssid := m.pendingSSID
		m.pendingSSID = ""
		for _, ap := range msg {
			if ap.SSID == ssid {
				return m, tea.Batch(cmd, m.startSearch(ap))
			}
		}
		return m, tea.Batch(cmd, m.stack.Push(NewErrorModel(fmt.Errorf("access point %q: %w", ssid, wifi.ErrNotFound))))
	case startSearchMsg:
		return m, m.startSearch(msg.ap)
	case searchEventMsg:
		if msg.Kind == search.EventDone {
			m.result = &search.Result{
				State:    msg.State,
				Password: msg.Candidate,
				Attempts: msg.Attempts,
				Message:  msg.Message,
			}
			if sm, ok := m.stack.Top().(*SearchModel); ok {
				m.result.SSID = sm.ap.SSID
			}
		}
		return m, tea.Batch(m.stack.Update(msg), waitForEvent(m.events))
	case tickMsg:
		return m, m.scanner.Update(msg)
	case showLogsMsg:
		return m, m.stack.Push(NewLogViewModel())
	case wifilog.LogMsg:
		// Redraw so the log view picks up the new record.
		return m, nil
	}

	cmds := []tea.Cmd{m.stack.Update(msg)}
	if _, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View renders the UI based on the current model state
func (m *model) View() string {
	var s strings.Builder
	s.WriteString(m.stack.View())

	status := lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
	if m.loading {
		s.WriteString(fmt.Sprintf("\n\n%s %s", m.spinner.View(), status.Render(m.statusMessage)))
	} else if m.statusMessage != "" {
		s.WriteString(fmt.Sprintf("\n\n%s", status.Render(m.statusMessage)))
	}
	return s.String()
}

// Run starts the program and blocks until the user quits. It returns the
// outcome of the last search, or nil when none ran.
func Run(ctx context.Context, opts Options) (*search.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewModel(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	logs := make(chan tea.Msg, 16)
	wifilog.SetOutput(logs)
	defer wifilog.SetOutput(nil)
	go func() {
		for {
			select {
			case msg := <-logs:
				p.Send(msg)
			case <-ctx.Done():
				return
			}
		}
	}()

	_, err := p.Run()
	cancel()
	m.stopSearch()
	if err != nil {
		return m.Result(), err
	}
	return m.Result(), nil
}
