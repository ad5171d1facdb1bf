package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	ScanOff      time.Duration = 0
	ScanInterval               = 10 * time.Second
)

// ScanSchedule triggers scans at a regular interval while it is enabled.
type ScanSchedule struct {
	callback func() tea.Msg
	interval time.Duration
	// generation invalidates ticks from a previous schedule.
	generation int
}

// NewScanSchedule creates a disabled ScanSchedule.
func NewScanSchedule(callback func() tea.Msg) *ScanSchedule {
	return &ScanSchedule{
		callback: callback,
	}
}

// Enabled reports whether scans are scheduled.
func (s *ScanSchedule) Enabled() bool { return s.interval != ScanOff }

// Toggle enables or disables the scan schedule.
func (s *ScanSchedule) Toggle() (bool, tea.Cmd) {
	if s.Enabled() {
		return false, s.SetSchedule(ScanOff)
	}
	return true, s.SetSchedule(ScanInterval)
}

// SetSchedule sets the scan interval.
func (s *ScanSchedule) SetSchedule(interval time.Duration) tea.Cmd {
	isStarting := !s.Enabled() && interval != ScanOff
	if isStarting || interval == ScanOff {
		s.generation++
	}
	s.interval = interval

	if isStarting {
		return tea.Batch(s.callback, s.tick())
	}
	return nil
}

// Update handles messages for the ScanSchedule.
func (s *ScanSchedule) Update(msg tea.Msg) tea.Cmd {
	if !s.Enabled() {
		return nil
	}
	if msg, ok := msg.(tickMsg); ok && msg.generation == s.generation {
		return tea.Batch(s.callback, s.tick())
	}
	return nil
}

// tickMsg triggers a scheduled scan.
type tickMsg struct{ generation int }

func (s *ScanSchedule) tick() tea.Cmd {
	if !s.Enabled() {
		return nil
	}
	generation := s.generation
	return tea.Tick(s.interval, func(time.Time) tea.Msg {
		return tickMsg{generation: generation}
	})
}
