package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shazow/wifirecover/internal/controller"
	"github.com/shazow/wifirecover/internal/search"
	"github.com/shazow/wifirecover/wifi"
)

// Component is the interface for a TUI component.
type Component interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Component, tea.Cmd)
	View() string
	Resize(width, height int)
}

// Leavable is implemented by components that need to clean up when they are
// removed from the stack.
type Leavable interface {
	OnLeave() tea.Cmd
}

// Bubbletea messages are used to communicate between the main loop and commands
type (
	// From the driver
	accessPointsLoadedMsg []wifi.AccessPoint
	errorMsg              struct{ err error }

	// From the search engine
	searchEventMsg search.Event

	// To the main model
	scanMsg        struct{}
	startSearchMsg struct{ ap wifi.AccessPoint }
	showLogsMsg    struct{}
	popViewMsg     struct{}
)

func pop() tea.Msg { return popViewMsg{} }

// --- Commands that interact with the driver ---

func loadAccessPoints(ctx context.Context, c *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		aps, err := c.AccessPoints(ctx)
		if err != nil {
			return errorMsg{fmt.Errorf("failed to list access points: %w", err)}
		}
		return accessPointsLoadedMsg(aps)
	}
}

func scanAccessPoints(ctx context.Context, c *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		if err := c.Scan(ctx); err != nil {
			if errors.Is(err, wifi.ErrBusy) {
				return nil
			}
			return errorMsg{fmt.Errorf("failed to scan: %w", err)}
		}
		return loadAccessPoints(ctx, c)()
	}
}

// waitForEvent delivers the next search event. It is issued again after
// every event so the program keeps listening.
func waitForEvent(events <-chan search.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return searchEventMsg(ev)
	}
}
