package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/shazow/wifirecover/wifi"
)

// accessPointItem holds a single access point in the picker.
type accessPointItem struct {
	wifi.AccessPoint
}

func (i accessPointItem) Title() string { return i.SSID }
func (i accessPointItem) Description() string {
	return fmt.Sprintf("%d%%", i.LinkQuality)
}
func (i accessPointItem) FilterValue() string { return i.Title() }

func (i accessPointItem) icon() string {
	switch {
	case i.HasProfile():
		return CurrentTheme.NetworkSavedIcon
	case !i.SecurityEnabled:
		return CurrentTheme.NetworkOpenIcon
	case i.Encryption == wifi.EncryptionNone:
		return CurrentTheme.NetworkUnknownIcon
	}
	return CurrentTheme.NetworkSecureIcon
}

// signalColor blends between the low and high signal colors by link quality.
func signalColor(quality int) lipgloss.TerminalColor {
	start, err1 := colorful.Hex(CurrentTheme.SignalLow.hex())
	end, err2 := colorful.Hex(CurrentTheme.SignalHigh.hex())
	if err1 != nil || err2 != nil {
		return CurrentTheme.Normal
	}
	p := float64(max(0, min(100, quality))) / 100.0
	return lipgloss.Color(start.BlendRgb(end, p).Clamped().Hex())
}

const ssidColumnWidth = 30

// itemDelegate is our custom list delegate
type itemDelegate struct {
	list.DefaultDelegate
}

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(accessPointItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, listItem)
		return
	}

	title := []rune(i.icon() + i.Title())
	if len(title) > ssidColumnWidth {
		title = append(title[:ssidColumnWidth-1], '…')
	}
	padding := strings.Repeat(" ", ssidColumnWidth-len(title))

	var titleStyle lipgloss.Style
	switch {
	case !i.Connectable:
		titleStyle = lipgloss.NewStyle().Foreground(CurrentTheme.Disabled)
	case i.IsConnected:
		titleStyle = lipgloss.NewStyle().Foreground(CurrentTheme.Success)
	case i.HasProfile():
		titleStyle = lipgloss.NewStyle().Foreground(CurrentTheme.Saved)
	default:
		titleStyle = lipgloss.NewStyle().Foreground(CurrentTheme.Normal)
	}
	line := titleStyle.Render(string(title)) + padding + " " +
		lipgloss.NewStyle().Foreground(signalColor(i.LinkQuality)).Render(fmt.Sprintf("%4s", i.Description()))

	security := i.Authentication.String()
	if i.SecurityEnabled {
		security += "/" + i.Encryption.String()
	}
	line += " " + lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Render(security)
	if i.IsConnected {
		line += " (Connected)"
	}

	if index == m.Index() {
		line = lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Render("▶ ") + line
	} else {
		line = "  " + line
	}
	fmt.Fprint(w, line)
}

var (
	keyScan     = key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan"))
	keyAutoScan = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "auto scan"))
	keyRecover  = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "recover"))
	keyLogs     = key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "logs"))
)

// ListModel picks the access point to search.
type ListModel struct {
	list    list.Model
	scanner *ScanSchedule
}

func NewListModel(scanner *ScanSchedule) *ListModel {
	l := list.New([]list.Item{}, itemDelegate{}, 0, 0)
	l.Title = fmt.Sprintf("%-*s %s", ssidColumnWidth+1, CurrentTheme.TitleIcon+"Access Point", "Signal")
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keyScan, keyRecover}
	}
	// Make 'q' the only quit key
	l.KeyMap.Quit = key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit"))
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keyScan, keyAutoScan, keyRecover, keyLogs}
	}

	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)
	l.Styles.FilterPrompt = lipgloss.NewStyle().Foreground(CurrentTheme.Normal)
	l.Styles.FilterCursor = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
	return &ListModel{list: l, scanner: scanner}
}

func (m *ListModel) Init() tea.Cmd { return nil }

func (m *ListModel) Resize(width, height int) {
	h, v := lipgloss.NewStyle().Margin(1, 2).GetFrameSize()
	bh, bv := m.borderStyle().GetFrameSize()
	extraVerticalSpace := 4
	m.list.SetSize(width-h-bh, height-v-bv-extraVerticalSpace)
}

// SetAccessPoints replaces the listed access points, keeping the selection
// on the same network when it is still visible.
func (m *ListModel) SetAccessPoints(aps []wifi.AccessPoint) tea.Cmd {
	var selected string
	if i, ok := m.list.SelectedItem().(accessPointItem); ok {
		selected = i.SSID
	}
	items := make([]list.Item, len(aps))
	index := 0
	for n, ap := range aps {
		items[n] = accessPointItem{ap}
		if ap.SSID == selected {
			index = n
		}
	}
	cmd := m.list.SetItems(items)
	m.list.Select(index)
	return cmd
}

// Selected returns the highlighted access point.
func (m *ListModel) Selected() (wifi.AccessPoint, bool) {
	i, ok := m.list.SelectedItem().(accessPointItem)
	return i.AccessPoint, ok
}

func (m *ListModel) Update(msg tea.Msg) (Component, tea.Cmd) {
	switch msg := msg.(type) {
	case accessPointsLoadedMsg:
		return m, m.SetAccessPoints(msg)
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case msg.String() == "q":
			return m, tea.Quit
		case key.Matches(msg, keyScan):
			return m, func() tea.Msg { return scanMsg{} }
		case key.Matches(msg, keyAutoScan):
			_, cmd := m.scanner.Toggle()
			return m, cmd
		case key.Matches(msg, keyLogs):
			return m, func() tea.Msg { return showLogsMsg{} }
		case key.Matches(msg, keyRecover):
			ap, ok := m.Selected()
			if !ok {
				return m, nil
			}
			return m, tea.Batch(
				m.scanner.SetSchedule(ScanOff),
				func() tea.Msg { return startSearchMsg{ap: ap} },
			)
		}
	}

	newList, cmd := m.list.Update(msg)
	m.list = newList
	return m, cmd
}

func (m *ListModel) borderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).BorderForeground(CurrentTheme.Border)
}

func (m *ListModel) View() string {
	var viewBuilder strings.Builder
	help := fmt.Sprintf("\n\n %s ", m.list.Help.View(m))
	viewBuilder.WriteString(m.borderStyle().Render(m.list.View() + help))

	// Custom status bar
	var status []string
	if len(m.list.Items()) > 0 {
		status = append(status, fmt.Sprintf("%d/%d", m.list.Index()+1, len(m.list.Items())))
	}
	if m.scanner.Enabled() {
		status = append(status, "auto scan")
	}
	viewBuilder.WriteString("\n")
	viewBuilder.WriteString(strings.Join(status, " · "))
	return lipgloss.NewStyle().Margin(1, 2).Render(viewBuilder.String())
}

func (m *ListModel) FullHelp() [][]key.Binding {
	return m.list.FullHelp()
}

func (m *ListModel) ShortHelp() []key.Binding {
	h := m.list.ShortHelp()
	// Remove up/down from short help
	if len(h) > 2 {
		return h[2:]
	}
	return h
}
