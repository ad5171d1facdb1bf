package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shazow/wifirecover/internal/candidate"
	"github.com/shazow/wifirecover/internal/controller"
	"github.com/shazow/wifirecover/internal/search"
	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/mock"
)

func init() {
	mock.DefaultActionSleep = 0
}

func newTestModel(t *testing.T, ssid string, words ...string) (*model, *mock.Driver) {
	t.Helper()
	driver, err := mock.New()
	if err != nil {
		t.Fatalf("mock.New() failed: %v", err)
	}
	dict, err := candidate.NewDictionary(strings.NewReader(strings.Join(words, "\n")))
	if err != nil {
		t.Fatalf("NewDictionary failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := NewModel(ctx, Options{
		Controller: controller.New(driver),
		Source:     candidate.NewChain(candidate.CaseNone, dict),
		SSID:       ssid,
		Timeout:    time.Second,
	})
	// Set a size for the model, otherwise the list component won't have enough space to render.
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(*model), driver
}

func findAP(t *testing.T, d *mock.Driver, ssid string) wifi.AccessPoint {
	t.Helper()
	aps, err := d.AccessPoints(context.Background())
	if err != nil {
		t.Fatalf("AccessPoints failed: %v", err)
	}
	for _, ap := range aps {
		if ap.SSID == ssid {
			return ap
		}
	}
	t.Fatalf("access point %q not found", ssid)
	return wifi.AccessPoint{}
}

// drainSearch feeds engine events to the model until the search is done.
func drainSearch(t *testing.T, m *model) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-m.events:
			m.Update(searchEventMsg(ev))
			if ev.Kind == search.EventDone {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for the search to finish")
		}
	}
}

func TestTuiModel_AccessPointsLoadedUpdatesList(t *testing.T) {
	m, _ := newTestModel(t, "")
	aps := []wifi.AccessPoint{
		{SSID: "TestNet1", Connectable: true, LinkQuality: 80},
		{SSID: "TestNet2", Connectable: true, LinkQuality: 20},
	}

	updated, _ := m.Update(accessPointsLoadedMsg(aps))
	m = updated.(*model)

	if m.loading {
		t.Errorf("loading should be cleared after access points are loaded")
	}
	view := m.View()
	for _, ssid := range []string{"TestNet1", "TestNet2"} {
		if !strings.Contains(view, ssid) {
			t.Errorf("View does not contain %q in\n%s", ssid, view)
		}
	}
}

func TestTuiModel_SearchFindsPassword(t *testing.T) {
	m, driver := newTestModel(t, "", "password1", "nope", mock.DefaultPassword, "never-tried")
	ap := findAP(t, driver, "VFNL-6F2368")

	m.Update(startSearchMsg{ap: ap})
	if _, ok := m.stack.Top().(*SearchModel); !ok {
		t.Fatalf("expected a SearchModel on top, got %T", m.stack.Top())
	}

	drainSearch(t, m)

	res := m.Result()
	if res == nil || !res.Found() {
		t.Fatalf("expected a found result, got %+v", res)
	}
	if res.Password != mock.DefaultPassword || res.SSID != ap.SSID {
		t.Errorf("result = %+v", res)
	}
	// "nope" is too short for WPA2 and is skipped without an attempt.
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
	if view := m.View(); !strings.Contains(view, "Password found: "+mock.DefaultPassword) {
		t.Errorf("View does not show the password in\n%s", view)
	}

	// Leaving the finished search returns to the picker.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if msg := cmd(); msg != (popViewMsg{}) {
		t.Fatalf("expected popViewMsg, got %T", msg)
	}
	m.Update(popViewMsg{})
	if m.stack.Top() != m.list {
		t.Errorf("expected the list on top, got %T", m.stack.Top())
	}
}

func TestTuiModel_SearchNotFound(t *testing.T) {
	m, driver := newTestModel(t, "", "password1", "password2")
	m.Update(startSearchMsg{ap: findAP(t, driver, "Chromcast")})
	drainSearch(t, m)

	res := m.Result()
	if res == nil || res.State != search.Failed {
		t.Fatalf("expected a failed result, got %+v", res)
	}
	if driver.Attempts != 2 {
		t.Errorf("driver attempts = %d, want 2", driver.Attempts)
	}
}

func TestTuiModel_StopSearchWaitsForEngine(t *testing.T) {
	driver, err := mock.New()
	if err != nil {
		t.Fatalf("mock.New() failed: %v", err)
	}
	pattern := candidate.NewPattern("guess[0-9]{4}")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewModel(ctx, Options{
		Controller: controller.New(driver),
		Source:     candidate.NewChain(candidate.CaseNone, pattern),
		Timeout:    time.Second,
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(startSearchMsg{ap: findAP(t, driver, "Chromcast")})
	if m.session == nil {
		t.Fatal("expected a running session")
	}

	cancel()
	m.stopSearch()

	select {
	case <-m.session.Done():
	default:
		t.Fatal("stopSearch returned before the search ended")
	}
	if err := pattern.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if _, ok := pattern.Next(); ok {
		t.Error("closed source produced another candidate")
	}
}

func TestTuiModel_PendingSSIDStartsSearch(t *testing.T) {
	m, _ := newTestModel(t, "Sitecom4A711C", mock.DefaultPassword)
	aps, err := m.ctrl.AccessPoints(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	m.Update(accessPointsLoadedMsg(aps))

	if _, ok := m.stack.Top().(*SearchModel); !ok {
		t.Fatalf("expected a SearchModel on top, got %T", m.stack.Top())
	}
	drainSearch(t, m)
	if res := m.Result(); res == nil || !res.Found() {
		t.Errorf("expected a found result, got %+v", res)
	}
}

func TestTuiModel_PendingSSIDMissing(t *testing.T) {
	m, _ := newTestModel(t, "NoSuchNetwork", mock.DefaultPassword)
	m.Update(accessPointsLoadedMsg{{SSID: "Other"}})

	if _, ok := m.stack.Top().(*ErrorModel); !ok {
		t.Fatalf("expected an ErrorModel on top, got %T", m.stack.Top())
	}
	if !strings.Contains(m.View(), "NoSuchNetwork") {
		t.Errorf("error view should name the network:\n%s", m.View())
	}
}

func TestTuiModel_ErrorAndPop(t *testing.T) {
	m, _ := newTestModel(t, "")
	m.Update(errorMsg{err: errors.New("radio on fire")})
	if _, ok := m.stack.Top().(*ErrorModel); !ok {
		t.Fatalf("expected an ErrorModel on top, got %T", m.stack.Top())
	}

	_, cmd := m.Update(popViewMsg{})
	if cmd == nil {
		t.Errorf("popping back to the list should reload access points")
	}
	if m.stack.Top() != m.list {
		t.Errorf("expected the list on top, got %T", m.stack.Top())
	}
}

func TestTuiModel_ScanIgnoredWhileSearching(t *testing.T) {
	m, driver := newTestModel(t, "", "password1")
	m.Update(startSearchMsg{ap: findAP(t, driver, "Chromcast")})

	_, cmd := m.Update(scanMsg{})
	if m.engine.Running() && cmd != nil {
		t.Errorf("scan should be ignored while a search runs")
	}
	drainSearch(t, m)
}

func TestScanAccessPoints(t *testing.T) {
	driver, err := mock.New()
	if err != nil {
		t.Fatal(err)
	}
	msg := scanAccessPoints(context.Background(), controller.New(driver))()
	aps, ok := msg.(accessPointsLoadedMsg)
	if !ok {
		t.Fatalf("expected accessPointsLoadedMsg, got %T", msg)
	}
	if len(aps) == 0 {
		t.Fatalf("expected access points")
	}
	for i := 1; i < len(aps); i++ {
		if aps[i-1].LinkQuality < aps[i].LinkQuality {
			t.Errorf("access points not sorted by link quality at %d", i)
		}
	}

	driver.ScanError = wifi.ErrWirelessDisabled
	msg = scanAccessPoints(context.Background(), controller.New(driver))()
	if e, ok := msg.(errorMsg); !ok || !errors.Is(e.err, wifi.ErrWirelessDisabled) {
		t.Errorf("expected errorMsg wrapping ErrWirelessDisabled, got %#v", msg)
	}
}
