package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/shazow/wifirecover/internal/controller"
	"github.com/shazow/wifirecover/internal/search"
	"github.com/shazow/wifirecover/internal/storage"
	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/mock"
)

func init() {
	mock.DefaultActionSleep = 0
	pterm.DisableOutput()
}

func newTestController(t *testing.T) (*controller.Controller, *mock.Driver) {
	t.Helper()
	d, err := mock.New()
	require.NoError(t, err)
	return controller.New(d, controller.WithTimeout(time.Second)), d
}

func outputLines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

func TestRunList(t *testing.T) {
	c, _ := newTestController(t)
	var buf bytes.Buffer

	err := runList(context.Background(), &buf, "", false, c)
	require.NoError(t, err)

	lines := outputLines(&buf)
	assert.Contains(t, lines, "Webgate\t100%, wpa2-personal/aes, ch 10, known, active")
	assert.Contains(t, lines, "Sitecom4A711C\t70%, wpa2-personal/aes, ch 11")
	assert.Contains(t, lines, "KPN Fon\t100%, open, ch 10, known")
	// The radio of the Atheros adapter is off.
	assert.NotContains(t, buf.String(), "AmazonNet")
}

func TestRunListThreshold(t *testing.T) {
	d, err := mock.New()
	require.NoError(t, err)
	c := controller.New(d, controller.WithThreshold(60))
	var buf bytes.Buffer

	require.NoError(t, runList(context.Background(), &buf, "", false, c))
	for _, line := range outputLines(&buf) {
		assert.NotContains(t, line, "VFNL-6F2368")
		assert.NotContains(t, line, "Chromcast")
	}
}

func TestRunListJSON(t *testing.T) {
	c, _ := newTestController(t)
	var buf bytes.Buffer

	require.NoError(t, runList(context.Background(), &buf, "json", false, c))

	var aps []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &aps))
	require.NotEmpty(t, aps)
	assert.Equal(t, "Webgate", aps[0]["ssid"])
	assert.Equal(t, "aes", aps[0]["encryption"])
}

func TestRunResultsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passwords.txt")
	store := storage.ResultFile{Path: path}
	require.NoError(t, store.Save("Sitecom4A711C", "Welcome123"))
	require.NoError(t, store.Save("Chromcast", "hunter22"))

	var buf bytes.Buffer
	require.NoError(t, runResults(&buf, "yaml", path))

	var results []storage.Result
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &results))
	assert.Equal(t, []storage.Result{
		{SSID: "Sitecom4A711C", Password: "Welcome123"},
		{SSID: "Chromcast", Password: "hunter22"},
	}, results)

	buf.Reset()
	require.NoError(t, runResults(&buf, "text", path))
	assert.Equal(t, []string{"Sitecom4A711C\tWelcome123", "Chromcast\thunter22"}, outputLines(&buf))
}

func TestEncodeUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	_, err := encode(&buf, "xml", nil)
	assert.ErrorIs(t, err, errUsage)
}

func TestRunProfiles(t *testing.T) {
	c, _ := newTestController(t)
	var buf bytes.Buffer

	require.NoError(t, runProfiles(context.Background(), &buf, "", "wlan0", c))
	assert.Equal(t, []string{
		"0\tWebgate\twpa2-personal/aes, active",
		"1\tKPN Fon\topen/none",
		"2\tTMNL-6E34DB\twpa2-personal/tkip",
		"3\tVGV7519531B41\twpa-personal/tkip",
		"4\tCityOpenNet\topen/wep",
	}, outputLines(&buf))

	buf.Reset()
	require.NoError(t, runProfiles(context.Background(), &buf, "json", "wlan0", c))
	assert.NotContains(t, buf.String(), "Saida0407", "keys must not be printed")
}

func TestRunProfilesUnknownInterface(t *testing.T) {
	c, _ := newTestController(t)
	var buf bytes.Buffer
	err := runProfiles(context.Background(), &buf, "", "wlan9", c)
	assert.ErrorIs(t, err, wifi.ErrNotFound)
}

func TestRunConnect(t *testing.T) {
	tests := []struct {
		name     string
		ssid     string
		password string
		wantErr  error
	}{
		{name: "correct password", ssid: "Sitecom4A711C", password: mock.DefaultPassword},
		{name: "rejected", ssid: "Sitecom4A711C", password: "wrongpass1", wantErr: wifi.ErrOperationFailed},
		{name: "unknown network", ssid: "Nowhere", password: mock.DefaultPassword, wantErr: wifi.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestController(t)
			var buf bytes.Buffer
			err := runConnect(context.Background(), &buf, tc.ssid, tc.password, "", c)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Connected to "+tc.ssid+"\n", buf.String())
		})
	}
}

func TestRunConnectInvalidPassword(t *testing.T) {
	c, d := newTestController(t)
	var buf bytes.Buffer
	err := runConnect(context.Background(), &buf, "Sitecom4A711C", "short", "", c)
	assert.Error(t, err)
	assert.Equal(t, 0, d.Attempts, "an invalid key must not reach the driver")
}

func TestRunPriority(t *testing.T) {
	c, _ := newTestController(t)
	var buf bytes.Buffer

	require.NoError(t, runPriority(context.Background(), &buf, "TMNL-6E34DB", "up", "wlan0", c))
	assert.Equal(t, "TMNL-6E34DB is now at position 1\n", buf.String())

	buf.Reset()
	require.NoError(t, runPriority(context.Background(), &buf, "TMNL-6E34DB", "default", "wlan0", c))
	assert.Equal(t, "TMNL-6E34DB is now at position 0\n", buf.String())

	err := runPriority(context.Background(), &buf, "TMNL-6E34DB", "sideways", "wlan0", c)
	assert.ErrorIs(t, err, errUsage)
}

func TestRunForget(t *testing.T) {
	c, _ := newTestController(t)
	var buf bytes.Buffer

	require.NoError(t, runForget(context.Background(), &buf, "CityOpenNet", "wlan0", c))
	_, err := c.FindProfile(context.Background(), mock.IntelID, "CityOpenNet")
	assert.ErrorIs(t, err, wifi.ErrNotFound)
}

func TestRunExportImport(t *testing.T) {
	c, _ := newTestController(t)
	var buf bytes.Buffer
	require.NoError(t, runExport(context.Background(), &buf, "TMNL-6E34DB", "", "wlan0", c))
	assert.Contains(t, buf.String(), "TMNL-6E34DB")

	path := filepath.Join(t.TempDir(), "profile.xml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	require.NoError(t, runForget(context.Background(), &bytes.Buffer{}, "TMNL-6E34DB", "wlan0", c))

	buf.Reset()
	require.NoError(t, runImport(context.Background(), &buf, path, "wlan0", c))
	assert.Equal(t, "Imported profile TMNL-6E34DB\n", buf.String())
	_, err := c.FindProfile(context.Background(), mock.IntelID, "TMNL-6E34DB")
	assert.NoError(t, err)
}

func TestRunRadio(t *testing.T) {
	c, _ := newTestController(t)
	var buf bytes.Buffer

	require.NoError(t, runRadio(context.Background(), &buf, "off", "wlan1", c))
	ifaces, err := c.Interfaces(context.Background())
	require.NoError(t, err)
	for _, i := range ifaces {
		if i.ID == mock.BuffaloID {
			assert.False(t, i.RadioOn)
		}
	}

	err = runRadio(context.Background(), &buf, "maybe", "wlan1", c)
	assert.ErrorIs(t, err, errUsage)
}

func TestRunValidate(t *testing.T) {
	tests := []struct {
		encryption string
		password   string
		want       string
		wantErr    bool
	}{
		{encryption: "aes", password: "Welcome123", want: "valid aes key\n"},
		{encryption: "tkip", password: "short", wantErr: true},
		{encryption: "wep", password: "3132333435", want: "valid wep key\n"},
		{encryption: "wep", password: "12345", wantErr: true},
		{encryption: "rot13", password: "whatever", wantErr: true},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		err := runValidate(&buf, tc.encryption, tc.password)
		if tc.wantErr {
			assert.Error(t, err, "%s/%s", tc.encryption, tc.password)
			continue
		}
		if assert.NoError(t, err) {
			assert.Equal(t, tc.want, buf.String())
		}
	}
}

func TestRunFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.xml")
	doc := `<?xml version="1.0"?><WLANProfile><name>Home</name><SSIDConfig><SSID><name>Home</name></SSID></SSIDConfig></WLANProfile>`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	var buf bytes.Buffer
	require.NoError(t, runFormat(&buf, path))
	assert.Greater(t, len(outputLines(&buf)), 1, "formatted document should span several lines")
	assert.Contains(t, buf.String(), "<name>Home</name>")
}

func TestWifiQRContent(t *testing.T) {
	tests := []struct {
		ssid, password string
		enc            wifi.Encryption
		hidden         bool
		want           string
	}{
		{"Home", "Welcome123", wifi.EncryptionAES, false, "WIFI:S:Home;T:WPA;P:Welcome123;;"},
		{"Old", "3132333435", wifi.EncryptionWEP, true, "WIFI:S:Old;T:WEP;P:3132333435;H:true;;"},
		{"Cafe", "", wifi.EncryptionNone, false, "WIFI:S:Cafe;T:nopass;;"},
		{`a;b`, `c:d"e`, wifi.EncryptionTKIP, false, `WIFI:S:a\;b;T:WPA;P:c\:d\"e;;`},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, WifiQRContent(tc.ssid, tc.password, tc.enc, tc.hidden))
	}
}

func TestRunShowQR(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runShowQR(&buf, "Home", "Welcome123", "aes", false))
	assert.NotEmpty(t, buf.String())

	assert.Error(t, runShowQR(&buf, "Home", "short", "aes", false))
}

func TestBuildSource(t *testing.T) {
	_, err := buildSource(recoverOptions{})
	assert.ErrorIs(t, err, errUsage)

	_, err = buildSource(recoverOptions{Dictionaries: []string{filepath.Join(t.TempDir(), "missing.txt")}})
	assert.Error(t, err)

	_, err = buildSource(recoverOptions{Patterns: []string{"abc[0-9"}})
	assert.Error(t, err)

	src, err := buildSource(recoverOptions{Patterns: []string{"Welcome12[0-9]"}})
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, -1, src.Len(), "patterns do not count their candidates")
}

func writeDictionary(t *testing.T, words ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(words, "\n")+"\n"), 0o600))
	return path
}

func TestRunRecover(t *testing.T) {
	c, d := newTestController(t)
	out := filepath.Join(t.TempDir(), "passwords.txt")
	opts := recoverOptions{
		SSID:         "Sitecom4A711C",
		Dictionaries: []string{writeDictionary(t, "password1", "short", mock.DefaultPassword, "never-tried")},
		Timeout:      time.Second,
		Out:          out,
	}

	var buf bytes.Buffer
	res, err := runRecover(context.Background(), &buf, opts, c, nil)
	require.NoError(t, err)
	assert.Equal(t, search.Succeeded, res.State)
	assert.Equal(t, mock.DefaultPassword, res.Password)
	assert.Equal(t, 2, d.Attempts, "too short candidates are skipped before connecting")

	results, err := storage.ReadResults(out)
	require.NoError(t, err)
	assert.Equal(t, []storage.Result{{SSID: "Sitecom4A711C", Password: mock.DefaultPassword}}, results)
}

func TestRunRecoverNotFound(t *testing.T) {
	c, _ := newTestController(t)
	opts := recoverOptions{
		SSID:     "Chromcast",
		Patterns: []string{"guesses[0-9]{2}"},
		Timeout:  time.Second,
		Out:      filepath.Join(t.TempDir(), "passwords.txt"),
	}

	res, err := runRecover(context.Background(), &bytes.Buffer{}, opts, c, nil)
	assert.True(t, errors.Is(err, errPasswordNotFound))
	assert.Equal(t, search.Failed, res.State)
	assert.Equal(t, 100, res.Attempts)
}

func TestRunRecoverNeedsSSID(t *testing.T) {
	c, _ := newTestController(t)
	opts := recoverOptions{Dictionaries: []string{writeDictionary(t, "password1")}}
	_, err := runRecover(context.Background(), &bytes.Buffer{}, opts, c, nil)
	assert.ErrorIs(t, err, errUsage)
}

func TestRunRecoverQR(t *testing.T) {
	c, _ := newTestController(t)
	opts := recoverOptions{
		SSID:     "Sitecom4A711C",
		Patterns: []string{"Welcome12[0-9]"},
		Timeout:  time.Second,
		Out:      filepath.Join(t.TempDir(), "passwords.txt"),
		QR:       true,
	}
	var buf bytes.Buffer
	_, err := runRecover(context.Background(), &buf, opts, c, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, buf.String())
}
