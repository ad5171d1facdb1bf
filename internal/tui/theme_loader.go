package tui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
)

var errNoTheme = errors.New("no theme given")

// themeFile represents the structure of the theme TOML file.
// Pointers let a file override only the colors it names.
type themeFile struct {
	Primary    *Color `toml:"Primary,omitempty"`
	Subtle     *Color `toml:"Subtle,omitempty"`
	Success    *Color `toml:"Success,omitempty"`
	Error      *Color `toml:"Error,omitempty"`
	Normal     *Color `toml:"Normal,omitempty"`
	Disabled   *Color `toml:"Disabled,omitempty"`
	Border     *Color `toml:"Border,omitempty"`
	Saved      *Color `toml:"Saved,omitempty"`
	SignalHigh *Color `toml:"SignalHigh,omitempty"`
	SignalLow  *Color `toml:"SignalLow,omitempty"`
}

// UnmarshalTOML accepts either a single color or a [light, dark] pair.
func (c *Color) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case string:
		c.TerminalColor = lipgloss.Color(v)
		return nil
	case []any:
		if len(v) != 2 {
			return fmt.Errorf("color pair must have 2 entries, got %d", len(v))
		}
		light, ok1 := v[0].(string)
		dark, ok2 := v[1].(string)
		if !ok1 || !ok2 {
			return fmt.Errorf("color pair must be strings: %v", v)
		}
		c.TerminalColor = lipgloss.AdaptiveColor{Light: light, Dark: dark}
		return nil
	}
	return fmt.Errorf("unsupported color value: %v", v)
}

// LoadTheme reads a theme from r on top of the default theme.
func LoadTheme(r io.Reader) (Theme, error) {
	theme := NewDefaultTheme()
	if r == nil {
		return theme, errNoTheme
	}

	var tf themeFile
	if _, err := toml.NewDecoder(r).Decode(&tf); err != nil {
		return theme, fmt.Errorf("decoding theme: %w", err)
	}

	for _, o := range []struct {
		dst *Color
		src *Color
	}{
		{&theme.Primary, tf.Primary},
		{&theme.Subtle, tf.Subtle},
		{&theme.Success, tf.Success},
		{&theme.Error, tf.Error},
		{&theme.Normal, tf.Normal},
		{&theme.Disabled, tf.Disabled},
		{&theme.Border, tf.Border},
		{&theme.Saved, tf.Saved},
		{&theme.SignalHigh, tf.SignalHigh},
		{&theme.SignalLow, tf.SignalLow},
	} {
		if o.src != nil {
			*o.dst = *o.src
		}
	}
	return theme, nil
}

// LoadThemeFile loads the theme at path into CurrentTheme. An empty path does
// nothing.
func LoadThemeFile(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	theme, err := LoadTheme(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	CurrentTheme = theme
	return nil
}
