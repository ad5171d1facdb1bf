package tui

import "github.com/charmbracelet/lipgloss"

// Color is a terminal color that can be read from a theme file.
type Color struct {
	lipgloss.TerminalColor
}

// Theme contains the colors and icons for the application.
type Theme struct {
	Primary  Color
	Subtle   Color
	Success  Color
	Error    Color
	Normal   Color
	Disabled Color
	Border   Color
	Saved    Color

	SignalHigh Color
	SignalLow  Color

	TitleIcon          string
	NetworkOpenIcon    string
	NetworkSecureIcon  string
	NetworkSavedIcon   string
	NetworkUnknownIcon string
}

// CurrentTheme is the active theme for the application.
var CurrentTheme = NewDefaultTheme()

func adaptive(light, dark string) Color {
	return Color{lipgloss.AdaptiveColor{Light: light, Dark: dark}}
}

// NewDefaultTheme creates a new default theme.
func NewDefaultTheme() Theme {
	return Theme{
		Primary:  adaptive("#5A56E0", "#D359E3"), // Purple/Pink
		Subtle:   adaptive("#BDBDBD", "#616161"), // Gray
		Success:  adaptive("#388E3C", "#81C784"), // Green
		Error:    adaptive("#D32F2F", "#E57373"), // Red
		Normal:   adaptive("#212121", "#FFFFFF"), // Black/White
		Disabled: adaptive("#E0E0E0", "#424242"), // Lighter/Darker Gray
		Border:   adaptive("#BDBDBD", "#616161"), // Gray
		Saved:    adaptive("#1976D2", "#64B5F6"), // Blue

		SignalHigh: adaptive("#00B300", "#00FF00"),
		SignalLow:  adaptive("#D05F00", "#BC3C00"),

		TitleIcon:          "",
		NetworkOpenIcon:    "  ",
		NetworkSecureIcon:  "🔒",
		NetworkSavedIcon:   "⭐",
		NetworkUnknownIcon: "? ",
	}
}

// hex resolves c to a hex string for the current background. It returns ""
// for colors that are not given in hex.
func (c Color) hex() string {
	switch v := c.TerminalColor.(type) {
	case lipgloss.Color:
		return string(v)
	case lipgloss.AdaptiveColor:
		if lipgloss.HasDarkBackground() {
			return v.Dark
		}
		return v.Light
	}
	return ""
}
