// Package config loads the settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/shazow/wifirecover/internal/candidate"
)

var ErrInvalid = errors.New("invalid settings")

// Defaults.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultFileName  = "passwords.txt"
	DefaultMaxRepeat = candidate.DefaultMaxRepeat
)

// Config holds the search settings.
type Config struct {
	Casing candidate.Casing
	// Timeout bounds each connection attempt.
	Timeout time.Duration
	// Threshold hides access points with a link quality at or below it.
	Threshold int
	// StorageDir and FileName locate the result file.
	StorageDir string
	FileName   string
	// Overwrite truncates the result file instead of appending to it.
	Overwrite bool
	MaxRepeat int
	// Theme is the path of a TUI theme file.
	Theme string
}

// Default returns the built-in settings. Results go to the home directory.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		Casing:     candidate.CaseNone,
		Timeout:    DefaultTimeout,
		StorageDir: home,
		FileName:   DefaultFileName,
		MaxRepeat:  DefaultMaxRepeat,
	}
}

// DefaultPath is the settings file used when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "wifirecover", "config.toml")
}

// ResultPath is the full path of the result file.
func (c Config) ResultPath() string {
	return filepath.Join(c.StorageDir, c.FileName)
}

// configFile mirrors the TOML layout. Pointers tell a missing key apart from
// a zero value so the file only overrides what it sets.
type configFile struct {
	Casing     *candidate.Casing `toml:"casing,omitempty"`
	Timeout    *int              `toml:"timeout,omitempty"`
	Threshold  *int              `toml:"threshold,omitempty"`
	StorageDir *string           `toml:"storage_dir,omitempty"`
	FileName   *string           `toml:"file_name,omitempty"`
	Overwrite  *bool             `toml:"overwrite,omitempty"`
	MaxRepeat  *int              `toml:"max_repeat,omitempty"`
	Theme      *string           `toml:"theme,omitempty"`
}

// Load reads settings from r on top of the defaults. A nil reader returns the
// defaults.
func Load(r io.Reader) (Config, error) {
	c := Default()
	if r == nil {
		return c, nil
	}

	var f configFile
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return c, fmt.Errorf("decoding settings: %w", err)
	}
	if f.Casing != nil {
		c.Casing = *f.Casing
	}
	if f.Timeout != nil {
		c.Timeout = time.Duration(*f.Timeout) * time.Second
	}
	if f.Threshold != nil {
		c.Threshold = *f.Threshold
	}
	if f.StorageDir != nil {
		c.StorageDir = expandHome(*f.StorageDir)
	}
	if f.FileName != nil {
		c.FileName = *f.FileName
	}
	if f.Overwrite != nil {
		c.Overwrite = *f.Overwrite
	}
	if f.MaxRepeat != nil {
		c.MaxRepeat = *f.MaxRepeat
	}
	if f.Theme != nil {
		c.Theme = expandHome(*f.Theme)
	}
	return c, c.Validate()
}

// LoadFile reads the settings file at path. A missing file yields the
// defaults when missingOK is set.
func LoadFile(path string, missingOK bool) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) && missingOK {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("opening settings: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks the settings.
func (c Config) Validate() error {
	if err := ValidateFileName(c.FileName); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %w", ErrInvalid)
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("threshold %d is outside 0-100: %w", c.Threshold, ErrInvalid)
	}
	if c.MaxRepeat < 0 {
		return fmt.Errorf("max_repeat must not be negative: %w", ErrInvalid)
	}
	return nil
}

// ValidateFileName rejects names that are empty or not a plain file name.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name is empty: %w", ErrInvalid)
	}
	if strings.ContainsAny(name, `/\:*?"<>|`+"\x00") {
		return fmt.Errorf("file name %q contains invalid characters: %w", name, ErrInvalid)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("file name %q: %w", name, ErrInvalid)
	}
	return nil
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/') {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + rest
}
