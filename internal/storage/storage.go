// Package storage records recovered credentials in a UTF-16LE text file.
package storage

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrEmptyPath = errors.New("result file path is empty")
	ErrEmptyText = errors.New("nothing to write")
)

// DefaultFileName is used when the settings leave the file name unset.
const DefaultFileName = "passwords.txt"

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Result is one stored credential.
type Result struct {
	SSID     string `json:"ssid" yaml:"ssid"`
	Password string `json:"password" yaml:"password"`
}

// Line renders r the way it is stored.
func (r Result) Line() string {
	return fmt.Sprintf("Ssid=%s, password=%s\n", r.SSID, r.Password)
}

// ResultFile appends, or with Overwrite replaces, credentials in Path.
type ResultFile struct {
	Path      string
	Overwrite bool
}

// Save writes one result line.
func (f ResultFile) Save(ssid, password string) error {
	return f.Write(Result{SSID: ssid, Password: password}.Line())
}

// Write stores text encoded as UTF-16LE without a byte order mark.
func (f ResultFile) Write(text string) error {
	if f.Path == "" {
		return ErrEmptyPath
	}
	if text == "" {
		return ErrEmptyText
	}
	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating result directory: %w", err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if f.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(f.Path, flags, 0o600)
	if err != nil {
		return fmt.Errorf("opening result file: %w", err)
	}
	w := transform.NewWriter(file, utf16le.NewEncoder())
	if _, err := w.Write([]byte(text)); err != nil {
		file.Close()
		return fmt.Errorf("writing result file: %w", err)
	}
	if err := w.Close(); err != nil {
		file.Close()
		return fmt.Errorf("writing result file: %w", err)
	}
	return file.Close()
}

// ReadResults decodes every line written by ResultFile. Lines that do not
// look like results are skipped.
func ReadResults(path string) ([]Result, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening result file: %w", err)
	}
	defer file.Close()

	var results []Result
	scanner := bufio.NewScanner(transform.NewReader(file, unicode.BOMOverride(utf16le.NewDecoder())))
	for scanner.Scan() {
		if r, ok := parseLine(scanner.Text()); ok {
			results = append(results, r)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}
	return results, nil
}

func parseLine(line string) (Result, bool) {
	line = strings.TrimRight(line, "\r")
	rest, ok := strings.CutPrefix(line, "Ssid=")
	if !ok {
		return Result{}, false
	}
	// SSIDs may contain the separator, so split on the last one.
	i := strings.LastIndex(rest, ", password=")
	if i < 0 {
		return Result{}, false
	}
	return Result{SSID: rest[:i], Password: rest[i+len(", password="):]}, true
}
