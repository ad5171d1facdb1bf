package candidate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Dictionary reads one candidate per line. Whitespace-only lines are skipped.
type Dictionary struct {
	Name string

	mu      sync.Mutex
	r       io.ReadSeeker
	closer  io.Closer
	br      *bufio.Reader
	atStart bool
	count   int
	total   int
	err     error
}

// Open opens the word list at path.
func Open(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening word list: %w", err)
	}
	d, err := NewDictionary(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading word list %s: %w", path, err)
	}
	d.Name = path
	d.closer = f
	return d, nil
}

// NewDictionary reads candidates from r, counting them once up front.
func NewDictionary(r io.ReadSeeker) (*Dictionary, error) {
	d := &Dictionary{r: r, br: bufio.NewReader(r), atStart: true}
	for {
		if _, ok := d.readWord(); !ok {
			break
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	d.total = d.count
	if err := d.rewind(); err != nil {
		return nil, err
	}
	return d, nil
}

func isWord(line string) bool {
	return strings.TrimSpace(line) != ""
}

func (d *Dictionary) rewind() error {
	if _, err := d.r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	d.br.Reset(d.r)
	d.atStart = true
	d.count = 0
	d.err = nil
	return nil
}

func (d *Dictionary) readWord() (string, bool) {
	for {
		line, err := d.br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			d.err = err
			return "", false
		}
		if line == "" && err != nil {
			return "", false
		}
		if d.atStart {
			line = strings.TrimPrefix(line, "\ufeff")
			d.atStart = false
		}
		line = strings.TrimRight(line, "\r\n")
		if isWord(line) {
			d.count++
			return line, true
		}
		if err != nil {
			return "", false
		}
	}
}

// First rewinds to the first non-blank line.
func (d *Dictionary) First() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.rewind(); err != nil {
		d.err = err
		return "", false
	}
	return d.readWord()
}

// Next returns the following non-blank line.
func (d *Dictionary) Next() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readWord()
}

// IsEmpty reports whether the word list has no non-blank lines.
func (d *Dictionary) IsEmpty() bool { return d.total == 0 }

// Len is the number of non-blank lines.
func (d *Dictionary) Len() int { return d.total }

// Count is the number of lines returned since First.
func (d *Dictionary) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Err returns the first read error, if any.
func (d *Dictionary) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Close closes the underlying file when the dictionary was opened by path.
func (d *Dictionary) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}
