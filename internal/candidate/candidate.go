// Package candidate produces the passwords tried by a search.
package candidate

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Source is a restartable cursor over candidate passwords.
type Source interface {
	// First rewinds to the beginning and returns the first candidate.
	First() (string, bool)
	// Next advances and returns the following candidate.
	Next() (string, bool)
	// IsEmpty reports whether the source has no candidates at all.
	IsEmpty() bool
}

// Counter is implemented by sources that know their size up front.
type Counter interface {
	Len() int
}

// Casing is applied to every candidate a Chain returns.
type Casing int

const (
	CaseNone Casing = iota
	CaseLower
	CaseUpper
	CaseTitle
)

var casingNames = []string{
	CaseNone:  "none",
	CaseLower: "lower",
	CaseUpper: "upper",
	CaseTitle: "title",
}

func (c Casing) String() string {
	if c < 0 || int(c) >= len(casingNames) {
		return "none"
	}
	return casingNames[c]
}

// ParseCasing parses the names produced by Casing.String.
func ParseCasing(s string) (Casing, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CaseNone, nil
	}
	for i, name := range casingNames {
		if name == s {
			return Casing(i), nil
		}
	}
	return CaseNone, fmt.Errorf("unknown casing %q, want one of %s", s, strings.Join(casingNames, ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (c Casing) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Casing) UnmarshalText(b []byte) error {
	v, err := ParseCasing(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Apply returns s in this casing.
func (c Casing) Apply(s string) string {
	switch c {
	case CaseLower:
		return cases.Lower(language.Und).String(s)
	case CaseUpper:
		return cases.Upper(language.Und).String(s)
	case CaseTitle:
		return titleCase(s)
	}
	return s
}

// titleCase capitalizes each whitespace separated word and lowercases the
// rest of it. Words already in all caps, such as acronyms, are kept.
func titleCase(s string) string {
	title := cases.Title(language.Und)
	var b strings.Builder
	b.Grow(len(s))
	for s != "" {
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			end = len(s)
		}
		if word := s[:end]; isAllCaps(word) {
			b.WriteString(word)
		} else {
			b.WriteString(title.String(word))
		}
		s = s[end:]
		gap := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) })
		if gap < 0 {
			gap = len(s)
		}
		b.WriteString(s[:gap])
		s = s[gap:]
	}
	return b.String()
}

func isAllCaps(word string) bool {
	return strings.IndexFunc(word, unicode.IsLetter) >= 0 && strings.IndexFunc(word, unicode.IsLower) < 0
}
