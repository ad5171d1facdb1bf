package candidate

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(t *testing.T, content string) *Dictionary {
	t.Helper()
	d, err := NewDictionary(strings.NewReader(content))
	require.NoError(t, err)
	return d
}

// drain returns every candidate from First to exhaustion.
func drain(src Source) []string {
	var got []string
	for s, ok := src.First(); ok; s, ok = src.Next() {
		got = append(got, s)
	}
	return got
}

func TestDictionary(t *testing.T) {
	d := words(t, "\ufeffalpha\r\n\r\n   \nbeta\n\tgamma \n")
	assert.Equal(t, 3, d.Len())
	assert.False(t, d.IsEmpty())
	assert.Equal(t, []string{"alpha", "beta", "\tgamma "}, drain(d))
	assert.Equal(t, 3, d.Count())

	// First restarts from the top.
	s, ok := d.First()
	assert.True(t, ok)
	assert.Equal(t, "alpha", s)
	assert.Equal(t, 1, d.Count())
}

func TestDictionaryNoTrailingNewline(t *testing.T) {
	d := words(t, "one\ntwo")
	assert.Equal(t, []string{"one", "two"}, drain(d))
	_, ok := d.Next()
	assert.False(t, ok)
}

func TestDictionaryEmpty(t *testing.T) {
	for _, content := range []string{"", "\n\n", "\ufeff\r\n  \r\n"} {
		d := words(t, content)
		assert.True(t, d.IsEmpty(), "%q", content)
		_, ok := d.First()
		assert.False(t, ok, "%q", content)
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("hunter2\nWelcome123\n"), 0o600))

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, path, d.Name)
	assert.Equal(t, []string{"hunter2", "Welcome123"}, drain(d))

	_, err = Open(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestPattern(t *testing.T) {
	tests := []struct {
		expr string
		opts []PatternOption
		want []string
	}{
		{"abc", nil, []string{"abc"}},
		{"a|bc", nil, []string{"a", "bc"}},
		{"[ab][12]", nil, []string{"a1", "a2", "b1", "b2"}},
		{"x?y", nil, []string{"y", "xy"}},
		{"a{2,3}", nil, []string{"aa", "aaa"}},
		{"a*", []PatternOption{WithMaxRepeat(2)}, []string{"", "a", "aa"}},
		{"a+", []PatternOption{WithMaxRepeat(3)}, []string{"a", "aa", "aaa"}},
		{"(ab|c)d", nil, []string{"abd", "cd"}},
		{"^pw\\d$", nil, []string{"pw0", "pw1", "pw2", "pw3", "pw4", "pw5", "pw6", "pw7", "pw8", "pw9"}},
		{"(?i)ab", nil, []string{"ab", "aB", "Ab", "AB"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			p := NewPattern(tt.expr, tt.opts...)
			require.True(t, p.Valid())
			assert.False(t, p.IsEmpty())
			got := drain(p)
			assert.ElementsMatch(t, tt.want, got)
			if !strings.HasPrefix(tt.expr, "(?i)") {
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, len(tt.want), p.Count())
			p.Close()
		})
	}
}

func TestPatternAnyChar(t *testing.T) {
	p := NewPattern(".")
	got := drain(p)
	require.Len(t, got, 0x7e-0x20+1)
	assert.Equal(t, " ", got[0])
	assert.Equal(t, "~", got[len(got)-1])
}

func TestPatternNegatedClass(t *testing.T) {
	p := NewPattern("[^a-z]")
	for _, s := range drain(p) {
		r := []rune(s)[0]
		assert.True(t, r <= 0x7e, "%q outside ASCII", s)
		assert.False(t, r >= 'a' && r <= 'z', "%q should be excluded", s)
	}
}

func TestPatternRestart(t *testing.T) {
	p := NewPattern("[xyz]")
	s, _ := p.First()
	assert.Equal(t, "x", s)
	s, _ = p.Next()
	assert.Equal(t, "y", s)
	s, _ = p.First()
	assert.Equal(t, "x", s)
	p.Close()
}

func TestPatternClosedStaysClosed(t *testing.T) {
	p := NewPattern("[xyz]")
	s, ok := p.First()
	require.True(t, ok)
	assert.Equal(t, "x", s)
	require.NoError(t, p.Close())

	_, ok = p.Next()
	assert.False(t, ok, "Next after Close must not restart the enumeration")
	assert.Equal(t, 1, p.Count())

	s, ok = p.First()
	require.True(t, ok)
	assert.Equal(t, "x", s)
	p.Close()
}

func TestPatternCloseWhileIterating(t *testing.T) {
	p := NewPattern("pass[0-9]{4}")
	_, ok := p.First()
	require.True(t, ok)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			if _, ok := p.Next(); !ok {
				return
			}
		}
	}()
	require.NoError(t, p.Close())
	wg.Wait()

	_, ok = p.Next()
	assert.False(t, ok)
}

func TestPatternInvalid(t *testing.T) {
	p := NewPattern("a(b")
	assert.False(t, p.Valid())
	assert.Error(t, p.Err())
	assert.True(t, p.IsEmpty())
	_, ok := p.First()
	assert.False(t, ok)
}

func TestChain(t *testing.T) {
	c := NewChain(CaseNone, words(t, "a\nb\n"), words(t, "c\n"))

	s, ok := c.First()
	require.True(t, ok)
	assert.Equal(t, "a", s)
	for _, want := range []string{"b", "c"} {
		s, ok = c.Next()
		require.True(t, ok)
		assert.Equal(t, want, s)
	}
	_, ok = c.Next()
	assert.False(t, ok)

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.IsEmpty())
	assert.NoError(t, c.Close())
}

func TestChainSkipsEmpty(t *testing.T) {
	c := NewChain(CaseUpper, words(t, ""), words(t, "one\n"), words(t, "\n"), NewPattern("t[wo]o"))
	assert.Equal(t, []string{"ONE", "TOO", "TWO"}, drain(c))
	assert.Equal(t, -1, c.Len())
}

func TestChainEmpty(t *testing.T) {
	c := NewChain(CaseNone, words(t, ""), NewPattern("a(b"))
	assert.True(t, c.IsEmpty())
	_, ok := c.First()
	assert.False(t, ok)

	assert.True(t, NewChain(CaseNone).IsEmpty())
}

func TestCasing(t *testing.T) {
	tests := []struct {
		casing Casing
		in     string
		want   string
	}{
		{CaseNone, "hello World", "hello World"},
		{CaseLower, "HeLLo", "hello"},
		{CaseUpper, "hello", "HELLO"},
		{CaseTitle, "hello world", "Hello World"},
		{CaseTitle, "WIFI router", "WIFI Router"},
		{CaseTitle, "hELLO  WiFi\tNET2", "Hello  Wifi\tNET2"},
		{CaseTitle, " leading", " Leading"},
	}
	for _, tt := range tests {
		if got := tt.casing.Apply(tt.in); got != tt.want {
			t.Errorf("%s.Apply(%q) = %q, want %q", tt.casing, tt.in, got, tt.want)
		}
	}
}

func TestParseCasing(t *testing.T) {
	for _, name := range []string{"none", "lower", "UPPER", " title "} {
		c, err := ParseCasing(name)
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(strings.TrimSpace(name)), c.String())
	}
	c, err := ParseCasing("")
	require.NoError(t, err)
	assert.Equal(t, CaseNone, c)

	_, err = ParseCasing("sarcastic")
	assert.Error(t, err)
}
