package candidate

import (
	"iter"
	"regexp/syntax"
	"slices"
	"sync"
	"unicode"
)

// DefaultMaxRepeat caps unbounded repetition such as `*`, `+` and `{n,}`.
const DefaultMaxRepeat = 4

// Printable ASCII is the alphabet for `.` and for the complement of large
// character classes.
const (
	printableFirst = 0x20
	printableLast  = 0x7e
	// Ranges wider than this are narrowed to printable ASCII.
	maxClassSpan = 256
)

// Pattern enumerates the strings matched by a regular expression.
type Pattern struct {
	Expr string

	maxRepeat int
	re        *syntax.Regexp
	err       error

	mu      sync.Mutex
	next    func() (string, bool)
	stop    func()
	started bool
	count   int
}

// PatternOption configures a Pattern.
type PatternOption func(*Pattern)

// WithMaxRepeat caps unbounded repetition at n.
func WithMaxRepeat(n int) PatternOption {
	return func(p *Pattern) {
		if n >= 0 {
			p.maxRepeat = n
		}
	}
}

// NewPattern parses expr using Perl syntax. An invalid expression yields a
// Pattern whose First reports no match.
func NewPattern(expr string, opts ...PatternOption) *Pattern {
	p := &Pattern{Expr: expr, maxRepeat: DefaultMaxRepeat}
	for _, opt := range opts {
		opt(p)
	}
	p.re, p.err = syntax.Parse(expr, syntax.Perl)
	return p
}

// Valid reports whether the expression parsed.
func (p *Pattern) Valid() bool { return p.err == nil }

// Err returns the parse error, if any.
func (p *Pattern) Err() error { return p.err }

// First restarts the enumeration.
func (p *Pattern) First() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.first()
}

// Next returns the following match. Calling Next before First starts the
// enumeration; after Close it reports no match.
func (p *Pattern) Next() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next == nil {
		if p.started {
			return "", false
		}
		return p.first()
	}
	return p.advance()
}

func (p *Pattern) first() (string, bool) {
	p.release()
	if p.err != nil {
		return "", false
	}
	p.next, p.stop = iter.Pull(matches(p.re, p.maxRepeat))
	p.started = true
	p.count = 0
	return p.advance()
}

func (p *Pattern) advance() (string, bool) {
	s, ok := p.next()
	if ok {
		p.count++
	}
	return s, ok
}

func (p *Pattern) release() {
	if p.stop != nil {
		p.stop()
	}
	p.next, p.stop = nil, nil
}

// IsEmpty reports whether the expression is invalid or matches nothing.
func (p *Pattern) IsEmpty() bool {
	if p.err != nil {
		return true
	}
	for range matches(p.re, p.maxRepeat) {
		return false
	}
	return true
}

// Count is the number of strings returned since First.
func (p *Pattern) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Close releases the running enumeration. It is safe to call while another
// goroutine is between First and Next.
func (p *Pattern) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release()
	return nil
}

// matches returns every string in the language of re, shortest repetitions
// first, leftmost positions varying slowest.
func matches(re *syntax.Regexp, maxRepeat int) iter.Seq[string] {
	switch re.Op {
	case syntax.OpNoMatch:
		return none
	case syntax.OpEmptyMatch, syntax.OpBeginLine, syntax.OpEndLine,
		syntax.OpBeginText, syntax.OpEndText, syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return single("")
	case syntax.OpLiteral:
		if re.Flags&syntax.FoldCase == 0 {
			return single(string(re.Rune))
		}
		seqs := make([]iter.Seq[string], len(re.Rune))
		for i, r := range re.Rune {
			seqs[i] = runes(foldOrbit(r))
		}
		return product(seqs)
	case syntax.OpCharClass:
		return runes(classRunes(re.Rune))
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		return runes(classRunes([]rune{printableFirst, printableLast}))
	case syntax.OpCapture:
		return matches(re.Sub[0], maxRepeat)
	case syntax.OpStar:
		return repeat(matches(re.Sub[0], maxRepeat), 0, maxRepeat)
	case syntax.OpPlus:
		return repeat(matches(re.Sub[0], maxRepeat), 1, max(1, maxRepeat))
	case syntax.OpQuest:
		return repeat(matches(re.Sub[0], maxRepeat), 0, 1)
	case syntax.OpRepeat:
		hi := re.Max
		if hi < 0 {
			hi = max(re.Min, maxRepeat)
		}
		return repeat(matches(re.Sub[0], maxRepeat), re.Min, hi)
	case syntax.OpConcat:
		seqs := make([]iter.Seq[string], len(re.Sub))
		for i, sub := range re.Sub {
			seqs[i] = matches(sub, maxRepeat)
		}
		return product(seqs)
	case syntax.OpAlternate:
		return func(yield func(string) bool) {
			for _, sub := range re.Sub {
				for s := range matches(sub, maxRepeat) {
					if !yield(s) {
						return
					}
				}
			}
		}
	}
	return none
}

func none(func(string) bool) {}

func single(s string) iter.Seq[string] {
	return func(yield func(string) bool) { yield(s) }
}

func runes(rs []rune) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, r := range rs {
			if !yield(string(r)) {
				return
			}
		}
	}
}

func product(seqs []iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		var walk func(i int, prefix string) bool
		walk = func(i int, prefix string) bool {
			if i == len(seqs) {
				return yield(prefix)
			}
			for s := range seqs[i] {
				if !walk(i+1, prefix+s) {
					return false
				}
			}
			return true
		}
		walk(0, "")
	}
}

func repeat(seq iter.Seq[string], lo, hi int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for n := lo; n <= hi; n++ {
			for s := range product(slices.Repeat([]iter.Seq[string]{seq}, n)) {
				if !yield(s) {
					return
				}
			}
		}
	}
}

// classRunes expands lo/hi range pairs. Wide ranges, such as those of a
// negated class, contribute only their printable ASCII part.
func classRunes(ranges []rune) []rune {
	var rs []rune
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		if hi-lo+1 > maxClassSpan {
			lo, hi = max(lo, printableFirst), min(hi, printableLast)
		}
		for r := lo; r <= hi; r++ {
			rs = append(rs, r)
		}
	}
	return rs
}

// foldOrbit returns r followed by its ASCII case variants.
func foldOrbit(r rune) []rune {
	rs := []rune{r}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f <= unicode.MaxASCII || r > unicode.MaxASCII {
			rs = append(rs, f)
		}
	}
	return rs
}
