package candidate

import (
	"errors"
	"io"
)

// Chain walks several sources one after the other, applying a casing to each
// candidate. Empty sources are skipped.
type Chain struct {
	Casing Casing

	sources []Source
	index   int
	started bool
}

// NewChain returns a Chain over sources in order.
func NewChain(casing Casing, sources ...Source) *Chain {
	return &Chain{Casing: casing, sources: sources}
}

// Sources returns the chained sources.
func (c *Chain) Sources() []Source { return c.sources }

// First rewinds every source and returns the first candidate of the first
// non-empty one.
func (c *Chain) First() (string, bool) {
	c.started = true
	return c.from(0)
}

// Next returns the following candidate, moving on to the next source when the
// current one is exhausted.
func (c *Chain) Next() (string, bool) {
	if !c.started {
		return c.First()
	}
	if c.index >= len(c.sources) {
		return "", false
	}
	if s, ok := c.sources[c.index].Next(); ok {
		return c.Casing.Apply(s), true
	}
	return c.from(c.index + 1)
}

func (c *Chain) from(i int) (string, bool) {
	for c.index = i; c.index < len(c.sources); c.index++ {
		src := c.sources[c.index]
		if src.IsEmpty() {
			continue
		}
		if s, ok := src.First(); ok {
			return c.Casing.Apply(s), true
		}
	}
	return "", false
}

// IsEmpty reports whether every source is empty.
func (c *Chain) IsEmpty() bool {
	for _, src := range c.sources {
		if !src.IsEmpty() {
			return false
		}
	}
	return true
}

// Len is the total number of candidates, or -1 if any source cannot tell.
func (c *Chain) Len() int {
	n := 0
	for _, src := range c.sources {
		counter, ok := src.(Counter)
		if !ok {
			return -1
		}
		n += counter.Len()
	}
	return n
}

// Close closes every source that holds resources.
func (c *Chain) Close() error {
	var errs []error
	for _, src := range c.sources {
		if closer, ok := src.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}
