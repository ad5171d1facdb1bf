// Package gate lets at most one operation run at a time and turns away
// callers that arrive while it is busy.
package gate

import "golang.org/x/sync/semaphore"

// Gate admits one operation at a time. The zero value is not usable; use New.
type Gate struct {
	sem *semaphore.Weighted
}

// New returns an open Gate.
func New() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// Busy reports whether an operation is running.
func (g *Gate) Busy() bool {
	if !g.sem.TryAcquire(1) {
		return true
	}
	g.sem.Release(1)
	return false
}

// Do runs fn if the gate is free and reports whether it ran.
func (g *Gate) Do(fn func() error) (bool, error) {
	_, ran, err := Try(g, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return ran, err
}

// Try runs fn if the gate is free. The bool reports whether fn ran; when it
// did not, the zero value and a nil error are returned.
func Try[T any](g *Gate, fn func() (T, error)) (T, bool, error) {
	var zero T
	if !g.sem.TryAcquire(1) {
		return zero, false, nil
	}
	defer g.sem.Release(1)
	v, err := fn()
	return v, true, err
}
