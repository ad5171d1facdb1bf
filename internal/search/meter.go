package search

import "time"

// meter measures the attempt rate between consecutive reports.
type meter struct {
	now     func() time.Time
	last    time.Time
	started bool
}

func (m *meter) reset() {
	m.last = m.now()
	m.started = true
}

// tick returns attempts per minute for one attempt since the previous tick.
// The first tick only starts the clock.
func (m *meter) tick() float64 {
	if !m.started {
		m.reset()
		return 0
	}
	now := m.now()
	elapsed := now.Sub(m.last).Milliseconds()
	m.last = now
	if elapsed <= 0 {
		return 0
	}
	return 60000 / float64(elapsed)
}
