package search

// State is the phase a search is in.
type State int

const (
	Idle State = iota
	Searching
	Connecting
	Succeeded
	Failed
	Cancelled
)

var stateNames = []string{
	Idle:       "idle",
	Searching:  "searching",
	Connecting: "connecting",
	Succeeded:  "succeeded",
	Failed:     "failed",
	Cancelled:  "cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the search has ended.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == Cancelled
}

// EventKind tells what an Event carries.
type EventKind int

const (
	// EventState is a state transition.
	EventState EventKind = iota
	// EventProgress follows every connection attempt.
	EventProgress
	// EventInfo reports a candidate that was skipped.
	EventInfo
	// EventDone is the last event of a search.
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventState:
		return "state"
	case EventProgress:
		return "progress"
	case EventInfo:
		return "info"
	case EventDone:
		return "done"
	}
	return "unknown"
}

// Event is emitted from the search loop, in candidate order.
type Event struct {
	Kind      EventKind
	State     State
	Candidate string
	// Attempts is the number of connection attempts so far.
	Attempts int
	// PerMinute is the attempt rate measured since the previous report.
	PerMinute float64
	Message   string
}
