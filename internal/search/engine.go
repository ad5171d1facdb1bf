// Package search tries candidate passwords against an access point until one
// connects.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shazow/wifirecover/internal/candidate"
	"github.com/shazow/wifirecover/wifi"
	"github.com/shazow/wifirecover/wifi/password"
	"github.com/shazow/wifirecover/wifi/profile"
)

// DefaultTimeout bounds a single connection attempt.
const DefaultTimeout = 10 * time.Second

var (
	ErrNoAccessPoint  = errors.New("no access point selected")
	ErrNoCandidates   = errors.New("no password candidates")
	ErrAlreadyRunning = errors.New("a search is already running")
)

// Store persists a recovered credential.
type Store interface {
	Save(ssid, password string) error
}

// Result is the outcome of a search.
type Result struct {
	State    State  `json:"state" yaml:"state"`
	SSID     string `json:"ssid" yaml:"ssid"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Attempts int    `json:"attempts" yaml:"attempts"`
	Message  string `json:"message" yaml:"message"`
}

// Found reports whether a password connected.
func (r Result) Found() bool { return r.State == Succeeded }

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds each connection attempt.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock replaces time.Now for rate measurement.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEventHandler receives every event. It is called from the search
// goroutine and should not block.
func WithEventHandler(fn func(Event)) Option {
	return func(e *Engine) {
		e.handler = fn
	}
}

// Engine runs one search at a time against a driver.
type Engine struct {
	driver  wifi.Driver
	store   Store
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
	handler func(Event)

	mu      sync.Mutex
	state   State
	running bool
}

// New returns an idle Engine. A nil store skips persisting results.
func New(driver wifi.Driver, store Store, opts ...Option) *Engine {
	e := &Engine{
		driver:  driver,
		store:   store,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Running reports whether a search is in progress.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Session is a search running in the background.
type Session struct {
	cancel context.CancelFunc
	done   chan struct{}
	result Result
	err    error
}

// Cancel asks the search to stop before the next candidate.
func (s *Session) Cancel() { s.cancel() }

// Done is closed when the search has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the search ends.
func (s *Session) Wait() (Result, error) {
	<-s.done
	return s.result, s.err
}

// Start begins a search on its own goroutine.
func (e *Engine) Start(ctx context.Context, ap *wifi.AccessPoint, src candidate.Source) (*Session, error) {
	if err := e.acquire(ap, src); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{cancel: cancel, done: make(chan struct{})}
	target := *ap
	go func() {
		defer close(s.done)
		defer cancel()
		defer e.release()
		s.result, s.err = e.run(ctx, target, src)
	}()
	return s, nil
}

// Run searches on the calling goroutine.
func (e *Engine) Run(ctx context.Context, ap *wifi.AccessPoint, src candidate.Source) (Result, error) {
	if err := e.acquire(ap, src); err != nil {
		return Result{}, err
	}
	defer e.release()
	return e.run(ctx, *ap, src)
}

func (e *Engine) acquire(ap *wifi.AccessPoint, src candidate.Source) error {
	if ap == nil {
		return ErrNoAccessPoint
	}
	if src == nil || src.IsEmpty() {
		return ErrNoCandidates
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}
	e.running = true
	e.state = Idle
	return nil
}

func (e *Engine) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}

func (e *Engine) emit(ev Event) {
	if e.handler != nil {
		e.handler(ev)
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	changed := e.state != s
	e.state = s
	e.mu.Unlock()
	if changed {
		e.emit(Event{Kind: EventState, State: s})
	}
}

func (e *Engine) finish(res Result) Result {
	e.setState(res.State)
	e.logger.Info("search finished", "ssid", res.SSID, "state", res.State, "attempts", res.Attempts)
	e.emit(Event{Kind: EventDone, State: res.State, Candidate: res.Password, Attempts: res.Attempts, Message: res.Message})
	return res
}

// nextCandidate advances src unless ctx is done. Once cancelled, src is left
// untouched so its owner may close it.
func nextCandidate(ctx context.Context, src candidate.Source) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	return src.Next()
}

func (e *Engine) run(ctx context.Context, ap wifi.AccessPoint, src candidate.Source) (Result, error) {
	res := Result{SSID: ap.SSID}
	m := meter{now: e.now}
	e.logger.Info("search started", "ssid", ap.SSID, "encryption", ap.Encryption, "timeout", e.timeout)
	e.setState(Searching)

	for pw, ok := src.First(); ok && ctx.Err() == nil; pw, ok = nextCandidate(ctx, src) {
		if err := password.Validate(pw, ap.Encryption); err != nil {
			e.logger.Debug("skipping candidate", "candidate", pw, "reason", err)
			e.emit(Event{Kind: EventInfo, State: Searching, Candidate: pw, Attempts: res.Attempts, Message: err.Error()})
			continue
		}

		e.setState(Connecting)
		doc, err := profile.Create(ap, pw)
		if err != nil {
			res.State = Failed
			res.Message = fmt.Sprintf("Search failed: %s", err)
			return e.finish(res), fmt.Errorf("creating profile for %q: %w", ap.SSID, err)
		}
		connected, err := e.driver.Connect(ctx, wifi.ConnectRequest{
			InterfaceID: ap.InterfaceID,
			Document:    doc,
			SSID:        ap.SSID,
			BssType:     ap.BssType,
			Timeout:     e.timeout,
		})
		if err != nil {
			e.logger.Warn("connection attempt failed", "ssid", ap.SSID, "error", err)
			connected = false
		}
		res.Attempts++
		e.emit(Event{
			Kind:      EventProgress,
			State:     Connecting,
			Candidate: pw,
			Attempts:  res.Attempts,
			PerMinute: m.tick(),
		})

		if connected {
			res.State = Succeeded
			res.Password = pw
			res.Message = fmt.Sprintf("Password found: %s", pw)
			var saveErr error
			if e.store != nil {
				if err := e.store.Save(ap.SSID, pw); err != nil {
					saveErr = fmt.Errorf("saving result: %w", err)
					e.logger.Error("could not save result", "error", err)
				}
			}
			return e.finish(res), saveErr
		}
		e.setState(Searching)
	}

	if ctx.Err() != nil {
		res.State = Cancelled
		res.Message = "Search cancelled."
		return e.finish(res), nil
	}
	res.State = Failed
	res.Message = "Password not found."
	return e.finish(res), nil
}
