package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"baker/internal/logging"
	"baker/internal/progress"
)

// Transition describes one accepted event and the machine state after it.
type Transition struct {
	RunID   string
	From    State
	To      State
	Event   EventKind
	Context Context
}

// TransitionObserver receives every accepted event, including self
// transitions such as progress ticks. Observers run on the dispatching
// goroutine and must not call back into the machine.
type TransitionObserver func(Transition)

// Machine is the workflow orchestrator. All state lives behind its mutex:
// events are applied one at a time in the order Handle acquires the lock,
// and every external operation runs as an asynchronous task that reports
// back through Handle with the run identifier it was launched under.
type Machine struct {
	gw     CommandGateway
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	data      Context
	runID     string
	fired     map[effectKey]struct{}
	bridge    *progress.Bridge
	observers []TransitionObserver
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type effectKey struct {
	runID string
	state State
}

// Option configures optional machine behavior.
type Option func(*Machine)

// WithObserver registers a transition observer.
func WithObserver(fn TransitionObserver) Option {
	return func(m *Machine) {
		if fn != nil {
			m.observers = append(m.observers, fn)
		}
	}
}

// New constructs an idle machine bound to the given gateway.
func New(gw CommandGateway, logger *slog.Logger, opts ...Option) *Machine {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Machine{
		gw:     gw,
		logger: logger.With(logging.String(logging.FieldComponent, "workflow")),
		state:  StateIdle,
		fired:  make(map[effectKey]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns a copy of the run context.
func (m *Machine) Snapshot() Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.clone()
}

// RunID returns the identifier of the active run, or empty when no run has
// started since the last reset.
func (m *Machine) RunID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runID
}

// Handle applies one event. Events addressed to a run other than the
// current one are dropped; events unmatched for the current state are
// no-ops so late or duplicate signals never disturb the workflow.
func (m *Machine) Handle(ev Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if ev.RunID != "" && ev.RunID != m.runID {
		m.mu.Unlock()
		m.logger.Debug("event for stale run dropped",
			logging.String("event", string(ev.Kind)),
			logging.String(logging.FieldRunID, ev.RunID),
		)
		return
	}

	from := m.state
	to, matched := m.apply(ev)
	if !matched {
		m.mu.Unlock()
		m.logger.Debug("event ignored in current state",
			logging.String("event", string(ev.Kind)),
			logging.String("state", string(from)),
		)
		return
	}
	m.state = to

	if to != from {
		m.logger.Info("workflow transition",
			logging.String(logging.FieldEventType, "workflow_transition"),
			logging.String("event", string(ev.Kind)),
			logging.String("from", string(from)),
			logging.String("to", string(to)),
			logging.String(logging.FieldRunID, m.runID),
		)
		m.enterState(to)
	}

	transition := Transition{
		RunID:   m.runID,
		From:    from,
		To:      to,
		Event:   ev.Kind,
		Context: m.data.clone(),
	}
	// Observers run under the machine lock so they see transitions in the
	// exact order events were accepted.
	for _, fn := range m.observers {
		fn(transition)
	}
	m.mu.Unlock()
}

// Close abandons any in-flight run and releases the machine's resources.
// In-flight tasks observe the cancellation and their late results are
// discarded by the run-identifier check.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	bridge := m.bridge
	m.bridge = nil
	m.mu.Unlock()

	if bridge != nil {
		bridge.Close()
	}
	m.cancel()
	m.wg.Wait()
}

// beginRun assigns a fresh run identifier. Guards for earlier runs become
// unreachable and are dropped wholesale on the next return to idle.
func (m *Machine) beginRun() {
	m.detachBridge()
	m.runID = uuid.NewString()
}

func (m *Machine) resetToIdle() {
	m.detachBridge()
	m.data.resetRunState()
	m.runID = ""
	m.fired = make(map[effectKey]struct{})
}

func (m *Machine) detachBridge() {
	if m.bridge != nil {
		m.bridge.Close()
		m.bridge = nil
	}
}
