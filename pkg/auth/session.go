package auth

import (
	"fmt"

	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/value"
)

// State is one of a Session's three terminal/non-terminal states
// (spec.md §4.8).
type State int

const (
	StateRunning State = iota
	StateDone
	StateFailed
)

// StepResult is the outcome of one Session.Step call.
type StepResult struct {
	State    State
	Outgoing []byte
	UserID   value.UserID // set only when State == StateDone
	Err      error        // set only when State == StateFailed
}

// Mechanism is one authentication mechanism's state machine. A fresh
// Mechanism is produced per session by a Factory; Step is called once
// per client message until it returns StateDone or StateFailed.
type Mechanism interface {
	Step(incoming []byte) StepResult
}

// Factory constructs a fresh Mechanism instance for one session.
type Factory func() Mechanism

// Registry maps mechanism names to factories (spec.md §4.8
// "start(mechanism_name)").
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a mechanism under name, overwriting any prior
// registration.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Names returns every registered mechanism name, in no particular order
// (spec.md §6 list_mechanisms()).
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// Start begins a new Session for mechanism name, or returns
// Err(BadMechanism) (spec.md §4.8) if name is unregistered.
func (r *Registry) Start(name string) (*Session, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, bffherr.New(bffherr.KindBadRequest, fmt.Sprintf("auth: unknown mechanism %q", name))
	}
	return &Session{mech: f(), state: StateRunning}, nil
}

// Session wraps one in-progress (or finished) authentication attempt.
// It carries no persistent state beyond these in-memory fields, so
// dropping a half-finished Session is always safe (spec.md §5
// "Cancellation").
type Session struct {
	mech  Mechanism
	state State
}

// Step feeds the client's next message (nil for the first step of
// mechanisms that speak first) through the mechanism. Calling Step
// after the session has reached StateDone or StateFailed is a caller
// error; it returns a StepResult carrying only that terminal State (no
// Outgoing, UserID or Err).
func (s *Session) Step(incoming []byte) StepResult {
	if s.state != StateRunning {
		return StepResult{State: s.state}
	}
	res := s.mech.Step(incoming)
	s.state = res.State
	return res
}

// Abort transitions the session to a permanent Failed state (spec.md
// §4.8).
func (s *Session) Abort() {
	s.state = StateFailed
}
