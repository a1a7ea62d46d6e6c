package resource

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/log"
	"github.com/cuemby/bffhd/pkg/signal"
	"github.com/cuemby/bffhd/pkg/store"
	"github.com/cuemby/bffhd/pkg/value"
)

// Auditor appends one audit line per committed transition. pkg/audit's
// Log satisfies this interface; Engine depends only on the interface so
// it never needs to import pkg/audit.
type Auditor interface {
	Append(machine string, state value.State) error
}

// update is one request enqueued on an Engine's FIFO queue.
type update struct {
	event Event
	force bool
	reply chan error
}

// Engine is the per-resource Resource Engine (spec.md §4.4): it owns a
// resource's input/output State exclusively and serialises every update
// through a single FIFO queue.
type Engine struct {
	id      uint64
	machine string
	logic   Logic
	store   *store.Store
	sig     *signal.Signal
	auditor Auditor
	logger  zerolog.Logger

	queue   chan *update
	current Status // touched only from the Run goroutine
}

// NewEngine constructs an Engine for resource id/machine. logic may be
// nil, in which case StandardLogic is used.
func NewEngine(id uint64, machine string, st *store.Store, sig *signal.Signal, auditor Auditor, logic Logic) *Engine {
	if logic == nil {
		logic = StandardLogic{}
	}
	return &Engine{
		id:      id,
		machine: machine,
		logic:   logic,
		store:   st,
		sig:     sig,
		auditor: auditor,
		logger:  log.Component("resource-engine." + machine),
		queue:   make(chan *update, 16),
		current: FreeStatus,
	}
}

// Load recovers the engine's in-memory current status from the durable
// store, defaulting to Free if the resource has never been written
// (spec.md §3 "Lifecycle"), and primes the output signal so subscribers
// and GetCurrent observe the persisted value immediately. Call once
// before Run.
func (e *Engine) Load() error {
	out, ok, err := e.store.GetOutput(e.id)
	if err != nil {
		return err
	}
	if !ok {
		e.current = FreeStatus
	} else {
		status, err := DecodeStatus(out)
		if err != nil {
			return fmt.Errorf("resource: engine %s: %w", e.machine, err)
		}
		e.current = status
	}
	e.sig.Set(e.current.Encode())
	return nil
}

// Run is the Engine's task loop (spec.md §4.4): it must be run in its
// own goroutine. Run returns when ctx is cancelled or the queue is
// closed via Close.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Close the reply channel of every update still queued so its
			// requester observes ErrClosed instead of waiting on a reply.
			for {
				select {
				case u, ok := <-e.queue:
					if !ok {
						return
					}
					close(u.reply)
				default:
					return
				}
			}
		case u, ok := <-e.queue:
			if !ok {
				return
			}
			u.reply <- e.apply(u.event, u.force)
		}
	}
}

func (e *Engine) apply(event Event, force bool) error {
	realised, err := e.logic.Apply(e.current, event, force)
	if err != nil {
		return err
	}

	input := event.Encode()
	output := realised.Encode()

	if err := e.store.Put(e.id, input, output); err != nil {
		// Storage failure: reply Ok per spec.md §4.4, but do not apply
		// the signal and record the divergence for an operator to find.
		e.logger.Error().Err(err).Msg("pending inconsistency: store write failed after logic committed")
		return nil
	}

	e.current = realised
	e.sig.Set(output)

	if e.auditor != nil {
		if err := e.auditor.Append(e.machine, output); err != nil {
			e.logger.Error().Err(err).Msg("audit write failed")
		}
	}
	return nil
}

// enqueue submits an update and waits for its reply, translating a
// dropped reply channel (engine shut down mid-request) to ErrClosed
// (spec.md §5 "Cancellation").
func (e *Engine) enqueue(ctx context.Context, u *update) error {
	select {
	case e.queue <- u:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err, ok := <-u.reply:
		if !ok {
			return bffherr.ErrClosed
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Propose enqueues a plain (non-force) update (spec.md §6
// propose(resource_id, desired_state)). Callers are expected to have
// already checked the submitter's write permission (spec.md §4.4
// "Authorisation").
func (e *Engine) Propose(ctx context.Context, event Event) error {
	return e.enqueue(ctx, &update{event: event, reply: make(chan error, 1)})
}

// ForceSet enqueues a force update (spec.md §6 force_set): the force flag
// is passed to the resource logic, which decides what it bypasses —
// StandardLogic honours it for force_free and mark_for_check only.
// Callers must have already checked manage.
func (e *Engine) ForceSet(ctx context.Context, kind EventKind, actor value.UserID) error {
	return e.enqueue(ctx, &update{event: Event{Kind: kind, Actor: actor}, force: true, reply: make(chan error, 1)})
}

// GiveBack enqueues a give_back event. It succeeds iff the current
// output status' holder equals actor (spec.md §4.4, invariant 8 in §8);
// StandardLogic enforces the ownership check.
func (e *Engine) GiveBack(ctx context.Context, actor value.UserID) error {
	return e.enqueue(ctx, &update{event: Event{Kind: EventGiveBack, Actor: actor}, force: true, reply: make(chan error, 1)})
}

// Subscribe returns a Subscription to the resource's output signal
// (spec.md §6 subscribe).
func (e *Engine) Subscribe() *signal.Subscription {
	return e.sig.Subscribe()
}

// GetCurrent returns the resource's current output Status (spec.md §6
// get_current), read from the output signal rather than e.current so it
// is safe to call from any goroutine.
func (e *Engine) GetCurrent() Status {
	st, ok := e.sig.Current()
	if !ok {
		return FreeStatus
	}
	status, err := DecodeStatus(st)
	if err != nil {
		return FreeStatus
	}
	return status
}

// Close shuts the engine down by closing its queue: Run still applies and
// replies to every update already enqueued, then returns.
func (e *Engine) Close() {
	close(e.queue)
}
