package resource

import (
	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/value"
)

// EventKind is one of the state-transition events a resource can receive
// (spec.md §4.4's transition table, plus the supplemented mark-for-check
// transition).
type EventKind string

const (
	EventUse          EventKind = "use"
	EventReserve      EventKind = "reserve"
	EventGiveBack     EventKind = "give_back"
	EventForceFree    EventKind = "force_free"
	EventBlock        EventKind = "block"
	EventDisable      EventKind = "disable"
	EventMarkForCheck EventKind = "mark_for_check"
)

// Event is the desired/input State a caller proposes to a resource,
// decoded to the level the status-transition table operates on.
type Event struct {
	Kind  EventKind
	Actor value.UserID
}

// Encode builds the canonical input State for an Event.
func (e Event) Encode() value.State {
	b := value.NewBuilder()
	b.Add(value.OIDString, value.String(e.Kind))
	if e.Actor != "" {
		b.Add(value.OIDUserID, e.Actor)
	}
	return b.Finish()
}

// DecodeEvent recovers an Event from a State built by Event.Encode.
func DecodeEvent(st value.State) (Event, error) {
	s, err := DecodeStatus(st) // same two-field shape, reused decoder
	if err != nil {
		return Event{}, err
	}
	return Event{Kind: EventKind(s.Kind), Actor: s.Holder}, nil
}

// Logic is the pluggable resource-logic callback invoked by the Resource
// Engine on every update (spec.md §4.4). force is true for engine-
// generated force_set/force_free/give_back updates, which by convention
// bypass the logic's own veto — StandardLogic honours this by routing
// force_free unconditionally to Free regardless of the current status and
// by accepting mark_for_check; every other event is checked against its
// transition table whatever the flag.
type Logic interface {
	Apply(current Status, event Event, force bool) (Status, error)
}

// IdentityLogic is the identity resource logic (spec.md §4.4): the
// desired state becomes the realised state unchanged. NewEngine does not
// select it by default — a nil logic selects StandardLogic — so it is in
// effect only where it is passed explicitly.
type IdentityLogic struct{}

func (IdentityLogic) Apply(_ Status, event Event, _ bool) (Status, error) {
	return Status{Kind: StatusKind(event.Kind), Holder: event.Actor}, nil
}

// StandardLogic implements the status-transition table from spec.md
// §4.4 — the logic used by ordinary machines (laser cutters, 3D
// printers, and the like): a single occupant status with use/reserve/
// give_back/block/disable events, force_free as an escape hatch to Free
// from any status (force updates only), and the supplemented
// mark_for_check transition from Free or InUse (force updates only).
type StandardLogic struct{}

func (StandardLogic) Apply(current Status, event Event, force bool) (Status, error) {
	if event.Kind == EventForceFree {
		if !force {
			return Status{}, bffherr.ErrDenied
		}
		return Status{Kind: StatusFree}, nil
	}

	switch current.Kind {
	case StatusFree:
		switch event.Kind {
		case EventUse:
			return Status{Kind: StatusInUse, Holder: event.Actor}, nil
		case EventReserve:
			return Status{Kind: StatusReserved, Holder: event.Actor}, nil
		case EventBlock:
			return Status{Kind: StatusBlocked, Holder: event.Actor}, nil
		case EventDisable:
			return Status{Kind: StatusDisabled}, nil
		case EventMarkForCheck:
			if !force {
				return Status{}, bffherr.ErrDenied
			}
			return Status{Kind: StatusToCheck, Holder: event.Actor}, nil
		default:
			return Status{}, bffherr.ErrDenied
		}

	case StatusInUse:
		switch event.Kind {
		case EventUse:
			if current.Holder == event.Actor {
				return Status{Kind: StatusInUse, Holder: event.Actor}, nil
			}
			return Status{}, bffherr.ErrDenied
		case EventGiveBack:
			if current.Holder == event.Actor {
				return Status{Kind: StatusFree}, nil
			}
			return Status{}, bffherr.ErrDenied
		case EventBlock:
			return Status{Kind: StatusBlocked, Holder: event.Actor}, nil
		case EventDisable:
			return Status{Kind: StatusDisabled}, nil
		case EventMarkForCheck:
			if !force {
				return Status{}, bffherr.ErrDenied
			}
			return Status{Kind: StatusToCheck, Holder: event.Actor}, nil
		default:
			return Status{}, bffherr.ErrDenied
		}

	case StatusReserved:
		switch event.Kind {
		case EventUse:
			if current.Holder == event.Actor {
				return Status{Kind: StatusInUse, Holder: event.Actor}, nil
			}
			return Status{}, bffherr.ErrDenied
		case EventBlock:
			return Status{Kind: StatusBlocked, Holder: event.Actor}, nil
		case EventDisable:
			return Status{Kind: StatusDisabled}, nil
		default:
			return Status{}, bffherr.ErrDenied
		}

	case StatusBlocked, StatusToCheck:
		switch event.Kind {
		case EventDisable:
			return Status{Kind: StatusDisabled}, nil
		default:
			return Status{}, bffherr.ErrDenied
		}

	case StatusDisabled:
		return Status{}, bffherr.ErrDenied

	default:
		return Status{}, bffherr.ErrDenied
	}
}
