package api

import "github.com/cuemby/bffhd/pkg/auth"

// Wire request/response shapes for the two interfaces spec.md §6 names.
// Field names are JSON-tagged rather than generated from a .proto file
// (see jsonCodec's doc comment), but otherwise mirror the RPC signatures
// in spec.md §6 one-to-one.

// ListMechanismsRequest carries no fields.
type ListMechanismsRequest struct{}

// ListMechanismsResponse is list_mechanisms() → ["PLAIN", "FABFIRE", …].
type ListMechanismsResponse struct {
	Mechanisms []string `json:"mechanisms"`
}

// AuthStepRequest is one message of the Authenticate stream. Mechanism is
// only meaningful on the first message a client sends (it selects which
// auth.Factory starts the session); Incoming carries step bytes on every
// message, including the first for mechanisms that send first.
type AuthStepRequest struct {
	Mechanism string `json:"mechanism,omitempty"`
	Incoming  []byte `json:"incoming,omitempty"`
}

// AuthStepResponse is Session.step()'s result, projected onto the wire.
// Token is set only on the message that carries State == "done".
type AuthStepResponse struct {
	State    string `json:"state"`
	Outgoing []byte `json:"outgoing,omitempty"`
	Token    string `json:"token,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func authStateString(s auth.State) string {
	switch s {
	case auth.StateRunning:
		return "running"
	case auth.StateDone:
		return "done"
	case auth.StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProposeRequest is propose(resource_id, desired_state).
type ProposeRequest struct {
	ResourceID string `json:"resource_id"`
	Kind       string `json:"kind"`
}

// ProposeResponse carries no fields; a non-nil gRPC error is the denial
// signal (bffherr.ToRPCStatus maps it to the collapsed §7 outcome set).
type ProposeResponse struct{}

// ForceSetRequest is force_set(resource_id, status, actor_user) —
// actor_user is taken from the caller's authenticated session, not the
// wire message, so a caller cannot force-set on another user's behalf.
type ForceSetRequest struct {
	ResourceID string `json:"resource_id"`
	Kind       string `json:"kind"`
}

type ForceSetResponse struct{}

// GiveBackRequest is give_back(resource_id, user); user is likewise the
// caller's own session identity.
type GiveBackRequest struct {
	ResourceID string `json:"resource_id"`
}

type GiveBackResponse struct{}

// GetCurrentRequest is get_current(resource_id) → state.
type GetCurrentRequest struct {
	ResourceID string `json:"resource_id"`
}

// GetCurrentResponse is the status-level projection of a resource's
// output state (spec.md §4.4's "status-level view").
type GetCurrentResponse struct {
	Kind   string `json:"kind"`
	Holder string `json:"holder,omitempty"`
}

// SubscribeRequest is subscribe(resource_id) → stream<state>.
type SubscribeRequest struct {
	ResourceID string `json:"resource_id"`
}

// StateUpdate is one message of the Subscribe stream.
type StateUpdate struct {
	Kind   string `json:"kind"`
	Holder string `json:"holder,omitempty"`
}
