package resource

import (
	"fmt"

	"github.com/cuemby/bffhd/pkg/value"
)

// StatusKind is the canonical projection of a resource's output State
// used by external interfaces (spec.md §3).
type StatusKind string

const (
	StatusFree     StatusKind = "free"
	StatusInUse    StatusKind = "in_use"
	StatusReserved StatusKind = "reserved"
	// StatusToCheck supplements the status projection beyond spec.md's
	// table (spec.md §3 already names it; §4.4's table does not give it
	// a transition — see EventMarkForCheck in logic.go).
	StatusToCheck  StatusKind = "to_check"
	StatusBlocked  StatusKind = "blocked"
	StatusDisabled StatusKind = "disabled"
)

// Status is a resource's output State, decoded to the status-level view
// (spec.md §4.4: "status-level view, informational — underlying State
// carries more"). Free/Disabled carry no Holder.
type Status struct {
	Kind   StatusKind
	Holder value.UserID
}

// Encode builds the canonical output State for a Status: a String entry
// for the status name and, when present, a UserID entry for the holder.
func (s Status) Encode() value.State {
	b := value.NewBuilder()
	b.Add(value.OIDString, value.String(s.Kind))
	if s.Holder != "" {
		b.Add(value.OIDUserID, s.Holder)
	}
	return b.Finish()
}

// DecodeStatus recovers a Status from a State built by Status.Encode.
func DecodeStatus(st value.State) (Status, error) {
	v, ok := st.Get(value.OIDString)
	if !ok {
		return Status{}, fmt.Errorf("resource: status: missing status string entry")
	}
	kind, ok := v.(value.String)
	if !ok {
		return Status{}, fmt.Errorf("resource: status: status entry has wrong type")
	}
	var holder value.UserID
	if hv, ok := st.Get(value.OIDUserID); ok {
		holder, ok = hv.(value.UserID)
		if !ok {
			return Status{}, fmt.Errorf("resource: status: holder entry has wrong type")
		}
	}
	return Status{Kind: StatusKind(kind), Holder: holder}, nil
}

// FreeStatus is the canonical "free" State a resource starts in when it
// has no persisted State on startup (spec.md §3 "Lifecycle").
var FreeStatus = Status{Kind: StatusFree}
