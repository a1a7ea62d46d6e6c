package resource

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cuemby/bffhd/pkg/permparse"
	"github.com/cuemby/bffhd/pkg/signal"
	"github.com/cuemby/bffhd/pkg/store"
)

// Privileges is the four-permission bundle controlling visibility,
// state-read, state-update, and force-override for one resource
// (spec.md §3).
type Privileges struct {
	Disclose permparse.Permission
	Read     permparse.Permission
	Write    permparse.Permission
	Manage   permparse.Permission
}

// Resource is a single managed entity's catalogue entry plus its live
// Engine (spec.md §3).
type Resource struct {
	ID          string
	UUID        uuid.UUID
	NumericID   uint64
	Name        string
	Description string
	Wiki        string
	Category    string
	Privileges  Privileges

	Engine *Engine
}

// Registry holds every declared Resource for the process lifetime
// (spec.md §3 "Lifecycle": "Resources are defined declaratively at
// startup from a machine catalogue").
type Registry struct {
	byID map[string]*Resource
}

// NewRegistry builds an empty Registry. It starts no goroutines: the
// caller runs each added resource's Engine.Run.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Resource)}
}

// Add registers a Resource, constructing and loading its Engine. numericID
// must be stable across restarts — it is the store key (spec.md §4.2).
func (r *Registry) Add(id string, numericID uint64, name string, priv Privileges, st *store.Store, auditor Auditor, logic Logic) (*Resource, error) {
	if _, exists := r.byID[id]; exists {
		return nil, fmt.Errorf("resource: duplicate resource id %q", id)
	}

	res := &Resource{
		ID:         id,
		UUID:       uuid.New(),
		NumericID:  numericID,
		Name:       name,
		Privileges: priv,
	}
	res.Engine = NewEngine(numericID, id, st, signal.New(), auditor, logic)
	if err := res.Engine.Load(); err != nil {
		return nil, fmt.Errorf("resource: loading %q: %w", id, err)
	}

	r.byID[id] = res
	return res, nil
}

// Get returns the resource registered under id.
func (r *Registry) Get(id string) (*Resource, bool) {
	res, ok := r.byID[id]
	return res, ok
}

// All returns every registered resource, in no particular order.
func (r *Registry) All() []*Resource {
	out := make([]*Resource, 0, len(r.byID))
	for _, res := range r.byID {
		out = append(out, res)
	}
	return out
}
