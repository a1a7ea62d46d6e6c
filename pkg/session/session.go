package session

import (
	"context"

	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/permparse"
	"github.com/cuemby/bffhd/pkg/resource"
	"github.com/cuemby/bffhd/pkg/userstore"
	"github.com/cuemby/bffhd/pkg/value"
)

// Capability is one of the five access levels spec.md §4.10 names.
type Capability string

const (
	CapabilityDisclose Capability = "disclose"
	CapabilityRead     Capability = "read"
	CapabilityWrite    Capability = "write"
	CapabilityManage   Capability = "manage"
	CapabilityAdmin    Capability = "admin"
)

// globalAdminPermission is tested for CapabilityAdmin, which has no
// per-resource privilege field (spec.md §4.10: "the global bffh.admin
// permission for admin").
const globalAdminPermission permparse.Permission = "bffh.admin"

// Session is the per-connection Capability Gate (spec.md §4.10). The
// zero value is not usable; construct with New or NewFromUser.
type Session struct {
	userID   value.UserID
	rules    []permparse.Rule
	registry *resource.Registry
}

// New builds a Session for userID with an already-resolved rule set
// (spec.md §4.10 "cached role-resolved permission rule set").
func New(userID value.UserID, rules []permparse.Rule, registry *resource.Registry) *Session {
	return &Session{userID: userID, rules: rules, registry: registry}
}

// NewFromUser resolves userID's permission rules once against users and
// caches them for the lifetime of the returned Session.
func NewFromUser(userID value.UserID, users *userstore.Store, registry *resource.Registry) (*Session, error) {
	rules, err := users.ResolveRules(string(userID))
	if err != nil {
		return nil, err
	}
	return New(userID, rules, registry), nil
}

// UserID returns the session's authenticated user.
func (s *Session) UserID() value.UserID { return s.userID }

func (s *Session) allows(perm permparse.Permission) bool {
	for _, r := range s.rules {
		if r.Matches(perm) {
			return true
		}
	}
	return false
}

// May reports whether the session holds capability on res (spec.md
// §4.10).
func (s *Session) May(res *resource.Resource, capability Capability) bool {
	switch capability {
	case CapabilityDisclose:
		return s.allows(res.Privileges.Disclose)
	case CapabilityRead:
		return s.allows(res.Privileges.Read)
	case CapabilityWrite:
		return s.allows(res.Privileges.Write)
	case CapabilityManage:
		return s.allows(res.Privileges.Manage)
	case CapabilityAdmin:
		return s.allows(globalAdminPermission)
	default:
		return false
	}
}

// ListVisibleResources returns every resource the session may disclose,
// plus any resource of which it is the current occupant or holder, even
// without disclose (spec.md §4.10).
func (s *Session) ListVisibleResources() []*resource.Resource {
	all := s.registry.All()
	visible := make([]*resource.Resource, 0, len(all))
	for _, res := range all {
		if s.May(res, CapabilityDisclose) || res.Engine.GetCurrent().Holder == s.userID {
			visible = append(visible, res)
		}
	}
	return visible
}

// ProposeUpdate checks write access on res before enqueuing event onto
// its Engine and awaiting the reply (spec.md §4.10).
func (s *Session) ProposeUpdate(ctx context.Context, res *resource.Resource, event resource.Event) error {
	if !s.May(res, CapabilityWrite) {
		return bffherr.ErrDenied
	}
	event.Actor = s.userID
	return res.Engine.Propose(ctx, event)
}
