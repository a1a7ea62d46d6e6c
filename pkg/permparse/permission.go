// Package permparse implements permission strings and PermRules
// (spec.md §3, §4.3): dotted paths with a prefix partial order, and the
// Base/Children/Subtree rule grammar used by roles to grant permissions.
package permparse

import "strings"

// Permission is a dotted permission path, e.g. "bffh.manage.lab.door".
// Permissions have total equality and a partial order by path prefix: a
// longer path is "less than" (more specific than) its prefix.
type Permission string

func (p Permission) segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), ".")
}

// IsPrefixOf reports whether p is a strict, segment-aligned prefix of q —
// i.e. p > q in the original's partial order ("p is a proper ancestor of
// q"). Segments are compared pairwise; "bffh.perm" is a prefix of
// "bffh.perm.sub" but "bffh.per" is not a prefix of "bffh.perm".
func (p Permission) IsPrefixOf(q Permission) bool {
	ps, qs := p.segments(), q.segments()
	if len(ps) >= len(qs) {
		return false
	}
	for i, s := range ps {
		if qs[i] != s {
			return false
		}
	}
	return true
}

// Equal reports exact path equality.
func (p Permission) Equal(q Permission) bool { return p == q }
