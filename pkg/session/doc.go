// Package session implements the Session & Capability Gate (spec.md
// §4.10): a per-connection context carrying the authenticated user and
// a cached, role-resolved permission rule set, through which every
// resource access is mediated.
package session
