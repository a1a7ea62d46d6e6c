// Package audit implements the Audit Log (spec.md §4.9): an append-only,
// line-delimited JSON record of every committed resource transition,
// written through a single-writer mutex with a monotonic-timestamp
// safeguard. It satisfies pkg/resource.Auditor structurally, with no
// dependency on pkg/resource itself.
package audit
