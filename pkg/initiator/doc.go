// Package initiator implements the Initiator Driver (spec.md §4.6): a
// long-lived task that wraps one external event source (a card reader,
// a button, a timer) and turns its events into guarded update proposals
// on whichever resource it is currently bound to.
package initiator
