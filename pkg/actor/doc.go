// Package actor implements the Actor Driver (spec.md §4.7): a long-lived
// task subscribed to one resource's output signal that invokes an
// external effect for every observed state change, skipping intermediate
// states if they arrive faster than the effect can be applied.
package actor
