// Package auth implements the Authentication Session (spec.md §4.8): a
// generic SASL-style state machine plus two mechanisms, PLAIN and the
// FABACCESS smart-card challenge/response protocol ("FABFIRE").
package auth
