// Package bffherr defines the error-kind taxonomy shared across bffhd,
// following the teacher's fmt.Errorf("...: %w", err) wrapping convention
// (pkg/storage, pkg/security) but adding a Kind so callers at the RPC
// boundary can collapse any error to one of a small set of outcomes.
package bffherr

import (
	"errors"
	"fmt"
)

// Kind is one of the error kinds from spec.md §7.
type Kind string

const (
	KindConfigInvalid      Kind = "config_invalid"
	KindStoreOpen          Kind = "store_open"
	KindStoreTxn           Kind = "store_txn"
	KindDenied             Kind = "denied"
	KindNotFound           Kind = "not_found"
	KindProtocol           Kind = "protocol"
	KindParse              Kind = "parse"
	KindClosed             Kind = "closed"
	KindTimeout            Kind = "timeout"
	KindActuatorFailure    Kind = "actuator_failure"
	KindAuditWriteFailure  Kind = "audit_write_failure"
	KindInconsistentStore  Kind = "inconsistent_store"
	KindInternal           Kind = "internal"
	KindBadRequest         Kind = "bad_request"
)

// Error is a tagged error carrying one of the Kind values above.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the error's kind.
func (e *Error) Kind() Kind { return e.kind }

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindInternal for plain
// errors that were never tagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	if err == nil {
		return ""
	}
	return KindInternal
}

var (
	// ErrDenied is returned by the session gate and resource engine when
	// the caller lacks the required permission.
	ErrDenied = New(KindDenied, "permission denied")
	// ErrClosed is returned when a queue or signal has been torn down.
	ErrClosed = New(KindClosed, "closed")
	// ErrNotFound is returned for unknown resources, users or roles.
	ErrNotFound = New(KindNotFound, "not found")
	// ErrTimeout is returned when a bounded wait (auth step, update
	// proposal) exceeds its deadline.
	ErrTimeout = New(KindTimeout, "timed out")
)

// RPCStatus is the collapsed outcome set at the RPC boundary (§7).
type RPCStatus string

const (
	StatusOk         RPCStatus = "ok"
	StatusDenied     RPCStatus = "denied"
	StatusNotFound   RPCStatus = "not_found"
	StatusBadRequest RPCStatus = "bad_request"
	StatusInternal   RPCStatus = "internal"
)

// ToRPCStatus collapses any error produced by the core into the small
// status set client code at the RPC boundary is expected to handle.
func ToRPCStatus(err error) RPCStatus {
	if err == nil {
		return StatusOk
	}
	switch KindOf(err) {
	case KindDenied:
		return StatusDenied
	case KindNotFound:
		return StatusNotFound
	case KindParse, KindBadRequest, KindConfigInvalid:
		return StatusBadRequest
	default:
		return StatusInternal
	}
}
