// Package engineerr defines the tagged error kinds the sync and derivation
// engines, the store boundary, and the CLI surface share (spec.md §7).
// Every user-visible command failure is, ultimately, one of these kinds.
package engineerr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind tags the variant of a user-visible failure.
type Kind string

const (
	KindCliInput         Kind = "cli_input_error"
	KindStoreNotFound    Kind = "store_not_found"
	KindStoreExists      Kind = "store_already_exists"
	KindStoreIO          Kind = "store_io_error"
	KindStoreLock        Kind = "store_lock_error"
	KindStoreIndex       Kind = "store_index_error"
	KindSync             Kind = "sync_error"
	KindDerivation       Kind = "derivation_error"
	KindFilterEval       Kind = "filter_eval_error"
)

// Stage identifies which phase of per-event sync processing a SyncError
// came from.
type Stage string

const (
	StageSource Stage = "source"
	StageParse  Stage = "parse"
	StageFilter Stage = "filter"
	StageStore  Stage = "store"
)

// Error is the tagged error every engine boundary returns: a kind, a
// message, and an opaque wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Stage is set only for KindSync.
	Stage Stage
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// jsonError is the wire shape of Error per spec.md §6: a command's failure
// path emits `{error: {kind, message, cause?}}`.
type jsonError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// MarshalJSON renders the {kind, message, cause?} wire shape.
func (e *Error) MarshalJSON() ([]byte, error) {
	je := jsonError{Kind: e.Kind, Message: e.Message}
	if e.Cause != nil {
		je.Cause = e.Cause.Error()
	}
	return json.Marshal(je)
}

// New builds an Error of kind with message, wrapping cause (which may be
// nil).
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NewSync builds a SyncError for a specific pipeline stage.
func NewSync(stage Stage, message string, cause error) *Error {
	return &Error{Kind: KindSync, Stage: stage, Message: message, Cause: cause}
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
