package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when the contract does not exist.
var ErrNotFound = errors.New("contract not found")

// ErrConflict is returned when a write carried a stale version. The caller
// should reload the contract and retry.
var ErrConflict = errors.New("contract was modified concurrently, reload and retry")

// WorkflowError reports an illegal state transition. The message names the
// missing precondition and is surfaced to the user verbatim; it is never
// retried automatically.
type WorkflowError struct {
	Reason string
}

func (e *WorkflowError) Error() string { return e.Reason }

// ValidationError reports required fields left incomplete at finalize.
// It enumerates the missing field labels; no partial commit occurs.
type ValidationError struct {
	MissingLabels []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("required fields incomplete: %s", strings.Join(e.MissingLabels, ", "))
}

// FieldLockedError reports an attempt to mutate a field that has already
// been signed. Signed fields are write-once.
type FieldLockedError struct {
	FieldID string
}

func (e *FieldLockedError) Error() string {
	return fmt.Sprintf("field %s is signed and can no longer be changed", e.FieldID)
}
