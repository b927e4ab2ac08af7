// Package errors defines Garden's error taxonomy: sentinel errors for each
// failure kind in the Config→Graph→Solver pipeline, plus a small builder for
// attaching hints, structured context and exit codes on top of
// github.com/cockroachdb/errors.
package errors

import "github.com/cockroachdb/errors"

// Sentinel errors for the taxonomy in SPEC_FULL.md §7. Wrap one of these
// with errors.Mark or return it directly so callers can classify failures
// with errors.Is regardless of how much context has been attached.
var (
	// ErrConfiguration marks an invalid configuration document or schema
	// violation. Fatal at load time.
	ErrConfiguration = errors.New("configuration error")

	// ErrTemplate marks a template parse or evaluation failure. Fatal for
	// the owning task only.
	ErrTemplate = errors.New("template error")

	// ErrValidation marks a graph invariant violation (cycle, bad
	// reference, kind mismatch). Fatal pre-execution.
	ErrValidation = errors.New("validation error")

	// ErrPlugin marks a plugin handler failure. Fails the owning task;
	// dependants are cancelled under the abort policy.
	ErrPlugin = errors.New("plugin error")

	// ErrTimeout marks a task that exceeded its effective deadline.
	ErrTimeout = errors.New("timeout error")

	// ErrCancelled marks a task cancelled by a peer failure or user
	// signal. Not surfaced to the user as a failure.
	ErrCancelled = errors.New("cancelled")

	// ErrInternal marks an unexpected core invariant violation.
	ErrInternal = errors.New("internal error")

	// ErrMerge marks a failure while merging layered configuration.
	ErrMerge = errors.New("merge error")

	// ErrCycle marks a dependency cycle detected during graph validation.
	ErrCycle = errors.New("circular dependency")
)

// Is reports whether err is in the chain of (or marked as) target, using
// cockroachdb/errors so marks survive gob/JSON round trips through task
// results.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target's type, in the
// same style as the standard library's errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap wraps err with a message, preserving the error chain.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}

// Mark associates err with the taxonomy sentinel reference so errors.Is
// matches it even though the message differs.
func Mark(err error, reference error) error {
	return errors.Mark(err, reference)
}

// New constructs a plain error, re-exported so callers need not import
// cockroachdb/errors directly.
func New(msg string) error {
	return errors.New(msg)
}

// Newf constructs a formatted error.
func Newf(format string, args ...any) error {
	return errors.Newf(format, args...)
}
