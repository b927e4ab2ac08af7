package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder accumulates hints, structured context and an exit code onto a
// base error before it is returned to a caller. It is the one place in the
// codebase that should reach for cockroachdb/errors' hint/detail machinery
// directly; everything else should build errors through Build(...).
type ErrorBuilder struct {
	err      error
	hints    []string
	context  map[string]string
	exitCode *int
}

// Build starts a new ErrorBuilder around err. err may be nil, in which case
// every With* call is a no-op and Err() returns nil — this lets call sites
// chain unconditionally: `return Build(doThing()).WithHint(...).Err()`.
func Build(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithHint attaches a human-readable remediation hint.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hints = append(b.hints, hint)
	return b
}

// WithHintf attaches a formatted remediation hint.
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	return b.WithHint(fmt.Sprintf(format, args...))
}

// WithContext attaches a structured key/value pair that will be surfaced as
// a safe detail (included in crash reports, never assumed to be PII-free by
// callers, but deliberately not part of the message string).
func (b *ErrorBuilder) WithContext(key, value string) *ErrorBuilder {
	if b.context == nil {
		b.context = make(map[string]string)
	}
	b.context[key] = value
	return b
}

// WithExitCode records the process exit code a CLI collaborator should use
// if this error reaches the top level.
func (b *ErrorBuilder) WithExitCode(code int) *ErrorBuilder {
	b.exitCode = &code
	return b
}

// Err materializes the accumulated hints/context/exit code onto the
// underlying error and returns it. Returns nil if the builder was started
// from a nil error.
func (b *ErrorBuilder) Err() error {
	if b.err == nil {
		return nil
	}

	err := b.err
	for _, hint := range b.hints {
		err = errors.WithHint(err, hint)
	}

	if len(b.context) > 0 {
		keys := make([]string, 0, len(b.context))
		for k := range b.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, b.context[k]))
		}
		err = errors.WithSafeDetails(err, strings.Join(pairs, " "))
	}

	if b.exitCode != nil {
		err = WithExitCode(err, *b.exitCode)
	}

	return err
}

// GetAllHints returns every hint attached anywhere in err's chain, in
// attachment order.
func GetAllHints(err error) []string {
	return errors.GetAllHints(err)
}

// GetAllSafeDetails returns every safe detail string attached in err's
// chain.
func GetAllSafeDetails(err error) []string {
	var out []string
	for _, d := range errors.GetAllSafeDetails(err) {
		out = append(out, d.SafeDetails...)
	}
	return out
}
