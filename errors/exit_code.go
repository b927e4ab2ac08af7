package errors

// exitCodeError wraps an error with a process exit code a CLI collaborator
// should use if the error reaches the top level. It round-trips through
// errors.As so attaching a code is independent of how many more errors get
// wrapped around it afterward.
type exitCodeError struct {
	cause error
	code  int
}

func (e *exitCodeError) Error() string { return e.cause.Error() }
func (e *exitCodeError) Unwrap() error { return e.cause }
func (e *exitCodeError) Cause() error  { return e.cause }

// WithExitCode attaches the exit code a CLI collaborator should surface if
// err propagates to the top level. Returns nil unchanged so call sites can
// compose freely: WithExitCode(doThing(), 2).
func WithExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &exitCodeError{cause: err, code: code}
}

// GetExitCode walks err's chain for the most recently attached exit code.
// Returns 0 if none was attached or err is nil.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec *exitCodeError
	if As(err, &ec) {
		return ec.code
	}
	return 0
}
