package pool

import "errors"

// ErrClosed is returned by Acquire after Shutdown.
var ErrClosed = errors.New("pool: policy is shut down")

// SetupError reports a failure to construct a handle: dialing, or loading
// the credentials attached to it. Outcomes carrying a SetupError are
// classified as setup failures rather than transport failures.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return "setup: " + e.Op + ": " + e.Err.Error()
}

func (e *SetupError) Unwrap() error {
	return e.Err
}
