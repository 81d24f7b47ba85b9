package robot

import "github.com/pkg/errors"

// ErrTransient marks hardware failures that may succeed when retried, like a dropped frame.
var ErrTransient = errors.New("transient hardware error")

// NewTransientError wraps err so that IsTransient reports true for it.
func NewTransientError(err error) error {
	return &transientError{cause: err}
}

type transientError struct {
	cause error
}

func (e *transientError) Error() string {
	return "transient: " + e.cause.Error()
}

func (e *transientError) Unwrap() error { return e.cause }

func (e *transientError) Is(target error) bool { return target == ErrTransient }

// IsTransient reports whether err or one of its causes is transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
