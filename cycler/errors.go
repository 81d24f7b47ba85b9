package cycler

import (
	"github.com/pkg/errors"
)

// ErrAlreadyStarted is returned when a cycler is started a second time.
var ErrAlreadyStarted = errors.New("cycler already started")

// NewMissingProducerError is returned when no node and no external input provides an input.
func NewMissingProducerError(node, input string) error {
	return errors.Errorf("node %q reads %q which no node produces", node, input)
}

// UnknownPathError rejects a subscription to a path that does not exist.
type UnknownPathError struct {
	Path   string
	Reason string
}

func (e *UnknownPathError) Error() string {
	return "unknown path " + e.Path + ": " + e.Reason
}

// NewUnknownPathError returns an UnknownPathError.
func NewUnknownPathError(path, reason string) error {
	return &UnknownPathError{Path: path, Reason: reason}
}

// NewUnknownOutputError is returned when a node writes an output it did not declare.
func NewUnknownOutputError(node, output string) error {
	return errors.Errorf("node %q wrote undeclared output %q", node, output)
}

// NewOutputTypeError is returned when a node writes a value of another type than the initial one.
func NewOutputTypeError(node, output string, expected, actual interface{}) error {
	return errors.Errorf("node %q wrote %T to output %q of type %T", node, actual, output, expected)
}

// ErrPersistentHardware marks node errors after which the cycler cannot continue, like an
// actuator that keeps refusing writes.
var ErrPersistentHardware = errors.New("persistent hardware error")

type persistentHardwareError struct {
	cause error
}

func (e *persistentHardwareError) Error() string { return e.cause.Error() }

func (e *persistentHardwareError) Unwrap() error { return e.cause }

func (e *persistentHardwareError) Is(target error) bool { return target == ErrPersistentHardware }

// NewPersistentHardwareError wraps err so that a node returning it ends the cycler.
func NewPersistentHardwareError(err error) error {
	return &persistentHardwareError{cause: err}
}
