package utils

import (
	"github.com/pkg/errors"
)

// NewUnexpectedTypeErrorAt is used when the value called name has the wrong type.
func NewUnexpectedTypeErrorAt(name string, expected interface{}, actual interface{}) error {
	return errors.Errorf("%s: expected %T but got %T", name, expected, actual)
}
