// Package cycler runs nodes in a fixed order once per tick and publishes their outputs as a
// database snapshot.
package cycler

import (
	"maps"
	"reflect"
	"time"

	"github.com/pkg/errors"

	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/utils"
)

// Node is one step of a cycler. Inputs name main outputs of other nodes of the same cycler or
// external inputs of the cycler. Outputs name the main outputs this node writes.
type Node interface {
	Name() string
	Inputs() []string
	Outputs() []string
	// InitialOutputs holds a value for every output. Written values must have the same type.
	InitialOutputs() map[string]any
	Cycle(ctx *Context) error
}

// AdditionalOutputsDeclarer is implemented by nodes that write additional outputs.
type AdditionalOutputsDeclarer interface {
	AdditionalOutputs() []string
}

// Database is the published state of a cycler after one tick.
type Database struct {
	Main       map[string]any `json:"main_outputs"`
	Additional map[string]any `json:"additional_outputs"`
}

// Clone copies the maps. The values are shared and must not be mutated after publishing.
func (db Database) Clone() Database {
	return Database{Main: maps.Clone(db.Main), Additional: maps.Clone(db.Additional)}
}

// Context gives a node access to its inputs and collects its outputs.
type Context struct {
	cycle      uint64
	start      time.Time
	node       Node
	initial    map[string]any
	logger     logging.Logger
	inputs     map[string]any
	main       map[string]any
	subscribed map[string]bool
	additional map[string]any
	pending    map[string]any
}

// Cycle is the number of the tick, starting at 1.
func (c *Context) Cycle() uint64 {
	return c.cycle
}

// StartTime is the time the tick started at.
func (c *Context) StartTime() time.Time {
	return c.start
}

// Logger is the logger of the running node.
func (c *Context) Logger() logging.Logger {
	return c.logger
}

// Value returns an input by name. Main outputs written earlier in this tick win over external
// inputs.
func (c *Context) Value(name string) (any, bool) {
	if value, ok := c.main[name]; ok {
		return value, true
	}
	value, ok := c.inputs[name]
	return value, ok
}

// Input returns the input name as a T.
func Input[T any](c *Context, name string) (T, error) {
	var zero T
	value, ok := c.Value(name)
	if !ok {
		return zero, errors.Errorf("input %q is not available", name)
	}
	typed, ok := value.(T)
	if !ok {
		return zero, utils.NewUnexpectedTypeErrorAt("input "+name, zero, value)
	}
	return typed, nil
}

// Write sets a main output. It takes effect when the node returns without error.
func (c *Context) Write(name string, value any) error {
	initial, ok := c.initial[name]
	if !ok {
		return NewUnknownOutputError(c.node.Name(), name)
	}
	if reflect.TypeOf(initial) != reflect.TypeOf(value) {
		return NewOutputTypeError(c.node.Name(), name, initial, value)
	}
	c.pending[name] = value
	return nil
}

// AdditionalOutputRequested reports whether somebody subscribed to the additional output path.
func (c *Context) AdditionalOutputRequested(path string) bool {
	return c.subscribed[path]
}

// WriteAdditionalOutput sets an additional output. Unrequested outputs are dropped.
func (c *Context) WriteAdditionalOutput(path string, value any) {
	if c.subscribed[path] {
		c.additional[path] = value
	}
}
