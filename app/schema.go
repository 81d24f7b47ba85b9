package app

import (
	"reflect"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/walking"
)

var (
	durationType    = reflect.TypeOf(time.Duration(0))
	sideType        = reflect.TypeOf(robot.Left)
	kickVariantType = reflect.TypeOf(walking.KickForward)
)

// ParametersSchema describes the merged parameter document. Durations are strings such as
// "250ms" and unknown keys are rejected, matching how documents are decoded.
func ParametersSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		Mapper:         mapParameterType,
	}
	return r.Reflect(&Parameters{})
}

func mapParameterType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case durationType:
		return &jsonschema.Schema{
			Type:    "string",
			Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		}
	case sideType:
		return &jsonschema.Schema{Type: "string", Enum: []interface{}{robot.Left.String(), robot.Right.String()}}
	case kickVariantType:
		return &jsonschema.Schema{
			Type: "string",
			Enum: []interface{}{string(walking.KickForward), string(walking.KickTurn), string(walking.KickSide)},
		}
	default:
		return nil
	}
}
