package cycler

import (
	"time"

	"github.com/pkg/errors"

	"github.com/naosoccer/stack/utils"
)

// TimedOutput is one output of a perception cycler. Timestamp is when its tick was finalized,
// or the start of the first consuming tick that saw it still pending, whichever came first.
type TimedOutput[T any] struct {
	Timestamp time.Time
	Value     T
}

// PerceptionOutputs collects the main output named output from the queued databases of a
// perception cycler, oldest first. input is the name the queue was provided under.
func PerceptionOutputs[T any](ctx *Context, input, output string) ([]TimedOutput[T], error) {
	queued, err := Input[Queued[Database]](ctx, input)
	if err != nil {
		return nil, err
	}
	var zero T
	result := make([]TimedOutput[T], 0, len(queued.Items))
	for _, item := range queued.Items {
		value, ok := item.Data.Main[output]
		if !ok {
			return nil, errors.Errorf("%s has no output %q", input, output)
		}
		typed, ok := value.(T)
		if !ok {
			return nil, utils.NewUnexpectedTypeErrorAt(input+"."+output, zero, value)
		}
		result = append(result, TimedOutput[T]{Timestamp: item.Timestamp, Value: typed})
	}
	return result, nil
}

// PendingSince returns the timestamp of the oldest perception result still in progress under
// input, false if nothing is pending.
func PendingSince(ctx *Context, input string) (time.Time, bool, error) {
	queued, err := Input[Queued[Database]](ctx, input)
	if err != nil || queued.Pending == nil {
		return time.Time{}, false, err
	}
	return *queued.Pending, true, nil
}

// Latest returns the most recent value of outputs.
func Latest[T any](outputs []TimedOutput[T]) (T, bool) {
	if len(outputs) == 0 {
		var zero T
		return zero, false
	}
	return outputs[len(outputs)-1].Value, true
}
