package cycler

import (
	"time"

	"github.com/naosoccer/stack/logging"
)

// Step is the result of running a single node with RunNode.
type Step struct {
	Main       map[string]any
	Additional map[string]any
}

// RunNode runs one cycle of node outside of a cycler, e.g. to replay recorded inputs. inputs
// provides every input by name. Only subscribed additional outputs are collected. Main outputs
// are returned only when the node succeeds.
func RunNode(
	node Node,
	cycle uint64,
	start time.Time,
	inputs map[string]any,
	subscribed []string,
	logger logging.Logger,
) (Step, error) {
	subscriptions := make(map[string]bool, len(subscribed))
	for _, path := range subscribed {
		subscriptions[path] = true
	}
	ctx := &Context{
		cycle:      cycle,
		start:      start,
		node:       node,
		initial:    node.InitialOutputs(),
		logger:     logger.Sublogger(node.Name()),
		inputs:     inputs,
		main:       map[string]any{},
		subscribed: subscriptions,
		additional: map[string]any{},
		pending:    map[string]any{},
	}
	if err := node.Cycle(ctx); err != nil {
		return Step{Additional: ctx.additional}, err
	}
	return Step{Main: ctx.pending, Additional: ctx.additional}, nil
}
