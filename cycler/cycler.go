package cycler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/naosoccer/stack/framework"
	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/utils"
)

// Kind distinguishes how a cycler is paced and how its outputs are consumed.
type Kind int

const (
	// RealTime cyclers tick whenever new sensor data arrives.
	RealTime Kind = iota
	// Perception cyclers tick on external inputs and queue their outputs for real time cyclers.
	Perception
)

func (k Kind) String() string {
	if k == Perception {
		return "perception"
	}
	return "real_time"
}

// Source blocks until the next tick may start and returns the inputs it received.
type Source interface {
	Wait(ctx context.Context) (map[string]any, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (map[string]any, error)

// Wait implements Source.
func (f SourceFunc) Wait(ctx context.Context) (map[string]any, error) {
	return f(ctx)
}

// InputFunc provides an input at the start of a tick. release, if not nil, is called when the
// tick is done.
type InputFunc func(now time.Time) (value any, release func())

// ReaderInput exposes the latest snapshot of a multi buffer.
func ReaderInput[T any](reader *framework.Reader[T]) InputFunc {
	return func(time.Time) (any, func()) {
		slot := reader.Next()
		return *slot.Value(), slot.Release
	}
}

// Queued is what a future queue provides to one tick.
type Queued[T any] struct {
	Items []framework.Item[T]
	// Pending is the timestamp of the oldest result still being computed, nil if there is none.
	Pending *time.Time
}

// QueueInput exposes the items of a future queue that belong to the tick as a Queued value.
func QueueInput[T any](consumer *framework.Consumer[T]) InputFunc {
	return func(now time.Time) (any, func()) {
		items, pending := consumer.Consume(now)
		return Queued[T]{Items: items, Pending: pending}, nil
	}
}

// Option configures a Cycler.
type Option func(*Cycler)

// WithClock replaces the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Cycler) {
		c.clk = clk
	}
}

// WithInput provides an input to the nodes every tick.
func WithInput(name string, input InputFunc) Option {
	return func(c *Cycler) {
		c.inputs[name] = input
	}
}

// WithSourceInputs declares the inputs the source returns.
func WithSourceInputs(names ...string) Option {
	return func(c *Cycler) {
		c.sourceInputs = append(c.sourceInputs, names...)
	}
}

// WithOutputReaders allocates readers of the published database for other cyclers.
func WithOutputReaders(count int) Option {
	return func(c *Cycler) {
		c.readerCount = count
	}
}

// WithProducer makes a perception cycler queue its outputs.
func WithProducer(producer *framework.Producer[Database]) Option {
	return func(c *Cycler) {
		c.producer = producer
	}
}

// WithBudget logs ticks that take longer than budget.
func WithBudget(budget time.Duration) Option {
	return func(c *Cycler) {
		c.budget = budget
	}
}

// Cycler runs its nodes once per tick in dependency order.
type Cycler struct {
	name   string
	kind   Kind
	logger logging.Logger
	clk    clock.Clock
	source Source
	nodes  []Node

	initial      map[string]map[string]any
	additional   []string
	inputs       map[string]InputFunc
	sourceInputs []string
	readerCount  int
	producer     *framework.Producer[Database]
	budget       time.Duration
	slowLogger   *utils.ThrottledLogger

	writer            *framework.Writer[Database]
	readers           []*framework.Reader[Database]
	subscribedWriter  *framework.Writer[map[string]bool]
	subscribedReader  *framework.Reader[map[string]bool]
	statisticsRecords cycleRecorder
	instance          *Instance

	mu      sync.Mutex
	started bool
	cycle   uint64
	last    time.Time
}

// New builds a cycler. It fails if the nodes do not form a graph without cycles or read inputs
// nobody provides.
func New(name string, kind Kind, source Source, nodes []Node, logger logging.Logger, opts ...Option) (*Cycler, error) {
	c := &Cycler{
		name:    name,
		kind:    kind,
		logger:  logger,
		clk:     clock.New(),
		source:  source,
		initial: map[string]map[string]any{},
		inputs:  map[string]InputFunc{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if kind == Perception && c.producer == nil {
		return nil, errors.Errorf("perception cycler %q needs a producer", name)
	}

	external := append(lo.Keys(c.inputs), c.sourceInputs...)
	graph, err := BuildGraph(nodes, external)
	if err != nil {
		return nil, errors.Wrapf(err, "cycler %q", name)
	}
	c.nodes = graph.TopologicalSort()

	main := map[string]any{}
	for _, node := range c.nodes {
		initial := node.InitialOutputs()
		for _, output := range node.Outputs() {
			value, ok := initial[output]
			if !ok || value == nil {
				return nil, errors.Errorf("cycler %q: node %q has no initial value for %q", name, node.Name(), output)
			}
			main[output] = value
		}
		c.initial[node.Name()] = initial
		if declarer, ok := node.(AdditionalOutputsDeclarer); ok {
			c.additional = append(c.additional, declarer.AdditionalOutputs()...)
		}
	}
	c.additional = lo.Uniq(c.additional)

	// one extra reader for the communication server
	c.writer, c.readers = framework.NewMultiBufferWithCopy(
		Database{Main: main, Additional: map[string]any{}}, c.readerCount+1, Database.Clone)
	writers, subscribedReaders := framework.NewMultiBuffer(map[string]bool{}, 1)
	c.subscribedWriter, c.subscribedReader = writers, subscribedReaders[0]
	c.slowLogger = utils.NewThrottledLogger(logger, c.clk, 5*time.Second)
	c.instance = newInstance(name, c.writer.Changed(), c.readers[0], c.subscribedWriter, c.additional)
	return c, nil
}

// Name is the instance name of the cycler.
func (c *Cycler) Name() string {
	return c.name
}

// Nodes returns the nodes in execution order.
func (c *Cycler) Nodes() []Node {
	return c.nodes
}

// OutputReaders are the readers requested with WithOutputReaders.
func (c *Cycler) OutputReaders() []*framework.Reader[Database] {
	return c.readers[1:]
}

// Statistics summarizes recent tick durations.
func (c *Cycler) Statistics() CycleStatistics {
	return c.statisticsRecords.statistics()
}

// Instance returns the handle the communication server uses to observe the cycler.
func (c *Cycler) Instance() *Instance {
	return c.instance
}

// Start spawns the cycler loop. The loop ends when ctx is cancelled, with a persistent hardware
// error of the source or of a node, or with a panic of a node.
func (c *Cycler) Start(ctx context.Context) (*utils.JoinHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil, ErrAlreadyStarted
	}
	c.started = true
	return utils.Spawn(c.name, func() error {
		defer c.writer.Close()
		for ctx.Err() == nil {
			if err := c.tick(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
		return nil
	}), nil
}

// wait fetches the source inputs. A transient error is retried once, a second one skips the tick.
func (c *Cycler) wait(ctx context.Context) (map[string]any, bool, error) {
	inputs, err := c.source.Wait(ctx)
	if err == nil {
		return inputs, true, nil
	}
	if ctx.Err() != nil || !robot.IsTransient(err) {
		return nil, false, err
	}
	c.logger.Debugw("retrying transient source error", "error", err)
	inputs, err = c.source.Wait(ctx)
	if err == nil {
		return inputs, true, nil
	}
	if ctx.Err() != nil || !robot.IsTransient(err) {
		return nil, false, err
	}
	c.logger.Warnw("skipping tick after repeated transient error", "error", err)
	c.statisticsRecords.skip()
	return nil, false, nil
}

func (c *Cycler) tick(ctx context.Context) error {
	sourceInputs, ok, err := c.wait(ctx)
	if err != nil {
		return errors.Wrapf(err, "cycler %q", c.name)
	}
	if !ok {
		return nil
	}

	start := c.clk.Now()
	if start.Before(c.last) {
		start = c.last
	}
	c.last = start
	c.cycle++
	if c.producer != nil {
		c.producer.Announce()
	}

	inputs := make(map[string]any, len(sourceInputs)+len(c.inputs))
	for name, value := range sourceInputs {
		inputs[name] = value
	}
	var releases []func()
	for name, input := range c.inputs {
		value, release := input(start)
		inputs[name] = value
		if release != nil {
			releases = append(releases, release)
		}
	}
	defer func() {
		for _, release := range releases {
			release()
		}
	}()

	subscribedSlot := c.subscribedReader.Next()
	subscribed := *subscribedSlot.Value()
	defer subscribedSlot.Release()

	slot := c.writer.Next()
	db := slot.Value()
	db.Additional = map[string]any{}
	for _, node := range c.nodes {
		if ctx.Err() != nil {
			slot.Discard()
			c.abandon()
			return ctx.Err()
		}
		nodeContext := &Context{
			cycle:      c.cycle,
			start:      start,
			node:       node,
			initial:    c.initial[node.Name()],
			logger:     c.logger.Sublogger(node.Name()),
			inputs:     inputs,
			main:       db.Main,
			subscribed: subscribed,
			additional: db.Additional,
			pending:    map[string]any{},
		}
		if err := node.Cycle(nodeContext); err != nil {
			if errors.Is(err, ErrPersistentHardware) {
				slot.Discard()
				c.abandon()
				return errors.Wrapf(err, "cycler %q node %q", c.name, node.Name())
			}
			// the previous values of the outputs stay
			c.logger.Warnw("node failed", "node", node.Name(), "cycle", c.cycle, "error", err)
			continue
		}
		for name, value := range nodeContext.pending {
			db.Main[name] = value
		}
	}
	published := db.Clone()

	duration := c.clk.Since(start)
	c.statisticsRecords.record(duration)
	if c.budget > 0 && duration > c.budget {
		c.slowLogger.Warnw("cycle exceeded budget", "cycle", c.cycle, "duration", duration, "budget", c.budget)
	}
	if err := slot.Publish(); err != nil {
		c.abandon()
		return err
	}
	if c.producer != nil {
		if err := c.producer.Finalize(published); err != nil {
			c.logger.Warnw("cannot finalize queued outputs", "error", err)
		}
	}
	return nil
}

func (c *Cycler) abandon() {
	if c.producer == nil {
		return
	}
	if err := c.producer.Abandon(); err != nil {
		c.logger.Debugw("nothing to abandon", "error", err)
	}
}
