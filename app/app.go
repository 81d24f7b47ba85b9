// Package app assembles the cyclers of a robot, connects them through multi buffers and future
// queues, and exposes them to the communication server.
package app

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/naosoccer/stack/communication"
	"github.com/naosoccer/stack/config"
	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/framework"
	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/nodes/audio"
	"github.com/naosoccer/stack/nodes/control"
	"github.com/naosoccer/stack/nodes/network"
	"github.com/naosoccer/stack/nodes/vision"
	"github.com/naosoccer/stack/robot"
)

// Names of the cycler instances.
const (
	ControlCycler      = "Control"
	VisionTopCycler    = "VisionTop"
	VisionBottomCycler = "VisionBottom"
	AudioCycler        = "Audio"
	SplNetworkCycler   = "SplNetwork"
)

// ControlBudget is the time a control tick may take before it is reported as slow.
const ControlBudget = 12 * time.Millisecond

// one per cycler that reads parameters
const parameterReaders = 4

// Option configures a Runtime.
type Option func(*options)

type options struct {
	clk           clock.Clock
	listenAddress string
	watchRoot     string
}

// WithClock drives the cyclers, the future queues and the server from clk.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clk = clk
	}
}

// WithListenAddress serves the communication endpoint on address.
func WithListenAddress(address string) Option {
	return func(o *options) {
		o.listenAddress = address
	}
}

// WithParameterWatcher reloads the parameters when the files below root change.
func WithParameterWatcher(root string) Option {
	return func(o *options) {
		o.watchRoot = root
	}
}

// Runtime owns the cyclers of one robot.
type Runtime struct {
	hardware robot.HardwareInterface
	logger   logging.Logger
	opts     options

	store    *config.Store[Parameters]
	registry *cycler.Registry
	server   *communication.Server
	cyclers  []*cycler.Cycler
}

// New builds every cycler of the robot. document is the merged parameter document.
func New(hardware robot.HardwareInterface, document map[string]any, logger logging.Logger, opts ...Option) (*Runtime, error) {
	o := options{clk: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}

	store, parameters, err := config.NewStore[Parameters](document, parameterReaders, logger.Sublogger("parameters"))
	if err != nil {
		return nil, err
	}
	r := &Runtime{
		hardware: hardware,
		logger:   logger,
		opts:     o,
		store:    store,
		registry: cycler.NewRegistry(),
	}

	queueOptions := []framework.QueueOption{framework.WithClock(o.clk)}
	visionTopProducer, visionTopConsumer := framework.NewFutureQueue[cycler.Database](queueOptions...)
	visionBottomProducer, visionBottomConsumer := framework.NewFutureQueue[cycler.Database](queueOptions...)
	audioProducer, audioConsumer := framework.NewFutureQueue[cycler.Database](queueOptions...)
	networkProducer, networkConsumer := framework.NewFutureQueue[cycler.Database](queueOptions...)

	controlLogger := logger.Sublogger(ControlCycler)
	controlCycler, err := cycler.New(
		ControlCycler,
		cycler.RealTime,
		cycler.SourceFunc(func(ctx context.Context) (map[string]any, error) {
			data, err := hardware.ReadSensorData(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{control.InputHardwareSensorData: data}, nil
		}),
		control.Nodes(hardware, controlLogger),
		controlLogger,
		cycler.WithClock(o.clk),
		cycler.WithSourceInputs(control.InputHardwareSensorData),
		cycler.WithInput(control.InputParameters, parametersInput(parameters[0], func(p Parameters) control.Parameters {
			return p.Control
		})),
		cycler.WithInput(control.InputVisionTop, cycler.QueueInput(visionTopConsumer)),
		cycler.WithInput(control.InputVisionBottom, cycler.QueueInput(visionBottomConsumer)),
		cycler.WithInput(control.InputAudio, cycler.QueueInput(audioConsumer)),
		cycler.WithInput(control.InputSplNetwork, cycler.QueueInput(networkConsumer)),
		cycler.WithOutputReaders(2),
		cycler.WithBudget(ControlBudget),
	)
	if err != nil {
		return nil, err
	}
	r.cyclers = append(r.cyclers, controlCycler)
	controlReaders := controlCycler.OutputReaders()

	for i, camera := range []struct {
		name     string
		position robot.CameraPosition
		producer *framework.Producer[cycler.Database]
	}{
		{VisionTopCycler, robot.TopCamera, visionTopProducer},
		{VisionBottomCycler, robot.BottomCamera, visionBottomProducer},
	} {
		position := camera.position
		visionCycler, err := cycler.New(
			camera.name,
			cycler.Perception,
			cycler.SourceFunc(func(ctx context.Context) (map[string]any, error) {
				img, err := hardware.ReadImage(ctx, position)
				if err != nil {
					return nil, err
				}
				return map[string]any{vision.InputHardwareImage: img}, nil
			}),
			vision.Nodes(position),
			logger.Sublogger(camera.name),
			cycler.WithClock(o.clk),
			cycler.WithSourceInputs(vision.InputHardwareImage),
			cycler.WithInput(vision.InputParameters, parametersInput(parameters[1+i], func(p Parameters) vision.Parameters {
				return p.Vision
			})),
			cycler.WithInput(vision.InputControl, cycler.ReaderInput(controlReaders[i])),
			cycler.WithProducer(camera.producer),
		)
		if err != nil {
			return nil, err
		}
		r.cyclers = append(r.cyclers, visionCycler)
	}

	audioCycler, err := cycler.New(
		AudioCycler,
		cycler.Perception,
		cycler.SourceFunc(func(ctx context.Context) (map[string]any, error) {
			samples, err := hardware.ReadMicrophones(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{audio.InputHardwareSamples: samples}, nil
		}),
		audio.Nodes(),
		logger.Sublogger(AudioCycler),
		cycler.WithClock(o.clk),
		cycler.WithSourceInputs(audio.InputHardwareSamples),
		cycler.WithInput(audio.InputParameters, parametersInput(parameters[3], func(p Parameters) audio.Parameters {
			return p.Audio
		})),
		cycler.WithProducer(audioProducer),
	)
	if err != nil {
		return nil, err
	}
	r.cyclers = append(r.cyclers, audioCycler)

	networkCycler, err := cycler.New(
		SplNetworkCycler,
		cycler.Perception,
		cycler.SourceFunc(func(ctx context.Context) (map[string]any, error) {
			message, err := hardware.ReadFromNetwork(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{network.InputHardwareMessage: message}, nil
		}),
		network.Nodes(),
		logger.Sublogger(SplNetworkCycler),
		cycler.WithClock(o.clk),
		cycler.WithSourceInputs(network.InputHardwareMessage),
		cycler.WithProducer(networkProducer),
	)
	if err != nil {
		return nil, err
	}
	r.cyclers = append(r.cyclers, networkCycler)

	for _, c := range r.cyclers {
		if err := r.registry.Register(c.Instance()); err != nil {
			return nil, err
		}
	}
	r.server = communication.NewServer(r.registry, store, logger.Sublogger("communication"), communication.WithClock(o.clk))
	return r, nil
}

// parametersInput exposes the section of the parameters a cycler works with.
func parametersInput[T any](reader *framework.Reader[Parameters], section func(Parameters) T) cycler.InputFunc {
	return func(time.Time) (any, func()) {
		slot := reader.Next()
		return section(*slot.Value()), slot.Release
	}
}

// Registry returns the registry of all cycler instances.
func (r *Runtime) Registry() *cycler.Registry {
	return r.registry
}

// Server returns the communication server.
func (r *Runtime) Server() *communication.Server {
	return r.server
}

// Store returns the parameter store.
func (r *Runtime) Store() *config.Store[Parameters] {
	return r.store
}

// Cyclers returns the cyclers in construction order.
func (r *Runtime) Cyclers() []*cycler.Cycler {
	return r.cyclers
}

// Run starts every cycler and the communication server and blocks until ctx is done or one of
// them fails. The first failure stops everything else and is returned.
func (r *Runtime) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var watcher *config.Watcher
	if r.opts.watchRoot != "" {
		watcher, err = config.NewWatcher(r.opts.watchRoot, r.hardware.IDs(), r.store, config.DefaultDebounce, r.logger.Sublogger("watcher"))
		if err != nil {
			return errors.Wrap(err, "watching parameters")
		}
	}
	defer func() {
		r.store.Close()
		if watcher != nil {
			err = multierr.Append(err, watcher.Close())
		}
	}()

	group, ctx := errgroup.WithContext(ctx)
	for _, c := range r.cyclers {
		handle, err := c.Start(ctx)
		if err != nil {
			cancel()
			return multierr.Append(err, group.Wait())
		}
		r.logger.CDebugw(ctx, "started cycler", "cycler", c.Name())
		group.Go(handle.Wait)
	}
	group.Go(func() error {
		if r.opts.listenAddress != "" {
			return r.server.ListenAndServe(ctx, r.opts.listenAddress)
		}
		r.server.Start(ctx)
		<-ctx.Done()
		return r.server.Close()
	})
	r.logger.Infow("running", "cyclers", len(r.cyclers), "listen", r.opts.listenAddress)
	return group.Wait()
}
