// Package fake is an in memory robot for simulation and tests. It paces sensor reads with an
// injectable clock, records actuator commands and serves queued or synthetic perception input.
package fake

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/robot"
)

// Options configure a fake Robot.
type Options struct {
	// CyclePeriod paces ReadSensorData. Zero returns immediately.
	CyclePeriod time.Duration
	// ImagePeriod is the interval of synthetic camera frames when no frame was pushed. Zero
	// blocks until a frame is pushed.
	ImagePeriod time.Duration
	// AudioPeriod is the interval of synthetic silent audio buffers. Zero blocks until samples
	// are pushed.
	AudioPeriod time.Duration
	// EchoPositions copies commanded positions into the measured positions of the next read.
	EchoPositions bool
	IDs           robot.IDs
	Paths         robot.Paths
}

// DefaultOptions match the NAO's sensor and camera rates.
func DefaultOptions() Options {
	return Options{
		CyclePeriod:   12 * time.Millisecond,
		ImagePeriod:   33 * time.Millisecond,
		AudioPeriod:   46 * time.Millisecond,
		EchoPositions: true,
		IDs:           robot.IDs{BodyID: "fake_body", HeadID: "fake_head"},
		Paths:         robot.Paths{Parameters: "etc/parameters", Logs: "logs"},
	}
}

// ActuatorCommand is the last command written to the actuators.
type ActuatorCommand struct {
	Positions   joints.Joints[float64]
	Stiffnesses joints.Joints[float64]
	Leds        robot.Leds
}

// Robot implements robot.HardwareInterface in memory.
type Robot struct {
	clk  clock.Clock
	opts Options

	mu          sync.Mutex
	sensorData  robot.SensorData
	sensorReads int
	readErrors  []error
	writeErrors []error
	command     ActuatorCommand
	writes      int
	writeCalls  int
	outgoing    []robot.OutgoingMessage

	images   map[robot.CameraPosition]chan robot.Image
	samples  chan robot.Samples
	incoming chan robot.IncomingMessage
}

var _ robot.HardwareInterface = (*Robot)(nil)

const queueSize = 16

// NewRobot returns a fake robot. A nil clock uses the wall clock.
func NewRobot(clk clock.Clock, opts Options) *Robot {
	if clk == nil {
		clk = clock.New()
	}
	standing := joints.Fill(0.0)
	standing.LeftArm.ShoulderPitch = 1.57
	standing.RightArm.ShoulderPitch = 1.57
	return &Robot{
		clk:  clk,
		opts: opts,
		sensorData: robot.SensorData{
			PositionsMeasured: standing,
			ForceSensitiveResistors: robot.ForceSensitiveResistors{
				Left:  robot.Foot{FrontLeft: 0.6, FrontRight: 0.6, RearLeft: 0.6, RearRight: 0.6},
				Right: robot.Foot{FrontLeft: 0.6, FrontRight: 0.6, RearLeft: 0.6, RearRight: 0.6},
			},
		},
		images: map[robot.CameraPosition]chan robot.Image{
			robot.TopCamera:    make(chan robot.Image, queueSize),
			robot.BottomCamera: make(chan robot.Image, queueSize),
		},
		samples:  make(chan robot.Samples, queueSize),
		incoming: make(chan robot.IncomingMessage, queueSize),
	}
}

func (r *Robot) wait(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		return ctx.Err()
	}
	timer := r.clk.Timer(period)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ReadSensorData waits one cycle period and returns the current sensor values, or the next
// queued failure.
func (r *Robot) ReadSensorData(ctx context.Context) (robot.SensorData, error) {
	r.mu.Lock()
	if len(r.readErrors) > 0 {
		err := r.readErrors[0]
		r.readErrors = r.readErrors[1:]
		r.mu.Unlock()
		return robot.SensorData{}, err
	}
	r.mu.Unlock()

	if err := r.wait(ctx, r.opts.CyclePeriod); err != nil {
		return robot.SensorData{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensorReads++
	return r.sensorData, nil
}

// WriteToActuators records the command, or returns the next queued failure.
func (r *Robot) WriteToActuators(ctx context.Context, positions, stiffnesses joints.Joints[float64], leds robot.Leds) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeCalls++
	if len(r.writeErrors) > 0 {
		err := r.writeErrors[0]
		r.writeErrors = r.writeErrors[1:]
		return err
	}
	r.command = ActuatorCommand{Positions: positions, Stiffnesses: stiffnesses, Leds: leds}
	r.writes++
	if r.opts.EchoPositions {
		r.sensorData.PositionsMeasured = positions
	}
	return nil
}

// ReadImage returns the next pushed frame, or a synthetic frame every image period.
func (r *Robot) ReadImage(ctx context.Context, camera robot.CameraPosition) (robot.Image, error) {
	queue := r.images[camera]
	select {
	case img := <-queue:
		return img, nil
	default:
	}
	if r.opts.ImagePeriod <= 0 {
		select {
		case <-ctx.Done():
			return robot.Image{}, ctx.Err()
		case img := <-queue:
			return img, nil
		}
	}

	timer := r.clk.Timer(r.opts.ImagePeriod)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return robot.Image{}, ctx.Err()
	case img := <-queue:
		return img, nil
	case <-timer.C:
		return robot.Image{Camera: camera, Timestamp: r.clk.Now(), Frame: SyntheticFrame(80, 60)}, nil
	}
}

// ReadMicrophones returns the next pushed buffer, or silence every audio period.
func (r *Robot) ReadMicrophones(ctx context.Context) (robot.Samples, error) {
	select {
	case samples := <-r.samples:
		return samples, nil
	default:
	}
	if r.opts.AudioPeriod <= 0 {
		select {
		case <-ctx.Done():
			return robot.Samples{}, ctx.Err()
		case samples := <-r.samples:
			return samples, nil
		}
	}

	timer := r.clk.Timer(r.opts.AudioPeriod)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return robot.Samples{}, ctx.Err()
	case samples := <-r.samples:
		return samples, nil
	case <-timer.C:
		channels := make([][]float32, 4)
		for i := range channels {
			channels[i] = make([]float32, 2048)
		}
		return robot.Samples{Rate: 44100, Channels: channels}, nil
	}
}

// ReadFromNetwork blocks until a message is pushed.
func (r *Robot) ReadFromNetwork(ctx context.Context) (robot.IncomingMessage, error) {
	select {
	case <-ctx.Done():
		return robot.IncomingMessage{}, ctx.Err()
	case message := <-r.incoming:
		return message, nil
	}
}

// WriteToNetwork records the message.
func (r *Robot) WriteToNetwork(ctx context.Context, message robot.OutgoingMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outgoing = append(r.outgoing, message)
	return nil
}

// Now returns the clock time.
func (r *Robot) Now() time.Time {
	return r.clk.Now()
}

// Paths returns the configured paths.
func (r *Robot) Paths() robot.Paths {
	return r.opts.Paths
}

// IDs returns the configured ids.
func (r *Robot) IDs() robot.IDs {
	return r.opts.IDs
}

// SetSensorData replaces all sensor values.
func (r *Robot) SetSensorData(data robot.SensorData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensorData = data
}

// UpdateSensorData edits the sensor values in place.
func (r *Robot) UpdateSensorData(update func(data *robot.SensorData)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	update(&r.sensorData)
}

// FailNextSensorReads makes the following ReadSensorData calls return errs in order.
func (r *Robot) FailNextSensorReads(errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readErrors = append(r.readErrors, errs...)
}

// FailNextActuatorWrites makes the following WriteToActuators calls return errs in order.
func (r *Robot) FailNextActuatorWrites(errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeErrors = append(r.writeErrors, errs...)
}

// ActuatorWriteAttempts counts WriteToActuators calls including failed ones.
func (r *Robot) ActuatorWriteAttempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeCalls
}

// LastActuatorCommand returns the last written command and the number of writes.
func (r *Robot) LastActuatorCommand() (ActuatorCommand, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.command, r.writes
}

// SensorReads returns the number of successful sensor reads.
func (r *Robot) SensorReads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sensorReads
}

// SentMessages returns the messages written to the network.
func (r *Robot) SentMessages() []robot.OutgoingMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]robot.OutgoingMessage(nil), r.outgoing...)
}

// PushImage queues a frame for ReadImage. It drops the frame when the queue is full.
func (r *Robot) PushImage(img robot.Image) bool {
	select {
	case r.images[img.Camera] <- img:
		return true
	default:
		return false
	}
}

// PushSamples queues audio for ReadMicrophones.
func (r *Robot) PushSamples(samples robot.Samples) bool {
	select {
	case r.samples <- samples:
		return true
	default:
		return false
	}
}

// PushMessage queues a datagram for ReadFromNetwork.
func (r *Robot) PushMessage(message robot.IncomingMessage) bool {
	select {
	case r.incoming <- message:
		return true
	default:
		return false
	}
}

// SyntheticFrame draws green carpet with a white line across the lower third and a bright ball
// in the center.
func SyntheticFrame(width, height int) *image.YCbCr {
	frame := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio444)
	radius := height / 10
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			luma, cb, cr := uint8(90), uint8(100), uint8(100)
			if y == 2*height/3 {
				luma, cb, cr = 210, 128, 128
			}
			dx, dy := x-width/2, y-height/2
			if dx*dx+dy*dy <= radius*radius {
				luma, cb, cr = 240, 128, 128
			}
			frame.Y[frame.YOffset(x, y)] = luma
			frame.Cb[frame.COffset(x, y)] = cb
			frame.Cr[frame.COffset(x, y)] = cr
		}
	}
	return frame
}
