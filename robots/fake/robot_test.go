package fake

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/robot"
)

func TestEchoPositions(t *testing.T) {
	opts := DefaultOptions()
	opts.CyclePeriod = 0
	r := NewRobot(clock.NewMock(), opts)
	ctx := context.Background()

	positions := joints.Fill(0.1)
	test.That(t, r.WriteToActuators(ctx, positions, joints.Fill(0.8), robot.Leds{}), test.ShouldBeNil)
	data, err := r.ReadSensorData(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data.PositionsMeasured, test.ShouldResemble, positions)

	command, writes := r.LastActuatorCommand()
	test.That(t, writes, test.ShouldEqual, 1)
	test.That(t, command.Stiffnesses, test.ShouldResemble, joints.Fill(0.8))
}

func TestReadSensorDataIsPaced(t *testing.T) {
	mock := clock.NewMock()
	opts := DefaultOptions()
	r := NewRobot(mock, opts)

	done := make(chan error, 1)
	go func() {
		_, err := r.ReadSensorData(context.Background())
		done <- err
	}()

	var err error
	waited := time.Duration(0)
loop:
	for {
		select {
		case err = <-done:
			break loop
		default:
			mock.Add(time.Millisecond)
			waited += time.Millisecond
			time.Sleep(time.Millisecond)
		}
	}
	test.That(t, err, test.ShouldBeNil)
	test.That(t, waited, test.ShouldBeGreaterThanOrEqualTo, opts.CyclePeriod)
	test.That(t, r.SensorReads(), test.ShouldEqual, 1)
}

func TestFailNextSensorReads(t *testing.T) {
	opts := DefaultOptions()
	opts.CyclePeriod = 0
	r := NewRobot(clock.NewMock(), opts)
	transient := robot.NewTransientError(errors.New("checksum mismatch"))
	r.FailNextSensorReads(transient)

	_, err := r.ReadSensorData(context.Background())
	test.That(t, robot.IsTransient(err), test.ShouldBeTrue)
	_, err = r.ReadSensorData(context.Background())
	test.That(t, err, test.ShouldBeNil)
}

func TestReadImageCancellation(t *testing.T) {
	opts := DefaultOptions()
	opts.ImagePeriod = 0
	r := NewRobot(clock.NewMock(), opts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.ReadImage(ctx, robot.TopCamera)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)

	frame := SyntheticFrame(8, 6)
	test.That(t, r.PushImage(robot.Image{Camera: robot.BottomCamera, Frame: frame}), test.ShouldBeTrue)
	img, err := r.ReadImage(context.Background(), robot.BottomCamera)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Frame, test.ShouldEqual, frame)
}

func TestSyntheticFrame(t *testing.T) {
	frame := SyntheticFrame(80, 60)
	test.That(t, frame.YCbCrAt(40, 30).Y, test.ShouldEqual, uint8(240))
	test.That(t, frame.YCbCrAt(2, 2).Y, test.ShouldEqual, uint8(90))
	test.That(t, frame.YCbCrAt(2, 40).Y, test.ShouldEqual, uint8(210))
}

func TestNetwork(t *testing.T) {
	r := NewRobot(nil, DefaultOptions())
	ctx := context.Background()
	test.That(t, r.PushMessage(robot.IncomingMessage{Kind: robot.SplMessage, Payload: []byte("{}")}), test.ShouldBeTrue)
	message, err := r.ReadFromNetwork(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, message.Kind, test.ShouldEqual, robot.SplMessage)

	test.That(t, r.WriteToNetwork(ctx, robot.OutgoingMessage{Kind: robot.SplMessage}), test.ShouldBeNil)
	test.That(t, len(r.SentMessages()), test.ShouldEqual, 1)
}
