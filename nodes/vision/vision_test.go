package vision

import (
	"image"
	"math"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/kinematics"
	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/robots/fake"
	"github.com/naosoccer/stack/spatialmath"
)

const (
	width  = 80
	height = 60
)

// lookingDown is the camera matrix of an upright robot pitching its head down.
func lookingDown() CameraMatrix {
	legLength := -kinematics.LeftSoleToRobot(joints.FillLeg(0.0)).Translation().Z
	robotToGround := spatialmath.Translation3[referenceframe.Robot, referenceframe.Ground](0, 0, legLength)
	head := joints.HeadJoints[float64]{Pitch: 0.5}
	return NewCameraMatrix(robot.TopCamera, head, robotToGround, DefaultParameters().HorizontalFieldOfView, width, height)
}

func TestCameraMatrixRoundTrip(t *testing.T) {
	matrix := lookingDown()
	test.That(t, matrix.FocalLength, test.ShouldAlmostEqual, width/(2*math.Tan(DefaultParameters().HorizontalFieldOfView/2)))

	for _, pixel := range []spatialmath.Point2[referenceframe.Pixel]{
		spatialmath.NewPoint2[referenceframe.Pixel](40, 30),
		spatialmath.NewPoint2[referenceframe.Pixel](5, 55),
		spatialmath.NewPoint2[referenceframe.Pixel](70, 40),
	} {
		ground, ok := matrix.PixelToGround(pixel, 0)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, ground.X, test.ShouldBeGreaterThan, 0)
		projected, ok := matrix.GroundToPixel(ground.Extend(0))
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, projected.X, test.ShouldAlmostEqual, pixel.X, 1e-6)
		test.That(t, projected.Y, test.ShouldAlmostEqual, pixel.Y, 1e-6)
	}

	// left of the image center is left of the robot
	leftPoint, _ := matrix.PixelToGround(spatialmath.NewPoint2[referenceframe.Pixel](0, 30), 0)
	test.That(t, leftPoint.Y, test.ShouldBeGreaterThan, 0)
}

func TestPixelAboveHorizon(t *testing.T) {
	level := spatialmath.Translation3[referenceframe.Robot, referenceframe.Ground](0, 0, 0.3)
	matrix := NewCameraMatrix(robot.TopCamera, joints.HeadJoints[float64]{Pitch: -0.3}, level,
		DefaultParameters().HorizontalFieldOfView, width, height)
	_, ok := matrix.PixelToGround(spatialmath.NewPoint2[referenceframe.Pixel](40, 0), 0)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestDetectBalls(t *testing.T) {
	matrix := lookingDown()
	balls := DetectBalls(fake.SyntheticFrame(width, height), robot.TopCamera, matrix, DefaultParameters().Ball)
	test.That(t, balls, test.ShouldHaveLength, 1)

	ball := balls[0]
	test.That(t, ball.Camera, test.ShouldEqual, robot.TopCamera)
	test.That(t, ball.Pixel.X, test.ShouldAlmostEqual, 40, 1e-9)
	test.That(t, ball.Pixel.Y, test.ShouldAlmostEqual, 30, 1e-9)
	test.That(t, ball.Radius, test.ShouldAlmostEqual, 6, 0.5)
	test.That(t, ball.Position.Y, test.ShouldAlmostEqual, 0, 1e-9)

	projected, ok := matrix.GroundToPixel(ball.Position.Extend(DefaultParameters().Ball.Radius))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, projected.Y, test.ShouldAlmostEqual, 30, 1e-6)
}

func TestDetectBallsIgnoresSmallClusters(t *testing.T) {
	frame := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio444)
	frame.Y[frame.YOffset(10, 10)] = 255
	test.That(t, DetectBalls(frame, robot.TopCamera, lookingDown(), DefaultParameters().Ball), test.ShouldBeEmpty)
}

func TestDetectLines(t *testing.T) {
	segments := DetectLines(fake.SyntheticFrame(width, height), lookingDown(), DefaultParameters().Lines)
	test.That(t, segments, test.ShouldHaveLength, 1)

	line := segments[0]
	// an image row of a level camera is a line across the view on the ground
	test.That(t, line.Start.X, test.ShouldAlmostEqual, line.End.X, 1e-9)
	test.That(t, line.Start.Y, test.ShouldBeGreaterThan, 0)
	test.That(t, line.End.Y, test.ShouldBeLessThan, 0)
}

func TestDetectObstacles(t *testing.T) {
	frame := fake.SyntheticFrame(width, height)
	for y := 50; y < height; y++ {
		for x := 10; x <= 20; x++ {
			frame.Y[frame.YOffset(x, y)] = 20
		}
	}
	obstacles := DetectObstacles(frame, lookingDown(), DefaultParameters().Obstacles)
	test.That(t, obstacles, test.ShouldHaveLength, 1)
	test.That(t, obstacles[0].Width, test.ShouldEqual, 12)
	test.That(t, obstacles[0].Position.Y, test.ShouldBeGreaterThan, 0)

	test.That(t, DetectObstacles(fake.SyntheticFrame(width, height), lookingDown(), DefaultParameters().Obstacles),
		test.ShouldBeEmpty)
}

func TestFindPoseCandidates(t *testing.T) {
	point := spatialmath.NewPoint2[referenceframe.Ground]
	along := LineSegment{Start: point(1, 0), End: point(2, 0)}
	across := LineSegment{Start: point(2, 0.1), End: point(2, 1)}
	parallel := LineSegment{Start: point(1, 1), End: point(2, 1)}
	params := DefaultParameters().PoseCandidates

	candidates := FindPoseCandidates([]LineSegment{along, across, parallel}, params)
	test.That(t, candidates, test.ShouldHaveLength, 2)
	test.That(t, candidates[0].Corner.X, test.ShouldAlmostEqual, 2)
	test.That(t, candidates[0].Corner.Y, test.ShouldAlmostEqual, 0)
	test.That(t, candidates[0].Lines, test.ShouldResemble, [2]LineSegment{along, across})
	// the parallel line meets across at its end
	test.That(t, candidates[1].Corner.Y, test.ShouldAlmostEqual, 1)

	far := LineSegment{Start: point(5, 3), End: point(5, 4)}
	test.That(t, FindPoseCandidates([]LineSegment{along, far}, params), test.ShouldBeEmpty)
}

func TestCameraMatrixProvider(t *testing.T) {
	logger := logging.NewTestLogger(t)
	node := NewCameraMatrixProvider(robot.TopCamera)
	img := robot.Image{Camera: robot.TopCamera, Frame: fake.SyntheticFrame(width, height)}
	data := robot.SensorData{PositionsMeasured: joints.Joints[float64]{Head: joints.HeadJoints[float64]{Pitch: 0.5}}}
	legLength := -kinematics.LeftSoleToRobot(joints.FillLeg(0.0)).Translation().Z
	robotToGround := spatialmath.Translation3[referenceframe.Robot, referenceframe.Ground](0, 0, legLength)

	run := func(control cycler.Database) (*CameraMatrix, error) {
		result, err := cycler.RunNode(node, 1, time.Unix(0, 0), map[string]any{
			ImageOutput:     img,
			InputControl:    control,
			InputParameters: DefaultParameters(),
		}, nil, logger)
		if err != nil {
			return nil, err
		}
		return result.Main[CameraMatrixOutput].(*CameraMatrix), nil
	}

	matrix, err := run(cycler.Database{Main: map[string]any{
		controlSensorData:    data,
		controlRobotToGround: &robotToGround,
	}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, matrix, test.ShouldNotBeNil)
	test.That(t, spatialmath.Isometry3AlmostEqual(matrix.CameraToGround, lookingDown().CameraToGround, 1e-9), test.ShouldBeTrue)

	matrix, err = run(cycler.Database{Main: map[string]any{
		controlSensorData:    data,
		controlRobotToGround: (*spatialmath.Isometry3[referenceframe.Robot, referenceframe.Ground])(nil),
	}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, matrix, test.ShouldBeNil)

	_, err = run(cycler.Database{Main: map[string]any{}})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestImageReceiverRejectsOtherCamera(t *testing.T) {
	logger := logging.NewTestLogger(t)
	node := NewImageReceiver(robot.BottomCamera)
	_, err := cycler.RunNode(node, 1, time.Unix(0, 0), map[string]any{
		InputHardwareImage: robot.Image{Camera: robot.TopCamera, Frame: fake.SyntheticFrame(width, height)},
	}, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestVisionNodesFormAGraph(t *testing.T) {
	_, err := cycler.BuildGraph(Nodes(robot.BottomCamera), []string{InputHardwareImage, InputParameters, InputControl})
	test.That(t, err, test.ShouldBeNil)
}
