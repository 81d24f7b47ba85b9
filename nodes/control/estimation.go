package control

import (
	"math"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	filters "github.com/naosoccer/stack/control"
	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/kinematics"
	"github.com/naosoccer/stack/nodes/vision"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
	"github.com/naosoccer/stack/walking"
)

const gravity = 9.81

// RobotToGroundEstimator places the robot frame above the ground while a foot has contact.
type RobotToGroundEstimator struct {
	nodeInfo
}

// NewRobotToGroundEstimator returns a RobotToGroundEstimator.
func NewRobotToGroundEstimator() *RobotToGroundEstimator {
	return &RobotToGroundEstimator{nodeInfo{
		name:    "robot_to_ground",
		inputs:  []string{SensorDataOutput, InputParameters},
		outputs: []string{RobotToGroundOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *RobotToGroundEstimator) InitialOutputs() map[string]any {
	return map[string]any{RobotToGroundOutput: (*spatialmath.Isometry3[referenceframe.Robot, referenceframe.Ground])(nil)}
}

// Cycle implements cycler.Node.
func (n *RobotToGroundEstimator) Cycle(ctx *cycler.Context) error {
	data, err := cycler.Input[robot.SensorData](ctx, SensorDataOutput)
	if err != nil {
		return err
	}
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return err
	}
	return ctx.Write(RobotToGroundOutput, EstimateRobotToGround(data, params.GroundContactThreshold))
}

// EstimateRobotToGround tilts the robot by the IMU angles and lifts it so that the sole carrying
// more weight touches the ground. It returns nil below the contact threshold.
func EstimateRobotToGround(
	data robot.SensorData,
	contactThreshold float64,
) *spatialmath.Isometry3[referenceframe.Robot, referenceframe.Ground] {
	fsr := data.ForceSensitiveResistors
	if fsr.Sum() < contactThreshold {
		return nil
	}
	imu := data.InertialMeasurementUnit
	tilt := spatialmath.Compose(
		spatialmath.RotationY3[referenceframe.Ground, referenceframe.Ground](imu.Pitch),
		spatialmath.RotationX3[referenceframe.Robot, referenceframe.Ground](imu.Roll),
	)
	sole := kinematics.RightSoleToRobot(data.PositionsMeasured.RightLeg).Translation()
	if fsr.Left.Sum() >= fsr.Right.Sum() {
		sole = kinematics.LeftSoleToRobot(data.PositionsMeasured.LeftLeg).Translation()
	}
	height := -tilt.Transform(sole.AsPoint()).Z
	robotToGround := spatialmath.Compose(
		spatialmath.Translation3[referenceframe.Ground, referenceframe.Ground](0, 0, height),
		tilt,
	)
	return &robotToGround
}

// ZeroMomentPointEstimator models the robot as a linear inverted pendulum over the walk frame.
type ZeroMomentPointEstimator struct {
	nodeInfo
}

// NewZeroMomentPointEstimator returns a ZeroMomentPointEstimator.
func NewZeroMomentPointEstimator() *ZeroMomentPointEstimator {
	return &ZeroMomentPointEstimator{nodeInfo{
		name:    "zero_moment_point",
		inputs:  []string{SensorDataOutput, RobotToGroundOutput, InputParameters},
		outputs: []string{ZeroMomentPointOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *ZeroMomentPointEstimator) InitialOutputs() map[string]any {
	return map[string]any{ZeroMomentPointOutput: (*spatialmath.Point2[referenceframe.Walk])(nil)}
}

// Cycle implements cycler.Node.
func (n *ZeroMomentPointEstimator) Cycle(ctx *cycler.Context) error {
	data, err := cycler.Input[robot.SensorData](ctx, SensorDataOutput)
	if err != nil {
		return err
	}
	robotToGround, err := cycler.Input[*spatialmath.Isometry3[referenceframe.Robot, referenceframe.Ground]](
		ctx, RobotToGroundOutput)
	if err != nil {
		return err
	}
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return err
	}
	if robotToGround == nil {
		return ctx.Write(ZeroMomentPointOutput, (*spatialmath.Point2[referenceframe.Walk])(nil))
	}
	zmp := EstimateZeroMomentPoint(params.Walking, *robotToGround, data.InertialMeasurementUnit.LinearAcceleration)
	return ctx.Write(ZeroMomentPointOutput, &zmp)
}

// EstimateZeroMomentPoint returns zmp = com - h/g * a with the center of mass at the hip center
// and a the horizontal acceleration after removing gravity.
func EstimateZeroMomentPoint(
	params walking.Parameters,
	robotToGround spatialmath.Isometry3[referenceframe.Robot, referenceframe.Ground],
	acceleration spatialmath.Vector3[referenceframe.Robot],
) spatialmath.Point2[referenceframe.Walk] {
	com := walking.RobotToWalk(params).Transform(spatialmath.Point3[referenceframe.Robot]{})
	inGround := robotToGround.TransformVector(acceleration)
	height := com.Z
	return spatialmath.NewPoint2[referenceframe.Walk](
		com.X-height/gravity*inGround.X,
		com.Y-height/gravity*inGround.Y,
	)
}

// FallStateEstimator classifies the low pass filtered torso angles.
type FallStateEstimator struct {
	nodeInfo
	params FallStateParameters
	roll   *filters.LowPassFilter
	pitch  *filters.LowPassFilter
}

// NewFallStateEstimator returns a FallStateEstimator.
func NewFallStateEstimator() *FallStateEstimator {
	return &FallStateEstimator{nodeInfo: nodeInfo{
		name:    "fall_state_estimation",
		inputs:  []string{SensorDataOutput, InputParameters},
		outputs: []string{FallStateOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *FallStateEstimator) InitialOutputs() map[string]any {
	return map[string]any{FallStateOutput: FallState{Kind: Upright}}
}

// Cycle implements cycler.Node.
func (n *FallStateEstimator) Cycle(ctx *cycler.Context) error {
	data, err := cycler.Input[robot.SensorData](ctx, SensorDataOutput)
	if err != nil {
		return err
	}
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return err
	}
	if n.roll == nil || !cmp.Equal(n.params, params.FallState) {
		if n.roll, err = filters.NewLowPassFilter(params.FallState.LowPassFactor); err != nil {
			return errors.Wrap(err, "fall state roll filter")
		}
		if n.pitch, err = filters.NewLowPassFilter(params.FallState.LowPassFactor); err != nil {
			return errors.Wrap(err, "fall state pitch filter")
		}
		n.params = params.FallState
	}
	roll := n.roll.Next(data.InertialMeasurementUnit.Roll)
	pitch := n.pitch.Next(data.InertialMeasurementUnit.Pitch)
	return ctx.Write(FallStateOutput, ClassifyFall(n.params, roll, pitch))
}

// ClassifyFall maps torso angles to a fall state. The larger angle decides the direction.
func ClassifyFall(params FallStateParameters, roll, pitch float64) FallState {
	angle := math.Max(math.Abs(roll), math.Abs(pitch))
	if angle < params.FallingAngle {
		return FallState{Kind: Upright}
	}
	var direction FallDirection
	switch {
	case math.Abs(pitch) >= math.Abs(roll) && pitch > 0:
		direction = Forward
	case math.Abs(pitch) >= math.Abs(roll):
		direction = Backward
	case roll > 0:
		direction = Rightward
	default:
		direction = Leftward
	}
	if angle >= params.FallenAngle {
		return FallState{Kind: Fallen, Direction: direction}
	}
	return FallState{Kind: Falling, Direction: direction}
}

// BallFilter keeps the most recent ball detection of both cameras until it times out.
type BallFilter struct {
	nodeInfo
	last *BallPosition
}

// NewBallFilter returns a BallFilter.
func NewBallFilter() *BallFilter {
	return &BallFilter{nodeInfo: nodeInfo{
		name:    "ball_filter",
		inputs:  []string{InputVisionTop, InputVisionBottom, InputParameters},
		outputs: []string{BallPositionOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *BallFilter) InitialOutputs() map[string]any {
	return map[string]any{BallPositionOutput: (*BallPosition)(nil)}
}

// Cycle implements cycler.Node.
func (n *BallFilter) Cycle(ctx *cycler.Context) error {
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return err
	}
	for _, input := range []string{InputVisionTop, InputVisionBottom} {
		detections, err := cycler.PerceptionOutputs[[]vision.Ball](ctx, input, vision.BallsOutput)
		if err != nil {
			return err
		}
		for _, detection := range detections {
			if len(detection.Value) == 0 || (n.last != nil && detection.Timestamp.Before(n.last.LastSeen)) {
				continue
			}
			closest := detection.Value[0]
			for _, ball := range detection.Value[1:] {
				if ball.Position.Coords().Norm() < closest.Position.Coords().Norm() {
					closest = ball
				}
			}
			n.last = &BallPosition{Position: closest.Position, LastSeen: detection.Timestamp}
		}
	}
	if n.last != nil && ctx.StartTime().Sub(n.last.LastSeen) > params.BallFilter.Timeout {
		n.last = nil
	}
	if n.last == nil {
		return ctx.Write(BallPositionOutput, (*BallPosition)(nil))
	}
	ball := *n.last
	return ctx.Write(BallPositionOutput, &ball)
}

// Localization places the ground frame on the field. It starts from the configured initial pose
// and resets to it whenever the robot is in Initial.
type Localization struct {
	nodeInfo
	current *spatialmath.Isometry2[referenceframe.Ground, referenceframe.Field]
}

// NewLocalization returns a Localization.
func NewLocalization() *Localization {
	return &Localization{nodeInfo: nodeInfo{
		name:    "localization",
		inputs:  []string{InputParameters, PrimaryStateOutput},
		outputs: []string{GroundToFieldOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *Localization) InitialOutputs() map[string]any {
	return map[string]any{GroundToFieldOutput: (*spatialmath.Isometry2[referenceframe.Ground, referenceframe.Field])(nil)}
}

// Cycle implements cycler.Node.
func (n *Localization) Cycle(ctx *cycler.Context) error {
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return err
	}
	state, err := cycler.Input[PrimaryState](ctx, PrimaryStateOutput)
	if err != nil {
		return err
	}
	if n.current == nil || state == Initial {
		pose := params.InitialPose
		groundToField := spatialmath.NewIsometry2[referenceframe.Ground, referenceframe.Field](pose.Position.Coords(), pose.Angle)
		n.current = &groundToField
	}
	return ctx.Write(GroundToFieldOutput, n.current)
}
