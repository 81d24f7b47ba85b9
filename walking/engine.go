// Package walking implements the walking engine. It turns requested steps and kicks into joint
// positions and stiffnesses every control cycle.
package walking

import (
	"time"

	"github.com/pkg/errors"

	"github.com/naosoccer/stack/control"
	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
	"github.com/naosoccer/stack/utils"
)

// Additional output paths written by the engine when they are subscribed.
const (
	StepPlanOutput = "walking.step_plan"
	ZmpHullOutput  = "walking.zmp_hull"
)

var errNoKickSteps = errors.New("kick variant has no steps")

// AdditionalOutputs records debug values that somebody subscribed to.
type AdditionalOutputs interface {
	AdditionalOutputRequested(path string) bool
	WriteAdditionalOutput(path string, value any)
}

// Context is the input of one engine tick.
type Context struct {
	CycleDuration time.Duration
	SensorData    robot.SensorData
	// RobotToGround is nil while the ground is unknown, e.g. while no foot has contact.
	RobotToGround *spatialmath.Isometry3[referenceframe.Robot, referenceframe.Ground]
	// ZeroMomentPoint is nil when no estimate is available.
	ZeroMomentPoint   *spatialmath.Point2[referenceframe.Walk]
	PullArmsTight     bool
	AdditionalOutputs AdditionalOutputs
}

func (c *Context) requested(path string) bool {
	return c.AdditionalOutputs != nil && c.AdditionalOutputs.AdditionalOutputRequested(path)
}

// Engine is the walking engine. It is not safe for concurrent use; the control cycler owns it.
type Engine struct {
	params   Parameters
	logger   logging.Logger
	ikLogger *utils.ThrottledLogger

	mode           mode
	requestedStep  Step
	standRequested bool
	pendingKick    *KickRequest

	gyroX *control.LowPassFilter
	gyroY *control.LowPassFilter

	leftArm  *swingingArm
	rightArm *swingingArm

	lastLeftLeg  joints.LegJoints[float64]
	lastRightLeg joints.LegJoints[float64]
	lastCommand  joints.MotorCommands[joints.Joints[float64]]
}

// Validate checks parameters that would break the engine.
func (p Parameters) Validate() error {
	if p.MinStepDuration <= 0 || p.MaxStepDuration <= p.MinStepDuration {
		return errors.Errorf("step durations must satisfy 0 < min (%v) < max (%v)", p.MinStepDuration, p.MaxStepDuration)
	}
	if p.BaseStepDuration <= 0 {
		return errors.Errorf("base step duration must be positive, got %v", p.BaseStepDuration)
	}
	if p.StepMidpoint <= 0 || p.StepMidpoint >= 1 {
		return errors.Errorf("step midpoint must be in (0, 1), got %v", p.StepMidpoint)
	}
	if p.BaseFootLift < 0 {
		return errors.Errorf("base foot lift must not be negative, got %v", p.BaseFootLift)
	}
	if p.MaxForwardAcceleration < 0 || p.MaxTurnAcceleration < 0 {
		return errors.New("accelerations must not be negative")
	}
	if _, _, err := LegsFromFeet(RobotToWalk(p), StandingFeet(p), robot.Left); err != nil {
		return errors.Wrap(err, "stand pose")
	}
	return nil
}

// NewEngine returns an engine in Standing mode.
func NewEngine(params Parameters, logger logging.Logger) (*Engine, error) {
	e := &Engine{
		logger:   logger,
		ikLogger: utils.NewThrottledLogger(logger, nil, time.Second),
		mode:     standingMode{},
	}
	if err := e.SetParameters(params); err != nil {
		return nil, err
	}
	e.lastLeftLeg, e.lastRightLeg, _ = LegsFromFeet(RobotToWalk(params), StandingFeet(params), robot.Left)
	e.leftArm = newSwingingArm(robot.Left, params.Arms)
	e.rightArm = newSwingingArm(robot.Right, params.Arms)
	return e, nil
}

// SetParameters replaces the parameters. The step in flight keeps its plan.
func (e *Engine) SetParameters(params Parameters) error {
	if err := params.Validate(); err != nil {
		return errors.Wrap(err, "invalid walking parameters")
	}
	gyroX, err := control.NewLowPassFilter(params.GyroLowPassFactor)
	if err != nil {
		return errors.Wrap(err, "gyro filter")
	}
	gyroY, err := control.NewLowPassFilter(params.GyroLowPassFactor)
	if err != nil {
		return errors.Wrap(err, "gyro filter")
	}
	e.params = params
	e.gyroX, e.gyroY = gyroX, gyroY
	return nil
}

// Parameters returns the active parameters.
func (e *Engine) Parameters() Parameters {
	return e.params
}

// Walk requests walking with step. It is meant to be called every cycle while walking is wanted.
func (e *Engine) Walk(step Step) {
	e.requestedStep = step
	e.standRequested = false
	e.pendingKick = nil
	e.mode = e.mode.walk(e, step)
}

// Kick requests a kick. Walking continues until the kicking foot is free.
func (e *Engine) Kick(variant KickVariant, side robot.Side, strength float64) {
	e.standRequested = false
	e.mode = e.mode.kick(e, KickRequest{Variant: variant, Side: side, Strength: strength})
}

// Stand finishes the current step, takes one stopping step and stands.
func (e *Engine) Stand() {
	e.standRequested = true
	e.pendingKick = nil
	e.mode = e.mode.stand(e)
}

// Mode returns the name of the current mode.
func (e *Engine) Mode() ModeName {
	return e.mode.name()
}

// StepState returns the step in flight or nil while standing.
func (e *Engine) StepState() *StepState {
	return e.mode.stepState()
}

// LastRequestedStep is the acceleration limited step the engine currently walks with.
func (e *Engine) LastRequestedStep() Step {
	switch m := e.mode.(type) {
	case *walkingMode:
		return m.lastRequested
	case *catchingMode:
		return m.lastRequested
	default:
		return ZeroStep
	}
}

// LastCommand returns the motor commands of the last tick.
func (e *Engine) LastCommand() joints.MotorCommands[joints.Joints[float64]] {
	return e.lastCommand
}

// startFeet are the feet reached by the last commanded legs.
func (e *Engine) startFeet(support robot.Side) Feet {
	return FeetFromLegs(RobotToWalk(e.params), e.lastLeftLeg, e.lastRightLeg, support)
}

// catch replans state if the zero moment point left the support hull and reports whether it did.
func (e *Engine) catch(state *StepState, input tickInput) bool {
	zmp := input.context.ZeroMomentPoint
	if !e.params.Catching.Enabled || zmp == nil || len(e.params.Catching.SoleOutline) == 0 {
		return false
	}
	hull := supportHull(e.params, state)
	if input.context.requested(ZmpHullOutput) {
		input.context.AdditionalOutputs.WriteAdditionalOutput(ZmpHullOutput, hull)
	}
	if !needsCatching(hull, *zmp) {
		return false
	}
	step := catchingStep(e.params, state, *zmp)
	state.replan(state.Plan.withStep(e.params, step))
	return true
}

// torsoAngles prefers the ground estimate over the raw IMU angles.
func torsoAngles(ctx *Context) (roll, pitch float64) {
	if ctx.RobotToGround != nil {
		roll, pitch, _ = ctx.RobotToGround.Rotation().EulerAngles()
		return roll, pitch
	}
	imu := ctx.SensorData.InertialMeasurementUnit
	return imu.Roll, imu.Pitch
}

// Tick advances the engine by one cycle and returns the motor commands to write.
func (e *Engine) Tick(ctx Context) joints.MotorCommands[joints.Joints[float64]] {
	angularVelocity := ctx.SensorData.InertialMeasurementUnit.AngularVelocity
	gyroX := e.gyroX.Next(angularVelocity.X)
	gyroY := e.gyroY.Next(angularVelocity.Y)
	roll, pitch := torsoAngles(&ctx)
	input := tickInput{
		context:    &ctx,
		gyro:       spatialmath.NewVector3[referenceframe.Robot](gyroX, gyroY, angularVelocity.Z),
		torsoRoll:  roll,
		torsoPitch: pitch,
	}
	e.mode = e.mode.tick(e, input)

	robotToWalk := RobotToWalk(e.params)
	state := e.mode.stepState()
	feet, support := StandingFeet(e.params), robot.Left
	if state != nil {
		feet, support = state.Feet(), state.Plan.SupportSide
		if ctx.requested(StepPlanOutput) {
			ctx.AdditionalOutputs.WriteAdditionalOutput(StepPlanOutput, state.Plan)
		}
	}
	left, right, err := LegsFromFeet(robotToWalk, feet, support)
	if err != nil {
		e.ikLogger.Warnw("leg inverse kinematics failed, keeping previous legs", "mode", e.mode.name(), "error", err)
		left, right = e.lastLeftLeg, e.lastRightLeg
	} else if state != nil {
		left, right = state.balance(left, right)
		if kicking, ok := e.mode.(*kickingMode); ok {
			left, right = kicking.adjustLegs(left, right)
		}
	}
	e.lastLeftLeg, e.lastRightLeg = left, right

	leftFoot, rightFoot := feet.Sides(support)
	leftSwing := swingPose(e.params.Arms, rightFoot.Position.X, left.HipRoll)
	rightSwing := swingPose(e.params.Arms, leftFoot.Position.X, joints.MirrorLeg(right).HipRoll)
	leftArm := e.leftArm.tick(e.params.Arms, ctx.CycleDuration, ctx.PullArmsTight, leftSwing)
	rightArm := e.rightArm.tick(e.params.Arms, ctx.CycleDuration, ctx.PullArmsTight, rightSwing)

	e.lastCommand = joints.MotorCommands[joints.Joints[float64]]{
		Positions: joints.Joints[float64]{
			Head:     ctx.SensorData.PositionsMeasured.Head,
			LeftArm:  leftArm,
			RightArm: rightArm,
			LeftLeg:  left,
			RightLeg: right,
		},
		Stiffnesses: e.stiffnesses(),
	}
	return e.lastCommand
}

func (e *Engine) stiffnesses() joints.Joints[float64] {
	stiffness := e.params.Stiffness
	leg := stiffness.LegWalk
	switch e.mode.name() {
	case ModeStanding:
		leg = stiffness.StandRest
	case ModeKicking:
		leg = stiffness.LegKick
	}
	return joints.Joints[float64]{
		Head:     joints.FillHead(stiffness.Head),
		LeftArm:  joints.FillArm(stiffness.Arm),
		RightArm: joints.FillArm(stiffness.Arm),
		LeftLeg:  joints.FillLeg(leg),
		RightLeg: joints.FillLeg(leg),
	}
}
