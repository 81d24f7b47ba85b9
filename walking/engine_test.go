package walking

import (
	"testing"
	"time"

	"github.com/montanaflynn/stats"
	"go.viam.com/test"

	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
)

const cycle = 12 * time.Millisecond

// simulation ticks an engine and presses the swing foot once a step ran for contactAfter.
type simulation struct {
	t            *testing.T
	engine       *Engine
	contactAfter time.Duration
	switches     int
	modes        []ModeName
}

func newSimulation(t *testing.T, params Parameters) *simulation {
	t.Helper()
	engine, err := NewEngine(params, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return &simulation{t: t, engine: engine, contactAfter: 240 * time.Millisecond, modes: []ModeName{engine.Mode()}}
}

func (s *simulation) context() Context {
	var fsr robot.ForceSensitiveResistors
	if state := s.engine.StepState(); state != nil && state.TimeSinceStart+cycle >= s.contactAfter {
		foot := robot.Foot{FrontLeft: 0.5, FrontRight: 0.5, RearLeft: 0.5, RearRight: 0.5}
		if state.Plan.SupportSide == robot.Left {
			fsr.Right = foot
		} else {
			fsr.Left = foot
		}
	}
	return Context{
		CycleDuration: cycle,
		SensorData:    robot.SensorData{ForceSensitiveResistors: fsr},
	}
}

func (s *simulation) tick(ctx Context) joints.MotorCommands[joints.Joints[float64]] {
	previous := s.engine.StepState()
	commands := s.engine.Tick(ctx)
	current := s.engine.StepState()
	if previous != nil && current != nil && previous != current {
		s.switches++
		test.That(s.t, current.Plan.SupportSide, test.ShouldEqual, previous.Plan.SupportSide.Opposite())
	}
	s.recordMode()
	return commands
}

func (s *simulation) recordMode() {
	if s.modes[len(s.modes)-1] != s.engine.Mode() {
		s.modes = append(s.modes, s.engine.Mode())
	}
}

func peakToPeak(values []float64) float64 {
	low, _ := stats.Min(values)
	high, _ := stats.Max(values)
	return high - low
}

func TestColdStartToWalking(t *testing.T) {
	s := newSimulation(t, DefaultParameters())
	test.That(t, s.engine.Mode(), test.ShouldEqual, ModeStanding)

	var left, right []float64
	for i := 0; i < 200; i++ {
		s.engine.Walk(Step{Forward: 0.05})
		s.recordMode()
		commands := s.tick(s.context())
		if s.switches >= 3 {
			left = append(left, commands.Positions.LeftLeg.HipPitch)
			right = append(right, commands.Positions.RightLeg.HipPitch)
		}
		if s.switches >= 7 {
			break
		}
	}
	test.That(t, s.modes, test.ShouldResemble, []ModeName{ModeStanding, ModeStarting, ModeWalking})
	test.That(t, s.engine.LastRequestedStep().Forward, test.ShouldAlmostEqual, 0.05)

	test.That(t, peakToPeak(left), test.ShouldBeGreaterThanOrEqualTo, 0.1)
	test.That(t, peakToPeak(right), test.ShouldBeGreaterThanOrEqualTo, 0.1)
	correlation, err := stats.Correlation(left, right)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, correlation, test.ShouldBeLessThan, 0)
}

func TestAccelerationClamp(t *testing.T) {
	params := DefaultParameters()
	params.MaxForwardAcceleration = 0.02
	s := newSimulation(t, params)

	lastSwitches := 0
	previous := 0.0
	for i := 0; i < 400 && s.switches < 12; i++ {
		s.engine.Walk(Step{Forward: 1})
		s.tick(s.context())
		if s.switches == lastSwitches {
			continue
		}
		lastSwitches = s.switches
		// the first switch ends the starting step
		forward := s.engine.LastRequestedStep().Forward
		test.That(t, forward-previous, test.ShouldBeLessThanOrEqualTo, params.MaxForwardAcceleration+1e-12)
		test.That(t, forward, test.ShouldAlmostEqual, min(1, 0.02*float64(s.switches)), 1e-9)
		previous = forward
	}
	test.That(t, s.switches, test.ShouldEqual, 12)
}

type recordedOutputs struct {
	requested map[string]bool
	written   map[string]any
}

func (r *recordedOutputs) AdditionalOutputRequested(path string) bool {
	return r.requested[path]
}

func (r *recordedOutputs) WriteAdditionalOutput(path string, value any) {
	r.written[path] = value
}

func TestCatching(t *testing.T) {
	s := newSimulation(t, DefaultParameters())
	for i := 0; i < 100 && s.engine.Mode() != ModeWalking; i++ {
		s.engine.Walk(ZeroStep)
		s.tick(s.context())
	}
	test.That(t, s.engine.Mode(), test.ShouldEqual, ModeWalking)

	outputs := &recordedOutputs{requested: map[string]bool{ZmpHullOutput: true}, written: map[string]any{}}
	inside := spatialmath.NewPoint2[referenceframe.Walk](0, 0)
	s.engine.Walk(ZeroStep)
	s.tick(Context{CycleDuration: cycle, ZeroMomentPoint: &inside, AdditionalOutputs: outputs})
	test.That(t, s.engine.Mode(), test.ShouldEqual, ModeWalking)
	test.That(t, outputs.written[ZmpHullOutput], test.ShouldNotBeNil)

	outside := spatialmath.NewPoint2[referenceframe.Walk](0.25, 0)
	s.engine.Walk(ZeroStep)
	s.tick(Context{CycleDuration: cycle, ZeroMomentPoint: &outside})
	test.That(t, s.engine.Mode(), test.ShouldEqual, ModeCatching)
	step := s.engine.StepState().Plan.Step
	test.That(t, step.Forward, test.ShouldAlmostEqual, 0.02, 1e-6)
	test.That(t, step.Left, test.ShouldEqual, 0)
	test.That(t, step.Turn, test.ShouldEqual, 0)

	// the catching step ends like any other step
	for i := 0; i < 100 && s.engine.Mode() == ModeCatching; i++ {
		s.engine.Walk(ZeroStep)
		s.tick(s.context())
	}
	test.That(t, s.engine.Mode(), test.ShouldEqual, ModeWalking)
}

func TestCatchingBoundary(t *testing.T) {
	params := DefaultParameters()
	state := NewStepState(NewStepPlan(params, ZeroStep, robot.Left, StandingFeet(params)))
	hull := supportHull(params, state)

	onEdge := spatialmath.NewPoint2[referenceframe.Walk](0.05, 0)
	test.That(t, needsCatching(hull, onEdge), test.ShouldBeFalse)
	behind := spatialmath.NewPoint2[referenceframe.Walk](-0.2, 0)
	test.That(t, needsCatching(hull, behind), test.ShouldBeTrue)
	test.That(t, catchingStep(params, state, behind).Forward, test.ShouldAlmostEqual, -0.1+params.Catching.HeelOffset)
}

func TestStopping(t *testing.T) {
	s := newSimulation(t, DefaultParameters())
	for i := 0; i < 100 && s.switches < 3; i++ {
		s.engine.Walk(Step{Forward: 0.03})
		s.tick(s.context())
	}
	for i := 0; i < 200 && s.engine.Mode() != ModeStanding; i++ {
		s.engine.Stand()
		s.tick(s.context())
	}
	test.That(t, s.modes, test.ShouldResemble, []ModeName{ModeStanding, ModeStarting, ModeWalking, ModeStopping, ModeStanding})

	commands := s.tick(s.context())
	test.That(t, commands.Stiffnesses.LeftLeg.KneePitch, test.ShouldEqual, DefaultParameters().Stiffness.StandRest)
	test.That(t, commands.Stiffnesses.LeftArm.ShoulderPitch, test.ShouldEqual, DefaultParameters().Stiffness.Arm)
}

func TestStepTimeout(t *testing.T) {
	s := newSimulation(t, DefaultParameters())
	// the swing foot never touches down
	s.contactAfter = time.Hour
	s.engine.Walk(Step{Forward: 0.05})
	for i := 0; i < 100 && s.switches < 2; i++ {
		s.tick(s.context())
		state := s.engine.StepState()
		test.That(t, state.TimeSinceStart, test.ShouldBeLessThanOrEqualTo, DefaultParameters().MaxStepDuration)
	}
	test.That(t, s.switches, test.ShouldEqual, 2)
	test.That(t, s.engine.StepState().Plan.Step, test.ShouldResemble, ZeroStep)
}

func TestKick(t *testing.T) {
	params := DefaultParameters()
	s := newSimulation(t, params)
	for i := 0; i < 100 && s.engine.Mode() != ModeWalking; i++ {
		s.engine.Walk(ZeroStep)
		s.tick(s.context())
	}
	// walking starts with the left foot supporting, so the first walking step swings the right foot
	test.That(t, s.engine.StepState().Plan.SupportSide, test.ShouldEqual, robot.Right)

	var kickStiffness float64
	for i := 0; i < 200 && s.engine.Mode() != ModeKicking; i++ {
		s.engine.Kick(KickForward, robot.Left, 1)
		s.tick(s.context())
		kickStiffness = s.engine.LastCommand().Stiffnesses.RightLeg.HipPitch
	}
	test.That(t, s.engine.Mode(), test.ShouldEqual, ModeKicking)
	test.That(t, s.engine.StepState().Plan.SupportSide, test.ShouldEqual, robot.Right)
	test.That(t, kickStiffness, test.ShouldEqual, params.Stiffness.LegKick)

	for i := 0; i < 200 && s.engine.Mode() == ModeKicking; i++ {
		s.engine.Walk(ZeroStep)
		s.tick(s.context())
	}
	test.That(t, s.engine.Mode(), test.ShouldEqual, ModeWalking)
	test.That(t, s.modes, test.ShouldContain, ModeKicking)
}

func TestKickFromStanding(t *testing.T) {
	s := newSimulation(t, DefaultParameters())
	// the starting step supports on the left, so the right foot kicks after one step in place
	s.engine.Kick(KickForward, robot.Right, 0.5)
	test.That(t, s.engine.Mode(), test.ShouldEqual, ModeStarting)
	for i := 0; i < 100 && s.engine.Mode() == ModeStarting; i++ {
		s.tick(s.context())
	}
	test.That(t, s.engine.Mode(), test.ShouldEqual, ModeWalking)
	test.That(t, s.engine.StepState().Plan.Step, test.ShouldResemble, ZeroStep)
	for i := 0; i < 100 && s.engine.Mode() == ModeWalking; i++ {
		s.tick(s.context())
	}
	test.That(t, s.engine.Mode(), test.ShouldEqual, ModeKicking)
	test.That(t, s.engine.StepState().Plan.SupportSide, test.ShouldEqual, robot.Left)
}

func TestInverseKinematicsFailureKeepsLegs(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	engine, err := NewEngine(DefaultParameters(), logger)
	test.That(t, err, test.ShouldBeNil)
	before := engine.Tick(Context{CycleDuration: cycle})

	engine.params.WalkHeight = 0.5
	after := engine.Tick(Context{CycleDuration: cycle})
	test.That(t, after.Positions.LeftLeg, test.ShouldResemble, before.Positions.LeftLeg)
	test.That(t, after.Positions.RightLeg, test.ShouldResemble, before.Positions.RightLeg)
	test.That(t, logs.FilterMessage("leg inverse kinematics failed, keeping previous legs").Len(), test.ShouldEqual, 1)
}

func TestInvalidParameters(t *testing.T) {
	params := DefaultParameters()
	params.StepMidpoint = 1
	_, err := NewEngine(params, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "step midpoint")

	params = DefaultParameters()
	params.WalkHeight = 0.5
	_, err = NewEngine(params, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "stand pose")
}

func TestHeadFollowsMeasurement(t *testing.T) {
	engine, err := NewEngine(DefaultParameters(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	var sensors robot.SensorData
	sensors.PositionsMeasured.Head = joints.HeadJoints[float64]{Yaw: 0.3, Pitch: -0.1}
	commands := engine.Tick(Context{CycleDuration: cycle, SensorData: sensors})
	test.That(t, commands.Positions.Head, test.ShouldResemble, sensors.PositionsMeasured.Head)
	test.That(t, commands.Stiffnesses.Head.Yaw, test.ShouldEqual, DefaultParameters().Stiffness.Head)
}
