package walking

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
)

func TestClampStep(t *testing.T) {
	params := DefaultParameters()
	params.MaxForwardAcceleration = 0.02
	params.MaxTurnAcceleration = 0.2
	params.ForwardTurnThreshold = 0.03
	params.ForwardTurnReduction = 0.5

	t.Run("accelerate", func(t *testing.T) {
		step := clampStep(params, Step{Forward: 1}, ZeroStep)
		test.That(t, step.Forward, test.ShouldAlmostEqual, 0.02)
		step = clampStep(params, Step{Forward: 1}, step)
		test.That(t, step.Forward, test.ShouldAlmostEqual, 0.04)
	})

	t.Run("reverse passes through zero", func(t *testing.T) {
		step := clampStep(params, Step{Forward: -1}, Step{Forward: 0.01})
		test.That(t, step.Forward, test.ShouldEqual, 0)
		step = clampStep(params, Step{Forward: -1}, step)
		test.That(t, step.Forward, test.ShouldAlmostEqual, -0.02)
		step = clampStep(params, Step{Forward: 1}, Step{Forward: -0.01})
		test.That(t, step.Forward, test.ShouldEqual, 0)
	})

	t.Run("turn is reduced while walking fast", func(t *testing.T) {
		step := clampStep(params, Step{Turn: 1}, ZeroStep)
		test.That(t, step.Turn, test.ShouldAlmostEqual, 0.2)
		step = clampStep(params, Step{Forward: 0.05, Turn: 1}, Step{Forward: 0.04})
		test.That(t, step.Forward, test.ShouldAlmostEqual, 0.05)
		test.That(t, step.Turn, test.ShouldAlmostEqual, 0.1)
	})

	t.Run("left is passed through", func(t *testing.T) {
		step := clampStep(params, Step{Left: 0.08}, ZeroStep)
		test.That(t, step.Left, test.ShouldEqual, 0.08)
	})
}

func TestEndFeet(t *testing.T) {
	params := DefaultParameters()

	feet := EndFeet(params, Step{Forward: 0.04, Turn: 0.2}, robot.Left)
	test.That(t, feet.Support.Position.X, test.ShouldAlmostEqual, -0.02)
	test.That(t, feet.Swing.Position.X, test.ShouldAlmostEqual, 0.02)
	test.That(t, feet.Support.Position.Y, test.ShouldAlmostEqual, params.FootOffsetY)
	test.That(t, feet.Swing.Position.Y, test.ShouldAlmostEqual, -params.FootOffsetY)
	test.That(t, feet.Support.Yaw(), test.ShouldAlmostEqual, -0.1)
	test.That(t, feet.Swing.Yaw(), test.ShouldAlmostEqual, 0.1)

	// a step to the left with the left foot supporting would cross the feet
	plan := NewStepPlan(params, Step{Left: 0.05}, robot.Left, StandingFeet(params))
	test.That(t, plan.Step.Left, test.ShouldEqual, 0)
	plan = NewStepPlan(params, Step{Left: 0.05}, robot.Right, StandingFeet(params))
	test.That(t, plan.Step.Left, test.ShouldEqual, 0.05)
	test.That(t, plan.EndFeet.Swing.Position.Y, test.ShouldAlmostEqual, params.FootOffsetY+0.025)
}

func TestStepPlan(t *testing.T) {
	params := DefaultParameters()
	plan := NewStepPlan(params, Step{Forward: 0.04}, robot.Left, StandingFeet(params))
	test.That(t, plan.StepDuration.Seconds(), test.ShouldAlmostEqual, params.BaseStepDuration.Seconds()+0.02, 1e-6)
	test.That(t, plan.FootLiftApex, test.ShouldAlmostEqual, params.BaseFootLift+0.004)
	test.That(t, plan.Midpoint, test.ShouldEqual, params.StepMidpoint)
	test.That(t, plan.SupportSide, test.ShouldEqual, robot.Left)

	replanned := plan.withStep(params, Step{Forward: 0.02})
	test.That(t, replanned.StartFeet, test.ShouldResemble, plan.StartFeet)
	test.That(t, replanned.EndFeet.Swing.Position.X, test.ShouldAlmostEqual, 0.01)
}

func TestStepStatePhase(t *testing.T) {
	params := DefaultParameters()
	state := NewStepState(NewStepPlan(params, Step{Forward: 0.04}, robot.Left, StandingFeet(params)))
	gyro := spatialmath.Vector3[referenceframe.Robot]{}

	var previous time.Duration
	for i := 0; i < 100; i++ {
		state.tick(params, 12*time.Millisecond, gyro, 0, 0)
		test.That(t, state.TimeSinceStart, test.ShouldBeGreaterThanOrEqualTo, previous)
		test.That(t, state.TimeSinceStart, test.ShouldBeLessThanOrEqualTo, params.MaxStepDuration)
		test.That(t, state.NormalizedTime(), test.ShouldBeBetweenOrEqual, 0, 1)
		previous = state.TimeSinceStart
	}
	test.That(t, state.TimedOut(), test.ShouldBeTrue)

	// the swing foot reached its target and touched down
	swing := state.Feet().Swing.Position
	test.That(t, swing.X, test.ShouldAlmostEqual, 0.02, 1e-9)
	test.That(t, swing.Z, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestSupportSwitchDetection(t *testing.T) {
	params := DefaultParameters()
	state := NewStepState(NewStepPlan(params, ZeroStep, robot.Left, StandingFeet(params)))
	pressed := robot.ForceSensitiveResistors{Right: robot.Foot{FrontLeft: 0.3, RearRight: 0.3}}
	gyro := spatialmath.Vector3[referenceframe.Robot]{}

	state.tick(params, 100*time.Millisecond, gyro, 0, 0)
	test.That(t, state.IsSupportSwitched(params, pressed), test.ShouldBeFalse)
	state.tick(params, 100*time.Millisecond, gyro, 0, 0)
	test.That(t, state.IsSupportSwitched(params, pressed), test.ShouldBeTrue)
	// pressure under the support foot does not count
	test.That(t, state.IsSupportSwitched(params, robot.ForceSensitiveResistors{Left: pressed.Right}), test.ShouldBeFalse)
}
