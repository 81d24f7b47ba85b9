package walking

import (
	"math"
	"time"

	"gonum.org/v1/gonum/interp"

	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/utils"
)

// ArmState is the state of one arm.
type ArmState string

// Arm states. An arm pulled tight moves behind the back via the pull back pose and returns the
// same way.
const (
	ArmSwing          ArmState = "swing"
	ArmPullingBack    ArmState = "pulling_back"
	ArmPullingTight   ArmState = "pulling_tight"
	ArmTight          ArmState = "tight"
	ArmReleasingTight ArmState = "releasing_tight"
	ArmReleasingBack  ArmState = "releasing_back"
)

// armTransition interpolates between two arm poses with zero velocity at both ends.
type armTransition struct {
	from     joints.ArmJoints[float64]
	to       joints.ArmJoints[float64]
	duration time.Duration
	elapsed  time.Duration
	easing   interp.ClampedCubic
}

func newArmTransition(from, to joints.ArmJoints[float64], duration time.Duration) *armTransition {
	transition := &armTransition{from: from, to: to, duration: duration}
	if duration > 0 {
		// two knots with clamped ends give a smoothstep from 0 to 1
		if err := transition.easing.Fit([]float64{0, duration.Seconds()}, []float64{0, 1}); err != nil {
			transition.duration = 0
		}
	}
	return transition
}

func (t *armTransition) done() bool {
	return t.elapsed >= t.duration
}

// advance moves by cycle. A non nil target replaces the end pose, which lets a transition follow
// the moving swing pose.
func (t *armTransition) advance(cycle time.Duration, target *joints.ArmJoints[float64]) joints.ArmJoints[float64] {
	if target != nil {
		t.to = *target
	}
	t.elapsed += cycle
	if t.done() {
		return t.to
	}
	s := t.easing.Predict(t.elapsed.Seconds())
	return joints.ArmJoints[float64]{
		ShoulderPitch: utils.Lerp(s, t.from.ShoulderPitch, t.to.ShoulderPitch),
		ShoulderRoll:  utils.Lerp(s, t.from.ShoulderRoll, t.to.ShoulderRoll),
		ElbowYaw:      utils.Lerp(s, t.from.ElbowYaw, t.to.ElbowYaw),
		ElbowRoll:     utils.Lerp(s, t.from.ElbowRoll, t.to.ElbowRoll),
		WristYaw:      utils.Lerp(s, t.from.WristYaw, t.to.WristYaw),
		Hand:          utils.Lerp(s, t.from.Hand, t.to.Hand),
	}
}

// swingingArm is the state machine of one arm. Poses are handled in left arm convention and
// mirrored for the right arm on output.
type swingingArm struct {
	side       robot.Side
	state      ArmState
	transition *armTransition
	last       joints.ArmJoints[float64]
}

func newSwingingArm(side robot.Side, params ArmParameters) *swingingArm {
	return &swingingArm{side: side, state: ArmSwing, last: params.SwingPose}
}

// swingPose computes the swing of this arm from the legs, in left arm convention.
// oppositeFootX is the x of the opposite foot in the walk frame and hipRoll the hip roll of the
// leg on the same side, in left leg convention.
func swingPose(params ArmParameters, oppositeFootX, hipRoll float64) joints.ArmJoints[float64] {
	pose := params.SwingPose
	pose.ShoulderPitch = math.Pi/2 - oppositeFootX*params.PitchFactor
	pose.ShoulderRoll = params.DefaultRoll + params.RollFactor*hipRoll
	return pose
}

// tick advances the state machine and returns the arm joints in the convention of the arm's side.
func (a *swingingArm) tick(params ArmParameters, cycle time.Duration, pullTight bool, swing joints.ArmJoints[float64]) joints.ArmJoints[float64] {
	switch a.state {
	case ArmSwing:
		if pullTight {
			a.state = ArmPullingBack
			a.transition = newArmTransition(swing, params.PullBackPose, params.PullBackDuration)
			a.last = a.transition.advance(cycle, nil)
		} else {
			a.last = swing
		}
	case ArmPullingBack:
		if !pullTight {
			a.state = ArmReleasingBack
			a.transition = newArmTransition(a.last, swing, params.PullBackDuration)
			a.last = a.transition.advance(cycle, &swing)
			break
		}
		a.last = a.transition.advance(cycle, nil)
		if a.transition.done() {
			a.state = ArmPullingTight
			a.transition = newArmTransition(params.PullBackPose, params.PullTightPose, params.PullTightDuration)
		}
	case ArmPullingTight:
		a.last = a.transition.advance(cycle, nil)
		if a.transition.done() {
			a.state = ArmTight
			a.transition = nil
		}
	case ArmTight:
		a.last = params.PullTightPose
		if !pullTight {
			a.state = ArmReleasingTight
			a.transition = newArmTransition(params.PullTightPose, params.PullBackPose, params.PullTightDuration)
		}
	case ArmReleasingTight:
		a.last = a.transition.advance(cycle, nil)
		if a.transition.done() {
			a.state = ArmReleasingBack
			a.transition = newArmTransition(params.PullBackPose, swing, params.PullBackDuration)
		}
	case ArmReleasingBack:
		a.last = a.transition.advance(cycle, &swing)
		if a.transition.done() {
			a.state = ArmSwing
			a.transition = nil
		}
	}

	if a.side == robot.Right {
		return joints.MirrorArm(a.last)
	}
	return a.last
}
