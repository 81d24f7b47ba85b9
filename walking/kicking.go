package walking

import (
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/robot"
)

// KickVariant selects one of the configured kick motions.
type KickVariant string

// Kick variants.
const (
	KickForward KickVariant = "forward"
	KickTurn    KickVariant = "turn"
	KickSide    KickVariant = "side"
)

// KickRequest asks for a kick with the foot on Side.
type KickRequest struct {
	Variant  KickVariant `json:"variant"`
	Side     robot.Side  `json:"side"`
	Strength float64     `json:"strength"`
}

// SupportSide is the foot that has to carry the robot while kicking.
func (r KickRequest) SupportSide() robot.Side {
	return r.Side.Opposite()
}

// KeyFrame is a joint offset reached at Time after the start of a kick step.
type KeyFrame struct {
	Time  time.Duration `json:"time"`
	Value float64       `json:"value"`
}

// KickStep is one step of a kick, given for the left kicking foot.
type KickStep struct {
	BaseStep     Step          `json:"base_step"`
	StepDuration time.Duration `json:"step_duration"`
	FootLiftApex float64       `json:"foot_lift_apex"`
	Midpoint     float64       `json:"midpoint"`
	// Overrides are added to the swing leg and scaled by the kick strength.
	HipPitchOverride   []KeyFrame `json:"hip_pitch_override"`
	AnklePitchOverride []KeyFrame `json:"ankle_pitch_override"`
}

// KickVariants holds the steps of every kick variant.
type KickVariants struct {
	Forward []KickStep `json:"forward"`
	Turn    []KickStep `json:"turn"`
	Side    []KickStep `json:"side"`
}

// Steps returns the steps of variant.
func (v KickVariants) Steps(variant KickVariant) ([]KickStep, error) {
	switch variant {
	case KickForward:
		return v.Forward, nil
	case KickTurn:
		return v.Turn, nil
	case KickSide:
		return v.Side, nil
	default:
		return nil, errors.Errorf("unknown kick variant %q", variant)
	}
}

// DefaultKickVariants are the kicks tuned for the NAO v6.
func DefaultKickVariants() KickVariants {
	strike := []KeyFrame{
		{Time: 0, Value: 0},
		{Time: 80 * time.Millisecond, Value: -0.25},
		{Time: 160 * time.Millisecond, Value: 0.1},
		{Time: 280 * time.Millisecond, Value: 0},
	}
	ankle := []KeyFrame{
		{Time: 0, Value: 0},
		{Time: 80 * time.Millisecond, Value: 0.15},
		{Time: 160 * time.Millisecond, Value: -0.1},
		{Time: 280 * time.Millisecond, Value: 0},
	}
	return KickVariants{
		Forward: []KickStep{
			{BaseStep: Step{Forward: 0.04}, StepDuration: 300 * time.Millisecond, FootLiftApex: 0.02, Midpoint: 0.4,
				HipPitchOverride: strike, AnklePitchOverride: ankle},
			{BaseStep: Step{Forward: 0.02}, StepDuration: 250 * time.Millisecond, FootLiftApex: 0.012, Midpoint: 0.5},
		},
		Turn: []KickStep{
			{BaseStep: Step{Forward: 0.02, Turn: -0.4}, StepDuration: 300 * time.Millisecond, FootLiftApex: 0.02, Midpoint: 0.4,
				HipPitchOverride: strike},
			{BaseStep: Step{Turn: -0.2}, StepDuration: 250 * time.Millisecond, FootLiftApex: 0.012, Midpoint: 0.5},
		},
		Side: []KickStep{
			{BaseStep: Step{Left: -0.03}, StepDuration: 300 * time.Millisecond, FootLiftApex: 0.02, Midpoint: 0.5},
			{BaseStep: Step{}, StepDuration: 250 * time.Millisecond, FootLiftApex: 0.012, Midpoint: 0.5},
		},
	}
}

// plan builds the step plan of this kick step swinging swingSide. The base step is mirrored for
// the right foot.
func (k KickStep) plan(params Parameters, swingSide robot.Side, start Feet) StepPlan {
	step := k.BaseStep
	if swingSide == robot.Right {
		step = step.Mirror()
	}
	support := swingSide.Opposite()
	plan := NewStepPlan(params, step, support, start)
	if k.StepDuration > 0 {
		plan.StepDuration = k.StepDuration
	}
	if k.FootLiftApex > 0 {
		plan.FootLiftApex = k.FootLiftApex
	}
	if k.Midpoint > 0 && k.Midpoint < 1 {
		plan.Midpoint = k.Midpoint
	}
	return plan
}

// keyFrameCurve evaluates keyframes scaled by strength with linear interpolation. Outside the
// keyframes it holds the first and last value.
type keyFrameCurve struct {
	curve    interp.PiecewiseLinear
	constant *float64
}

func newKeyFrameCurve(frames []KeyFrame, strength float64) (*keyFrameCurve, error) {
	switch len(frames) {
	case 0:
		return nil, nil
	case 1:
		value := frames[0].Value * strength
		return &keyFrameCurve{constant: &value}, nil
	}
	xs := make([]float64, len(frames))
	ys := make([]float64, len(frames))
	for i, frame := range frames {
		xs[i] = frame.Time.Seconds()
		ys[i] = frame.Value
	}
	floats.Scale(strength, ys)
	curve := &keyFrameCurve{}
	if err := curve.curve.Fit(xs, ys); err != nil {
		return nil, errors.Wrap(err, "kick keyframes")
	}
	return curve, nil
}

func (c *keyFrameCurve) at(t time.Duration) float64 {
	if c == nil {
		return 0
	}
	if c.constant != nil {
		return *c.constant
	}
	return c.curve.Predict(t.Seconds())
}

// kickOverrides adds the joint offsets of one kick step to the swing leg.
type kickOverrides struct {
	hipPitch   *keyFrameCurve
	anklePitch *keyFrameCurve
}

func newKickOverrides(step KickStep, strength float64) (kickOverrides, error) {
	hipPitch, err := newKeyFrameCurve(step.HipPitchOverride, strength)
	if err != nil {
		return kickOverrides{}, errors.Wrap(err, "hip pitch")
	}
	anklePitch, err := newKeyFrameCurve(step.AnklePitchOverride, strength)
	if err != nil {
		return kickOverrides{}, errors.Wrap(err, "ankle pitch")
	}
	return kickOverrides{hipPitch: hipPitch, anklePitch: anklePitch}, nil
}

func (o kickOverrides) apply(leg joints.LegJoints[float64], t time.Duration) joints.LegJoints[float64] {
	leg.HipPitch += o.hipPitch.at(t)
	leg.AnklePitch += o.anklePitch.at(t)
	return leg
}
