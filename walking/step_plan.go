package walking

import (
	"time"

	"github.com/naosoccer/stack/robot"
)

// StepPlan is the immutable description of one step.
type StepPlan struct {
	Step         Step          `json:"step"`
	SupportSide  robot.Side    `json:"support_side"`
	StartFeet    Feet          `json:"start_feet"`
	EndFeet      Feet          `json:"end_feet"`
	StepDuration time.Duration `json:"step_duration"`
	FootLiftApex float64       `json:"foot_lift_apex"`
	// Midpoint is the normalized time of the swing foot apex, in (0, 1).
	Midpoint float64 `json:"midpoint"`
}

// NewStepPlan plans a step from start feet. Duration and lift grow with the step size.
func NewStepPlan(params Parameters, step Step, support robot.Side, start Feet) StepPlan {
	step = effectiveStep(step, support)
	magnitude := step.Abs()
	duration := params.BaseStepDuration +
		time.Duration(magnitude.Dot(params.StepDurationIncrease)*float64(time.Second))
	return StepPlan{
		Step:         step,
		SupportSide:  support,
		StartFeet:    start,
		EndFeet:      EndFeet(params, step, support),
		StepDuration: duration,
		FootLiftApex: params.BaseFootLift + magnitude.Dot(params.FootLiftIncrease),
		Midpoint:     params.StepMidpoint,
	}
}

// withStep replans the end of the step keeping the start feet, for mid flight replacement.
func (p StepPlan) withStep(params Parameters, step Step) StepPlan {
	return NewStepPlan(params, step, p.SupportSide, p.StartFeet)
}
