package walking

import (
	"time"

	"github.com/naosoccer/stack/control"
	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
	"github.com/naosoccer/stack/utils"
)

// StepState is the execution state of a step plan.
type StepState struct {
	Plan           StepPlan      `json:"plan"`
	TimeSinceStart time.Duration `json:"time_since_start"`
	// GyroBalancing is added to the support leg.
	GyroBalancing joints.LegJoints[float64] `json:"gyro_balancing"`
	// FootLeveling is added to the swing leg.
	FootLeveling joints.LegJoints[float64] `json:"foot_leveling"`

	timedOut bool
	feet     Feet

	supportLift  float64
	supportRoll  float64
	supportPitch float64
	swingRoll    float64
	swingPitch   float64
}

// NewStepState starts executing plan.
func NewStepState(plan StepPlan) *StepState {
	supportRoll, supportPitch, _ := plan.StartFeet.Support.Orientation.EulerAngles()
	swingRoll, swingPitch, _ := plan.StartFeet.Swing.Orientation.EulerAngles()
	return &StepState{
		Plan:         plan,
		feet:         plan.StartFeet,
		supportLift:  plan.StartFeet.Support.Position.Z,
		supportRoll:  supportRoll,
		supportPitch: supportPitch,
		swingRoll:    swingRoll,
		swingPitch:   swingPitch,
	}
}

// NormalizedTime is the progress through the step in [0, 1].
func (s *StepState) NormalizedTime() float64 {
	if s.Plan.StepDuration <= 0 {
		return 1
	}
	return utils.Clamp(s.TimeSinceStart.Seconds()/s.Plan.StepDuration.Seconds(), 0, 1)
}

// Feet are the sole poses of the last tick.
func (s *StepState) Feet() Feet {
	return s.feet
}

// TimedOut reports whether the step exceeded the maximum step duration.
func (s *StepState) TimedOut() bool {
	return s.timedOut
}

// IsSupportSwitched reports ground contact of the swing foot after the minimum step duration.
func (s *StepState) IsSupportSwitched(params Parameters, fsr robot.ForceSensitiveResistors) bool {
	swingPressure := fsr.Foot(s.Plan.SupportSide.Opposite()).Sum()
	return swingPressure > params.SolePressureThreshold && s.TimeSinceStart > params.MinStepDuration
}

// replan replaces the plan keeping time and the reached sole state.
func (s *StepState) replan(plan StepPlan) {
	s.Plan = plan
}

// tick advances the time by cycle and moves the soles along their trajectories.
func (s *StepState) tick(params Parameters, cycle time.Duration, gyro spatialmath.Vector3[referenceframe.Robot], torsoRoll, torsoPitch float64) {
	s.TimeSinceStart += cycle
	if s.TimeSinceStart > params.MaxStepDuration {
		s.TimeSinceStart = params.MaxStepDuration
		s.timedOut = true
	}
	dt := cycle.Seconds()
	t := s.NormalizedTime()
	start, end := s.Plan.StartFeet, s.Plan.EndFeet

	supportPosition := spatialmath.LerpPoint2(t, start.Support.Position.XY(), end.Support.Position.XY())
	s.supportLift = control.LimitRate(s.supportLift,
		utils.Lerp(t, start.Support.Position.Z, end.Support.Position.Z), params.MaxSupportFootLiftSpeed, dt)
	endSupportRoll, endSupportPitch, endSupportYaw := end.Support.Orientation.EulerAngles()
	_, _, startSupportYaw := start.Support.Orientation.EulerAngles()
	s.supportRoll = control.LimitRate(s.supportRoll, endSupportRoll, params.MaxRotationSpeed, dt)
	s.supportPitch = control.LimitRate(s.supportPitch, endSupportPitch, params.MaxRotationSpeed, dt)

	swingPosition := spatialmath.LerpPoint2(parabolicStep(t), start.Swing.Position.XY(), end.Swing.Position.XY())
	swingLift := utils.Lerp(t, start.Swing.Position.Z, end.Swing.Position.Z) +
		s.Plan.FootLiftApex*parabolicReturn(t, s.Plan.Midpoint)
	endSwingRoll, endSwingPitch, endSwingYaw := end.Swing.Orientation.EulerAngles()
	_, _, startSwingYaw := start.Swing.Orientation.EulerAngles()
	s.swingRoll = control.LimitRate(s.swingRoll, endSwingRoll, params.MaxRotationSpeed, dt)
	s.swingPitch = control.LimitRate(s.swingPitch, endSwingPitch, params.MaxRotationSpeed, dt)

	s.feet = Feet{
		Support: spatialmath.NewPose3(supportPosition.Extend(s.supportLift),
			s.supportRoll, s.supportPitch, utils.Lerp(t, startSupportYaw, endSupportYaw)),
		Swing: spatialmath.NewPose3(swingPosition.Extend(swingLift),
			s.swingRoll, s.swingPitch, utils.Lerp(t, startSwingYaw, endSwingYaw)),
	}

	s.GyroBalancing = joints.LegJoints[float64]{
		AnklePitch: params.GyroBalanceFactors.Pitch * gyro.Y,
		AnkleRoll:  params.GyroBalanceFactors.Roll * gyro.X,
	}
	blend := levelingBlend(t, s.Plan.Midpoint)
	s.FootLeveling = joints.LegJoints[float64]{
		AnklePitch: -torsoPitch * params.FootLevelingFactors.Pitch * blend,
		AnkleRoll:  -torsoRoll * params.FootLevelingFactors.Roll * blend,
	}
}

// addLegs adds offsets joint wise.
func addLegs(a, b joints.LegJoints[float64]) joints.LegJoints[float64] {
	return joints.LegJoints[float64]{
		HipYawPitch: a.HipYawPitch + b.HipYawPitch,
		HipRoll:     a.HipRoll + b.HipRoll,
		HipPitch:    a.HipPitch + b.HipPitch,
		KneePitch:   a.KneePitch + b.KneePitch,
		AnklePitch:  a.AnklePitch + b.AnklePitch,
		AnkleRoll:   a.AnkleRoll + b.AnkleRoll,
	}
}

// balance applies the gyro correction to the support leg and foot leveling to the swing leg.
func (s *StepState) balance(left, right joints.LegJoints[float64]) (joints.LegJoints[float64], joints.LegJoints[float64]) {
	if s.Plan.SupportSide == robot.Left {
		return addLegs(left, s.GyroBalancing), addLegs(right, s.FootLeveling)
	}
	return addLegs(left, s.FootLeveling), addLegs(right, s.GyroBalancing)
}
