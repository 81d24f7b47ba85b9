package walking

import (
	"math"
	"time"

	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
)

// Parameters tune the walking engine. Durations are written as strings like "250ms" in parameter
// files.
type Parameters struct {
	BaseStepDuration time.Duration `json:"base_step_duration"`
	// StepDurationIncrease adds seconds per meter (radian) of step.
	StepDurationIncrease Step          `json:"step_duration_increase"`
	MinStepDuration      time.Duration `json:"min_step_duration"`
	MaxStepDuration      time.Duration `json:"max_step_duration"`
	// SolePressureThreshold is the swing foot pressure in kilograms that signals ground contact.
	SolePressureThreshold float64 `json:"sole_pressure_threshold"`

	WalkHeight   float64    `json:"walk_height"`
	TorsoOffset  float64    `json:"torso_offset"`
	TorsoTilt    float64    `json:"torso_tilt"`
	FootOffsetY  float64    `json:"foot_offset_y"`
	StartingSide robot.Side `json:"starting_side"`

	MaxForwardAcceleration float64 `json:"max_forward_acceleration"`
	MaxTurnAcceleration    float64 `json:"max_turn_acceleration"`
	ForwardTurnThreshold   float64 `json:"forward_turn_threshold"`
	ForwardTurnReduction   float64 `json:"forward_turn_reduction"`

	MaxSupportFootLiftSpeed float64 `json:"max_support_foot_lift_speed"`
	MaxRotationSpeed        float64 `json:"max_rotation_speed"`
	BaseFootLift            float64 `json:"base_foot_lift"`
	// FootLiftIncrease adds apex height per meter (radian) of step.
	FootLiftIncrease Step    `json:"foot_lift_increase"`
	StepMidpoint     float64 `json:"step_midpoint"`

	GyroLowPassFactor   float64      `json:"gyro_low_pass_factor"`
	GyroBalanceFactors  AngleFactors `json:"gyro_balance_factors"`
	FootLevelingFactors AngleFactors `json:"foot_leveling_factors"`

	Arms      ArmParameters       `json:"arms"`
	Catching  CatchingParameters  `json:"catching"`
	Stiffness StiffnessParameters `json:"stiffness"`
	Kicks     KickVariants        `json:"kicks"`
}

// AngleFactors scale a correction about the pitch and roll axes.
type AngleFactors struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// ArmParameters configure arm swing and pulling the arms tight.
type ArmParameters struct {
	PitchFactor float64 `json:"pitch_factor"`
	RollFactor  float64 `json:"roll_factor"`
	DefaultRoll float64 `json:"default_roll"`
	// Poses are given for the left arm and mirrored for the right arm.
	SwingPose         joints.ArmJoints[float64] `json:"swing_pose"`
	PullBackPose      joints.ArmJoints[float64] `json:"pull_back_pose"`
	PullTightPose     joints.ArmJoints[float64] `json:"pull_tight_pose"`
	PullBackDuration  time.Duration             `json:"pull_back_duration"`
	PullTightDuration time.Duration             `json:"pull_tight_duration"`
}

// CatchingParameters configure catching steps.
type CatchingParameters struct {
	Enabled       bool    `json:"enabled"`
	MaxAdjustment float64 `json:"max_adjustment"`
	ToeOffset     float64 `json:"toe_offset"`
	HeelOffset    float64 `json:"heel_offset"`
	// SoleOutline is the polygon of the left sole; the right sole uses its mirror image.
	SoleOutline []spatialmath.Point2[referenceframe.LeftSole] `json:"sole_outline"`
}

// StiffnessParameters are the motor stiffnesses per mode.
type StiffnessParameters struct {
	LegWalk   float64 `json:"leg_walk"`
	LegKick   float64 `json:"leg_kick"`
	StandRest float64 `json:"stand_rest"`
	Arm       float64 `json:"arm"`
	Head      float64 `json:"head"`
}

// DefaultParameters are tuned for the NAO v6.
func DefaultParameters() Parameters {
	return Parameters{
		BaseStepDuration:      250 * time.Millisecond,
		StepDurationIncrease:  Step{Forward: 0.5, Left: 0.5, Turn: 0.05},
		MinStepDuration:       175 * time.Millisecond,
		MaxStepDuration:       500 * time.Millisecond,
		SolePressureThreshold: 0.5,

		WalkHeight:   0.23,
		TorsoOffset:  0.015,
		TorsoTilt:    0.05,
		FootOffsetY:  0.052,
		StartingSide: robot.Left,

		MaxForwardAcceleration: 0.02,
		MaxTurnAcceleration:    0.3,
		ForwardTurnThreshold:   0.03,
		ForwardTurnReduction:   0.5,

		MaxSupportFootLiftSpeed: 0.04,
		MaxRotationSpeed:        0.5,
		BaseFootLift:            0.012,
		FootLiftIncrease:        Step{Forward: 0.1, Left: 0.1, Turn: 0.01},
		StepMidpoint:            0.5,

		GyroLowPassFactor:   0.32,
		GyroBalanceFactors:  AngleFactors{Pitch: 0.05, Roll: 0.03},
		FootLevelingFactors: AngleFactors{Pitch: 0.5, Roll: 0.5},

		Arms: ArmParameters{
			PitchFactor:       8.0,
			RollFactor:        0.5,
			DefaultRoll:       0.1,
			SwingPose:         joints.ArmJoints[float64]{ShoulderPitch: math.Pi / 2, ShoulderRoll: 0.1, ElbowYaw: -math.Pi / 2, ElbowRoll: -0.1, WristYaw: -math.Pi / 2},
			PullBackPose:      joints.ArmJoints[float64]{ShoulderPitch: 1.9, ShoulderRoll: 0.25, ElbowYaw: -math.Pi / 2, ElbowRoll: -0.3, WristYaw: -math.Pi / 2},
			PullTightPose:     joints.ArmJoints[float64]{ShoulderPitch: 1.9, ShoulderRoll: -0.1, ElbowYaw: 0, ElbowRoll: -0.05, WristYaw: -math.Pi / 2},
			PullBackDuration:  300 * time.Millisecond,
			PullTightDuration: 200 * time.Millisecond,
		},
		Catching: CatchingParameters{
			Enabled:       true,
			MaxAdjustment: 0.1,
			ToeOffset:     0.08,
			HeelOffset:    0.02,
			SoleOutline: []spatialmath.Point2[referenceframe.LeftSole]{
				{X: -0.05, Y: -0.025},
				{X: 0.05, Y: -0.025},
				{X: 0.05, Y: 0.025},
				{X: -0.05, Y: 0.025},
			},
		},
		Stiffness: StiffnessParameters{
			LegWalk:   0.8,
			LegKick:   1.0,
			StandRest: 0.6,
			Arm:       0.8,
			Head:      0.8,
		},
		Kicks: DefaultKickVariants(),
	}
}
