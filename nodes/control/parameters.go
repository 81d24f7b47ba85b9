package control

import (
	"math"
	"time"

	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/spatialmath"
	"github.com/naosoccer/stack/walking"
)

// Parameters configure the control cycler.
type Parameters struct {
	PlayerNumber int `json:"player_number"`
	// GroundContactThreshold is the total sole pressure in kilograms above which the robot stands
	// on the ground.
	GroundContactThreshold float64                                 `json:"ground_contact_threshold"`
	InitialPose            spatialmath.Pose2[referenceframe.Field] `json:"initial_pose"`

	Walking        walking.Parameters       `json:"walking"`
	FallState      FallStateParameters      `json:"fall_state"`
	BallFilter     BallFilterParameters     `json:"ball_filter"`
	WalkToBall     WalkToBallParameters     `json:"walk_to_ball"`
	FallProtection FallProtectionParameters `json:"fall_protection"`
}

// FallStateParameters are the torso angle thresholds of the fall state estimation.
type FallStateParameters struct {
	LowPassFactor float64 `json:"low_pass_factor"`
	FallingAngle  float64 `json:"falling_angle"`
	FallenAngle   float64 `json:"fallen_angle"`
}

// BallFilterParameters configure how long a ball is remembered.
type BallFilterParameters struct {
	Timeout time.Duration `json:"timeout"`
}

// WalkToBallParameters are the gains of the simple striker behavior.
type WalkToBallParameters struct {
	ForwardGain  float64             `json:"forward_gain"`
	TurnGain     float64             `json:"turn_gain"`
	MaxForward   float64             `json:"max_forward"`
	MaxTurn      float64             `json:"max_turn"`
	KickDistance float64             `json:"kick_distance"`
	KickVariant  walking.KickVariant `json:"kick_variant"`
	KickStrength float64             `json:"kick_strength"`
}

// FallProtectionParameters describe the pose taken while falling.
type FallProtectionParameters struct {
	ArmPose       joints.ArmJoints[float64] `json:"arm_pose"`
	ArmStiffness  float64                   `json:"arm_stiffness"`
	HeadStiffness float64                   `json:"head_stiffness"`
}

// DefaultParameters are the defaults of a field player.
func DefaultParameters() Parameters {
	return Parameters{
		PlayerNumber:           2,
		GroundContactThreshold: 0.3,
		InitialPose:            spatialmath.NewPose2[referenceframe.Field](-1.5, -3.0, math.Pi/2),
		Walking:                walking.DefaultParameters(),
		FallState: FallStateParameters{
			LowPassFactor: 0.5,
			FallingAngle:  0.5,
			FallenAngle:   1.2,
		},
		BallFilter: BallFilterParameters{Timeout: 2 * time.Second},
		WalkToBall: WalkToBallParameters{
			ForwardGain:  0.1,
			TurnGain:     0.5,
			MaxForward:   0.05,
			MaxTurn:      0.5,
			KickDistance: 0.2,
			KickVariant:  walking.KickForward,
			KickStrength: 1.0,
		},
		FallProtection: FallProtectionParameters{
			ArmPose:       joints.ArmJoints[float64]{ShoulderPitch: 0.6, ShoulderRoll: 0.2, ElbowYaw: -math.Pi / 2, ElbowRoll: -0.3},
			ArmStiffness:  0.3,
			HeadStiffness: 0.3,
		},
	}
}
