package control

import (
	"time"

	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
	"github.com/naosoccer/stack/walking"
)

// PrimaryState is what the robot is supposed to do on a high level.
type PrimaryState string

// The primary states.
const (
	Unstiff     PrimaryState = "Unstiff"
	Initial     PrimaryState = "Initial"
	Ready       PrimaryState = "Ready"
	Set         PrimaryState = "Set"
	Playing     PrimaryState = "Playing"
	Penalized   PrimaryState = "Penalized"
	Finished    PrimaryState = "Finished"
	Calibration PrimaryState = "Calibration"
)

// FallKind tells whether the robot is falling.
type FallKind string

// The fall kinds.
const (
	Upright FallKind = "Upright"
	Falling FallKind = "Falling"
	Fallen  FallKind = "Fallen"
)

// FallDirection is the direction of a fall.
type FallDirection string

// The fall directions.
const (
	NoDirection FallDirection = ""
	Forward     FallDirection = "Forward"
	Backward    FallDirection = "Backward"
	Leftward    FallDirection = "Left"
	Rightward   FallDirection = "Right"
)

// FallState is the estimated fall state.
type FallState struct {
	Kind      FallKind      `json:"kind"`
	Direction FallDirection `json:"direction,omitempty"`
}

// MotionKind selects who commands the motors.
type MotionKind string

// The motion kinds.
const (
	MotionUnstiff        MotionKind = "Unstiff"
	MotionPenalized      MotionKind = "Penalized"
	MotionStand          MotionKind = "Stand"
	MotionWalk           MotionKind = "Walk"
	MotionKick           MotionKind = "Kick"
	MotionFallProtection MotionKind = "FallProtection"
)

// KickCommand requests a kick.
type KickCommand struct {
	Variant  walking.KickVariant `json:"variant"`
	Side     robot.Side          `json:"side"`
	Strength float64             `json:"strength"`
}

// MotionCommand is the motion selected for this cycle.
type MotionCommand struct {
	Kind MotionKind   `json:"kind"`
	Step walking.Step `json:"step"`
	Kick KickCommand  `json:"kick"`
	// Direction of the fall while in fall protection.
	FallDirection FallDirection `json:"fall_direction,omitempty"`
}

// WalkCommandKind is what the walking engine is asked to do.
type WalkCommandKind string

// The walk command kinds.
const (
	WalkCommandStand WalkCommandKind = "Stand"
	WalkCommandWalk  WalkCommandKind = "Walk"
	WalkCommandKick  WalkCommandKind = "Kick"
)

// WalkCommand is the request to the walking engine.
type WalkCommand struct {
	Kind WalkCommandKind `json:"kind"`
	Step walking.Step    `json:"step"`
	Kick KickCommand     `json:"kick"`
}

// CycleTime describes the running tick.
type CycleTime struct {
	StartTime         time.Time     `json:"start_time"`
	LastCycleDuration time.Duration `json:"last_cycle_duration"`
}

// BallPosition is the filtered ball.
type BallPosition struct {
	Position spatialmath.Point2[referenceframe.Ground] `json:"position"`
	LastSeen time.Time                                 `json:"last_seen"`
}
