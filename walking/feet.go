package walking

import (
	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/kinematics"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
)

// RobotToWalk places the walk frame on the ground, torso offset ahead of the hip center and
// walk height below it, tilted by the torso tilt.
func RobotToWalk(params Parameters) spatialmath.Isometry3[referenceframe.Robot, referenceframe.Walk] {
	return spatialmath.Compose(
		spatialmath.Translation3[referenceframe.Walk, referenceframe.Walk](-params.TorsoOffset, 0, params.WalkHeight),
		spatialmath.RotationY3[referenceframe.Robot, referenceframe.Walk](params.TorsoTilt),
	)
}

// Feet are the support and swing sole poses of one instant. Which sole is which is decided by the
// support side stored alongside.
type Feet struct {
	Support spatialmath.Pose3[referenceframe.Walk] `json:"support"`
	Swing   spatialmath.Pose3[referenceframe.Walk] `json:"swing"`
}

// FeetFromLegs computes the sole poses of the given leg joints.
func FeetFromLegs(
	robotToWalk spatialmath.Isometry3[referenceframe.Robot, referenceframe.Walk],
	left, right joints.LegJoints[float64],
	support robot.Side,
) Feet {
	leftSole := spatialmath.Compose(robotToWalk, kinematics.LeftSoleToRobot(left)).AsPose()
	rightSole := spatialmath.Compose(robotToWalk, kinematics.RightSoleToRobot(right)).AsPose()
	if support == robot.Left {
		return Feet{Support: leftSole, Swing: rightSole}
	}
	return Feet{Support: rightSole, Swing: leftSole}
}

// Sides returns the left and right sole poses.
func (f Feet) Sides(support robot.Side) (left, right spatialmath.Pose3[referenceframe.Walk]) {
	if support == robot.Left {
		return f.Support, f.Swing
	}
	return f.Swing, f.Support
}

// Swapped exchanges support and swing, as happens on a support switch.
func (f Feet) Swapped() Feet {
	return Feet{Support: f.Swing, Swing: f.Support}
}

// sideSign is +1 for the left and -1 for the right side.
func sideSign(side robot.Side) float64 {
	if side == robot.Left {
		return 1
	}
	return -1
}

// effectiveStep drops the lateral component if it would move the swing foot into the support foot.
func effectiveStep(step Step, support robot.Side) Step {
	swingSign := sideSign(support.Opposite())
	if step.Left*swingSign < 0 {
		step.Left = 0
	}
	return step
}

// EndFeet places the feet at the end of a step. The walk frame ends up centered between them.
func EndFeet(params Parameters, step Step, support robot.Side) Feet {
	supportBaseY := sideSign(support) * params.FootOffsetY
	swingBaseY := -supportBaseY
	return Feet{
		Support: spatialmath.NewPose3(
			spatialmath.NewPoint3[referenceframe.Walk](-step.Forward/2, supportBaseY-step.Left/2, 0),
			0, 0, -step.Turn/2,
		),
		Swing: spatialmath.NewPose3(
			spatialmath.NewPoint3[referenceframe.Walk](step.Forward/2, swingBaseY+step.Left/2, 0),
			0, 0, step.Turn/2,
		),
	}
}

// StandingFeet are the feet of the stand pose.
func StandingFeet(params Parameters) Feet {
	return EndFeet(params, ZeroStep, robot.Left)
}

// LegsFromFeet solves the leg joints placing the soles at feet.
func LegsFromFeet(
	robotToWalk spatialmath.Isometry3[referenceframe.Robot, referenceframe.Walk],
	feet Feet,
	support robot.Side,
) (joints.LegJoints[float64], joints.LegJoints[float64], error) {
	walkToRobot := robotToWalk.Inverse()
	leftPose, rightPose := feet.Sides(support)
	leftSole := spatialmath.Compose(walkToRobot, spatialmath.PoseToIsometry[referenceframe.LeftSole](leftPose))
	rightSole := spatialmath.Compose(walkToRobot, spatialmath.PoseToIsometry[referenceframe.RightSole](rightPose))
	return kinematics.LegAngles(leftSole, rightSole)
}
