package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/spatialmath"
)

// legSign is +1 for the left leg and -1 for the right leg.
type legSign float64

const (
	left  legSign = 1
	right legSign = -1
)

// hipYawPitchRotation rotates about the tilted hip yaw pitch axis. The left axis is (0, 1, -1)/√2,
// the right axis is its mirror image.
func hipYawPitchRotation(sign legSign, angle float64) mgl64.Mat4 {
	quarter := float64(sign) * math.Pi / 4
	return mgl64.HomogRotate3DX(quarter).
		Mul4(mgl64.HomogRotate3DZ(-float64(sign) * angle)).
		Mul4(mgl64.HomogRotate3DX(-quarter))
}

func hipToRobot(sign legSign) mgl64.Mat4 {
	return mgl64.Translate3D(0, float64(sign)*HipOffsetY, 0)
}

// belowHipYawPitch chains hip roll to the sole, starting at the hip joint center.
func belowHipYawPitch(leg joints.LegJoints[float64]) mgl64.Mat4 {
	return mgl64.HomogRotate3DX(leg.HipRoll).
		Mul4(mgl64.HomogRotate3DY(leg.HipPitch)).
		Mul4(mgl64.Translate3D(0, 0, -UpperLegLength)).
		Mul4(mgl64.HomogRotate3DY(leg.KneePitch)).
		Mul4(mgl64.Translate3D(0, 0, -LowerLegLength)).
		Mul4(mgl64.HomogRotate3DY(leg.AnklePitch)).
		Mul4(mgl64.HomogRotate3DX(leg.AnkleRoll)).
		Mul4(mgl64.Translate3D(0, 0, -FootHeight))
}

func legForward(sign legSign, leg joints.LegJoints[float64]) mgl64.Mat4 {
	return hipToRobot(sign).
		Mul4(hipYawPitchRotation(sign, leg.HipYawPitch)).
		Mul4(belowHipYawPitch(leg))
}

// LeftSoleToRobot returns the pose of the left sole in the robot frame.
func LeftSoleToRobot(leg joints.LegJoints[float64]) spatialmath.Isometry3[referenceframe.LeftSole, referenceframe.Robot] {
	return spatialmath.Isometry3FromMat4[referenceframe.LeftSole, referenceframe.Robot](legForward(left, leg))
}

// RightSoleToRobot returns the pose of the right sole in the robot frame.
func RightSoleToRobot(leg joints.LegJoints[float64]) spatialmath.Isometry3[referenceframe.RightSole, referenceframe.Robot] {
	return spatialmath.Isometry3FromMat4[referenceframe.RightSole, referenceframe.Robot](legForward(right, leg))
}

// HeadToRobot returns the transform after the neck joints.
func HeadToRobot(head joints.HeadJoints[float64]) spatialmath.Isometry3[referenceframe.Head, referenceframe.Robot] {
	return spatialmath.Isometry3FromMat4[referenceframe.Head, referenceframe.Robot](
		mgl64.Translate3D(0, 0, HipOffsetZ+NeckOffsetZ).
			Mul4(mgl64.HomogRotate3DZ(head.Yaw)).
			Mul4(mgl64.HomogRotate3DY(head.Pitch)),
	)
}

// CameraToHead returns the transform of the mounted camera.
func CameraToHead(mount CameraMount) spatialmath.Isometry3[referenceframe.Camera, referenceframe.Head] {
	return spatialmath.Isometry3FromMat4[referenceframe.Camera, referenceframe.Head](
		mgl64.Translate3D(mount.X, mount.Y, mount.Z).Mul4(mgl64.HomogRotate3DY(mount.Pitch)),
	)
}

// CameraToRobot chains the camera mount and the neck.
func CameraToRobot(head joints.HeadJoints[float64], mount CameraMount) spatialmath.Isometry3[referenceframe.Camera, referenceframe.Robot] {
	return spatialmath.Compose(HeadToRobot(head), CameraToHead(mount))
}
