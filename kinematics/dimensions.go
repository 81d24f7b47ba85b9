// Package kinematics implements forward and closed-form inverse kinematics of the NAO legs and head.
package kinematics

// Dimensions of the NAO body in meters, measured between joint axes. The robot frame origin is the
// hip center, HipOffsetZ below the torso center.
const (
	HipOffsetY      = 0.05
	HipOffsetZ      = 0.085
	UpperLegLength  = 0.1
	LowerLegLength  = 0.1029
	FootHeight      = 0.04519
	NeckOffsetZ     = 0.1265
	ShoulderOffsetY = 0.098
	ShoulderOffsetZ = 0.1
	UpperArmLength  = 0.105
)

// CameraMount describes where a camera sits relative to the head joint.
type CameraMount struct {
	X, Y, Z float64
	Pitch   float64
}

var (
	// TopCamera is mounted in the forehead, tilted down by 1.2 degrees.
	TopCamera = CameraMount{X: 0.05871, Z: 0.06364, Pitch: 0.0209}
	// BottomCamera is mounted in the mouth, tilted down by 39.7 degrees.
	BottomCamera = CameraMount{X: 0.05071, Z: 0.01774, Pitch: 0.6929}
)
