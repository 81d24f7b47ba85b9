package vision

import (
	"math"

	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/kinematics"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
)

// CameraMatrix relates pixels of one image to the ground.
type CameraMatrix struct {
	CameraToGround spatialmath.Isometry3[referenceframe.Camera, referenceframe.Ground] `json:"camera_to_ground"`
	FocalLength    float64                                                             `json:"focal_length"`
	Center         spatialmath.Point2[referenceframe.Pixel]                            `json:"center"`
}

// MountFor returns the mount of camera.
func MountFor(camera robot.CameraPosition) kinematics.CameraMount {
	if camera == robot.TopCamera {
		return kinematics.TopCamera
	}
	return kinematics.BottomCamera
}

// NewCameraMatrix builds the camera matrix of an image with width × height pixels.
func NewCameraMatrix(
	camera robot.CameraPosition,
	head joints.HeadJoints[float64],
	robotToGround spatialmath.Isometry3[referenceframe.Robot, referenceframe.Ground],
	fieldOfView float64,
	width, height int,
) CameraMatrix {
	return CameraMatrix{
		CameraToGround: spatialmath.Compose(robotToGround, kinematics.CameraToRobot(head, MountFor(camera))),
		FocalLength:    float64(width) / (2 * math.Tan(fieldOfView/2)),
		Center:         spatialmath.NewPoint2[referenceframe.Pixel](float64(width)/2, float64(height)/2),
	}
}

// PixelToGround intersects the ray through pixel with the plane height meters above the ground.
// It fails for pixels above the horizon.
func (m CameraMatrix) PixelToGround(
	pixel spatialmath.Point2[referenceframe.Pixel],
	height float64,
) (spatialmath.Point2[referenceframe.Ground], bool) {
	ray := spatialmath.NewVector3[referenceframe.Camera](
		1,
		(m.Center.X-pixel.X)/m.FocalLength,
		(m.Center.Y-pixel.Y)/m.FocalLength,
	)
	origin := m.CameraToGround.Transform(spatialmath.Point3[referenceframe.Camera]{})
	direction := m.CameraToGround.TransformVector(ray)
	if direction.Z >= 0 || origin.Z <= height {
		return spatialmath.Point2[referenceframe.Ground]{}, false
	}
	t := (height - origin.Z) / direction.Z
	return origin.Add(direction.Scale(t)).XY(), true
}

// GroundToPixel projects a point into the image. It fails for points behind the camera.
func (m CameraMatrix) GroundToPixel(point spatialmath.Point3[referenceframe.Ground]) (spatialmath.Point2[referenceframe.Pixel], bool) {
	inCamera := m.CameraToGround.Inverse().Transform(point)
	if inCamera.X <= 0 {
		return spatialmath.Point2[referenceframe.Pixel]{}, false
	}
	return spatialmath.NewPoint2[referenceframe.Pixel](
		m.Center.X-m.FocalLength*inCamera.Y/inCamera.X,
		m.Center.Y-m.FocalLength*inCamera.Z/inCamera.X,
	), true
}
