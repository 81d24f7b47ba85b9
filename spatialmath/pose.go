package spatialmath

import (
	"fmt"
	"math"

	"github.com/naosoccer/stack/referenceframe"
)

// Pose3 is a position and orientation expressed in frame F.
type Pose3[F referenceframe.Frame] struct {
	Position    Point3[F]       `json:"position"`
	Orientation Orientation3[F] `json:"orientation"`
}

// NewPose3 returns a pose at the given position with roll, pitch and yaw.
func NewPose3[F referenceframe.Frame](position Point3[F], roll, pitch, yaw float64) Pose3[F] {
	return Pose3[F]{Position: position, Orientation: NewOrientationFromEuler[F](roll, pitch, yaw)}
}

// Yaw returns the heading of the pose.
func (p Pose3[F]) Yaw() float64 {
	return p.Orientation.Yaw()
}

// Ground projects the pose onto the xy plane.
func (p Pose3[F]) Ground() Pose2[F] {
	return Pose2[F]{Position: p.Position.XY(), Angle: p.Yaw()}
}

func (p Pose3[F]) String() string {
	roll, pitch, yaw := p.Orientation.EulerAngles()
	return fmt.Sprintf("Pose3[%s](%.4f, %.4f, %.4f | %.3f, %.3f, %.3f)",
		referenceframe.Name[F](), p.Position.X, p.Position.Y, p.Position.Z, roll, pitch, yaw)
}

// Pose2 is a planar position and heading in frame F.
type Pose2[F referenceframe.Frame] struct {
	Position Point2[F] `json:"position"`
	Angle    float64   `json:"angle"`
}

// NewPose2 returns a planar pose.
func NewPose2[F referenceframe.Frame](x, y, angle float64) Pose2[F] {
	return Pose2[F]{Position: Point2[F]{X: x, Y: y}, Angle: angle}
}

// Transform maps a point given relative to the pose into F.
func (p Pose2[F]) Transform(local Vector2[F]) Point2[F] {
	sin, cos := math.Sincos(p.Angle)
	return Point2[F]{
		X: p.Position.X + cos*local.X - sin*local.Y,
		Y: p.Position.Y + sin*local.X + cos*local.Y,
	}
}
