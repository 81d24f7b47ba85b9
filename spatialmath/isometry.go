package spatialmath

import (
	"encoding/json"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/utils"
)

// Isometry3 is a rigid transform mapping coordinates of frame From into frame To.
// Equivalently it is the pose of From expressed in To.
type Isometry3[From, To referenceframe.Frame] struct {
	rotation    quat.Number
	translation r3.Vector
}

// IdentityIsometry3 maps every point to the same coordinates. Only meaningful between frames that
// coincide.
func IdentityIsometry3[From, To referenceframe.Frame]() Isometry3[From, To] {
	return Isometry3[From, To]{rotation: quat.Number{Real: 1}}
}

// NewIsometry3 builds x ↦ rotation*x + translation.
func NewIsometry3[From, To referenceframe.Frame](translation Vector3[To], rotation Orientation3[To]) Isometry3[From, To] {
	return Isometry3[From, To]{rotation: rotation.Quaternion(), translation: translation.R3()}
}

// Translation3 is a pure translation.
func Translation3[From, To referenceframe.Frame](x, y, z float64) Isometry3[From, To] {
	return Isometry3[From, To]{rotation: quat.Number{Real: 1}, translation: r3.Vector{X: x, Y: y, Z: z}}
}

// RotationX3 is a pure rotation about the x axis.
func RotationX3[From, To referenceframe.Frame](angle float64) Isometry3[From, To] {
	return Isometry3[From, To]{rotation: axisAngleToQuat(r3.Vector{X: 1}, angle)}
}

// RotationY3 is a pure rotation about the y axis.
func RotationY3[From, To referenceframe.Frame](angle float64) Isometry3[From, To] {
	return Isometry3[From, To]{rotation: axisAngleToQuat(r3.Vector{Y: 1}, angle)}
}

// RotationZ3 is a pure rotation about the z axis.
func RotationZ3[From, To referenceframe.Frame](angle float64) Isometry3[From, To] {
	return Isometry3[From, To]{rotation: axisAngleToQuat(r3.Vector{Z: 1}, angle)}
}

// Isometry3FromMat4 converts a homogeneous matrix. The rotation part is assumed orthonormal.
func Isometry3FromMat4[From, To referenceframe.Frame](m mgl64.Mat4) Isometry3[From, To] {
	var rot [3][3]float64
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			rot[row][col] = m.At(row, col)
		}
	}
	return Isometry3[From, To]{
		rotation:    quatFromRotationMatrix(rot),
		translation: r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)},
	}
}

// Mat4 returns the homogeneous matrix.
func (iso Isometry3[From, To]) Mat4() mgl64.Mat4 {
	rot := rotationMatrix(iso.quaternion())
	return mgl64.Mat4FromRows(
		mgl64.Vec4{rot[0][0], rot[0][1], rot[0][2], iso.translation.X},
		mgl64.Vec4{rot[1][0], rot[1][1], rot[1][2], iso.translation.Y},
		mgl64.Vec4{rot[2][0], rot[2][1], rot[2][2], iso.translation.Z},
		mgl64.Vec4{0, 0, 0, 1},
	)
}

func (iso Isometry3[From, To]) quaternion() quat.Number {
	if iso.rotation == (quat.Number{}) {
		return quat.Number{Real: 1}
	}
	return iso.rotation
}

// Transform maps a point of From into To.
func (iso Isometry3[From, To]) Transform(p Point3[From]) Point3[To] {
	return point3FromR3[To](rotate(iso.quaternion(), p.R3()).Add(iso.translation))
}

// TransformVector maps a displacement of From into To, ignoring the translation.
func (iso Isometry3[From, To]) TransformVector(v Vector3[From]) Vector3[To] {
	return vector3FromR3[To](rotate(iso.quaternion(), v.R3()))
}

// TransformOrientation maps an orientation expressed in From into To.
func (iso Isometry3[From, To]) TransformOrientation(o Orientation3[From]) Orientation3[To] {
	return Orientation3[To]{q: normalize(quat.Mul(iso.quaternion(), o.Quaternion()))}
}

// TransformPose maps a pose expressed in From into To.
func (iso Isometry3[From, To]) TransformPose(p Pose3[From]) Pose3[To] {
	return Pose3[To]{Position: iso.Transform(p.Position), Orientation: iso.TransformOrientation(p.Orientation)}
}

// Inverse returns the transform from To back to From.
func (iso Isometry3[From, To]) Inverse() Isometry3[To, From] {
	inverse := quat.Conj(iso.quaternion())
	return Isometry3[To, From]{
		rotation:    inverse,
		translation: rotate(inverse, iso.translation).Mul(-1),
	}
}

// Translation returns the origin of From expressed in To.
func (iso Isometry3[From, To]) Translation() Vector3[To] {
	return vector3FromR3[To](iso.translation)
}

// Rotation returns the orientation of From's axes expressed in To.
func (iso Isometry3[From, To]) Rotation() Orientation3[To] {
	return Orientation3[To]{q: iso.quaternion()}
}

// AsPose returns the pose of From in To.
func (iso Isometry3[From, To]) AsPose() Pose3[To] {
	return Pose3[To]{Position: point3FromR3[To](iso.translation), Orientation: iso.Rotation()}
}

// Compose chains ab (A to B) and bc (B to C) into A to C. Frames must line up at compile time.
func Compose[A, B, C referenceframe.Frame](bc Isometry3[B, C], ab Isometry3[A, B]) Isometry3[A, C] {
	return Isometry3[A, C]{
		rotation:    normalize(quat.Mul(bc.quaternion(), ab.quaternion())),
		translation: rotate(bc.quaternion(), ab.translation).Add(bc.translation),
	}
}

// PoseToIsometry interprets the pose of frame From expressed in To as the transform From to To.
func PoseToIsometry[From, To referenceframe.Frame](pose Pose3[To]) Isometry3[From, To] {
	return Isometry3[From, To]{rotation: pose.Orientation.Quaternion(), translation: pose.Position.R3()}
}

// Isometry3AlmostEqual compares translation and rotation within epsilon.
func Isometry3AlmostEqual[From, To referenceframe.Frame](a, b Isometry3[From, To], epsilon float64) bool {
	if a.translation.Sub(b.translation).Norm() > epsilon {
		return false
	}
	return a.Rotation().AngleTo(b.Rotation()) <= epsilon
}

type isometryJSON struct {
	Translation [3]float64 `json:"translation"`
	Rotation    [3]float64 `json:"rotation"`
}

// MarshalJSON writes the translation and roll, pitch, yaw.
func (iso Isometry3[From, To]) MarshalJSON() ([]byte, error) {
	roll, pitch, yaw := quatToEuler(iso.quaternion())
	return json.Marshal(isometryJSON{
		Translation: [3]float64{iso.translation.X, iso.translation.Y, iso.translation.Z},
		Rotation:    [3]float64{roll, pitch, yaw},
	})
}

// UnmarshalJSON reads the format written by MarshalJSON.
func (iso *Isometry3[From, To]) UnmarshalJSON(data []byte) error {
	var decoded isometryJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	iso.translation = r3.Vector{X: decoded.Translation[0], Y: decoded.Translation[1], Z: decoded.Translation[2]}
	iso.rotation = eulerToQuat(decoded.Rotation[0], decoded.Rotation[1], decoded.Rotation[2])
	return nil
}

// Isometry2 is a planar rigid transform from From into To.
type Isometry2[From, To referenceframe.Frame] struct {
	Angle       float64     `json:"angle"`
	Translation Vector2[To] `json:"translation"`
}

// NewIsometry2 builds x ↦ R(angle)*x + translation.
func NewIsometry2[From, To referenceframe.Frame](translation Vector2[To], angle float64) Isometry2[From, To] {
	return Isometry2[From, To]{Angle: angle, Translation: translation}
}

// Transform maps a point of From into To.
func (iso Isometry2[From, To]) Transform(p Point2[From]) Point2[To] {
	return iso.TransformVector(p.Coords()).Add(iso.Translation).AsPoint()
}

// TransformVector maps a displacement of From into To.
func (iso Isometry2[From, To]) TransformVector(v Vector2[From]) Vector2[To] {
	sin, cos := math.Sincos(iso.Angle)
	return Vector2[To]{X: cos*v.X - sin*v.Y, Y: sin*v.X + cos*v.Y}
}

// Inverse returns the transform from To back to From.
func (iso Isometry2[From, To]) Inverse() Isometry2[To, From] {
	rotateBack := Isometry2[To, From]{Angle: -iso.Angle}
	return Isometry2[To, From]{
		Angle:       -iso.Angle,
		Translation: rotateBack.TransformVector(iso.Translation).Scale(-1),
	}
}

// Compose2 chains ab and bc into A to C.
func Compose2[A, B, C referenceframe.Frame](bc Isometry2[B, C], ab Isometry2[A, B]) Isometry2[A, C] {
	return Isometry2[A, C]{
		Angle:       utils.NormalizeAngle(bc.Angle + ab.Angle),
		Translation: bc.Transform(ab.Translation.AsPoint()).Coords(),
	}
}
