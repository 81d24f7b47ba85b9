package spatialmath

import (
	"encoding/json"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/naosoccer/stack/referenceframe"
)

// Orientation3 is a rotation expressed in frame F, stored as a unit quaternion.
type Orientation3[F referenceframe.Frame] struct {
	q quat.Number
}

// IdentityOrientation returns the zero rotation.
func IdentityOrientation[F referenceframe.Frame]() Orientation3[F] {
	return Orientation3[F]{q: quat.Number{Real: 1}}
}

// NewOrientationFromQuaternion normalizes q and wraps it.
func NewOrientationFromQuaternion[F referenceframe.Frame](q quat.Number) Orientation3[F] {
	return Orientation3[F]{q: normalize(q)}
}

// NewOrientationFromEuler returns Rz(yaw) * Ry(pitch) * Rx(roll).
func NewOrientationFromEuler[F referenceframe.Frame](roll, pitch, yaw float64) Orientation3[F] {
	return Orientation3[F]{q: eulerToQuat(roll, pitch, yaw)}
}

// NewOrientationFromAxisAngle rotates by angle about axis. A zero axis yields the identity.
func NewOrientationFromAxisAngle[F referenceframe.Frame](axis Vector3[F], angle float64) Orientation3[F] {
	return Orientation3[F]{q: axisAngleToQuat(axis.R3(), angle)}
}

// Quaternion returns the underlying unit quaternion.
func (o Orientation3[F]) Quaternion() quat.Number {
	if o.q == (quat.Number{}) {
		return quat.Number{Real: 1}
	}
	return o.q
}

// EulerAngles returns roll, pitch, yaw such that the orientation is Rz(yaw) * Ry(pitch) * Rx(roll).
func (o Orientation3[F]) EulerAngles() (roll, pitch, yaw float64) {
	return quatToEuler(o.Quaternion())
}

// Yaw returns the rotation about z.
func (o Orientation3[F]) Yaw() float64 {
	_, _, yaw := o.EulerAngles()
	return yaw
}

// Mul returns o * other, which rotates by other first and then by o.
func (o Orientation3[F]) Mul(other Orientation3[F]) Orientation3[F] {
	return Orientation3[F]{q: normalize(quat.Mul(o.Quaternion(), other.Quaternion()))}
}

// Inverse returns the opposite rotation.
func (o Orientation3[F]) Inverse() Orientation3[F] {
	return Orientation3[F]{q: quat.Conj(o.Quaternion())}
}

// Rotate rotates v.
func (o Orientation3[F]) Rotate(v Vector3[F]) Vector3[F] {
	return vector3FromR3[F](rotate(o.Quaternion(), v.R3()))
}

// Slerp interpolates spherically between a (t=0) and b (t=1).
func Slerp[F referenceframe.Frame](t float64, a, b Orientation3[F]) Orientation3[F] {
	return Orientation3[F]{q: slerp(t, a.Quaternion(), b.Quaternion())}
}

// AngleTo returns the angle of the rotation between o and other.
func (o Orientation3[F]) AngleTo(other Orientation3[F]) float64 {
	diff := quat.Mul(quat.Conj(o.Quaternion()), other.Quaternion())
	return 2 * math.Atan2(math.Sqrt(diff.Imag*diff.Imag+diff.Jmag*diff.Jmag+diff.Kmag*diff.Kmag), math.Abs(diff.Real))
}

// MarshalJSON writes roll, pitch and yaw.
func (o Orientation3[F]) MarshalJSON() ([]byte, error) {
	roll, pitch, yaw := o.EulerAngles()
	return json.Marshal(map[string]float64{"roll": roll, "pitch": pitch, "yaw": yaw})
}

// UnmarshalJSON reads roll, pitch and yaw.
func (o *Orientation3[F]) UnmarshalJSON(data []byte) error {
	var angles struct {
		Roll  float64 `json:"roll"`
		Pitch float64 `json:"pitch"`
		Yaw   float64 `json:"yaw"`
	}
	if err := json.Unmarshal(data, &angles); err != nil {
		return err
	}
	o.q = eulerToQuat(angles.Roll, angles.Pitch, angles.Yaw)
	return nil
}

func normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm < 1e-12 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

func eulerToQuat(roll, pitch, yaw float64) quat.Number {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)
	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// quatToEuler follows
// https://en.wikipedia.org/wiki/Conversion_between_quaternions_and_Euler_angles#Quaternion_to_Euler_angles_conversion
func quatToEuler(q quat.Number) (roll, pitch, yaw float64) {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	sinPitch := 2 * (w*y - z*x)
	if sinPitch > 1 {
		sinPitch = 1
	} else if sinPitch < -1 {
		sinPitch = -1
	}
	pitch = math.Asin(sinPitch)
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}

func axisAngleToQuat(axis r3.Vector, angle float64) quat.Number {
	norm := axis.Norm()
	if norm < 1e-12 {
		return quat.Number{Real: 1}
	}
	axis = axis.Mul(1 / norm)
	s := math.Sin(angle / 2)
	return quat.Number{Real: math.Cos(angle / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

func rotate(q quat.Number, v r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

func slerp(t float64, a, b quat.Number) quat.Number {
	cosHalf := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	if cosHalf < 0 {
		b = quat.Scale(-1, b)
		cosHalf = -cosHalf
	}
	if cosHalf > 0.9995 {
		return normalize(quat.Add(a, quat.Scale(t, quat.Sub(b, a))))
	}
	half := math.Acos(cosHalf)
	sinHalf := math.Sin(half)
	wa := math.Sin((1-t)*half) / sinHalf
	wb := math.Sin(t*half) / sinHalf
	return normalize(quat.Add(quat.Scale(wa, a), quat.Scale(wb, b)))
}

// rotationMatrix returns the row major 3x3 rotation matrix of q.
func rotationMatrix(q quat.Number) [3][3]float64 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// quatFromRotationMatrix is Shepperd's method on a row major rotation matrix.
func quatFromRotationMatrix(m [3][3]float64) quat.Number {
	trace := m[0][0] + m[1][1] + m[2][2]
	var q quat.Number
	switch {
	case trace > 0:
		s := 2 * math.Sqrt(trace+1)
		q = quat.Number{Real: s / 4, Imag: (m[2][1] - m[1][2]) / s, Jmag: (m[0][2] - m[2][0]) / s, Kmag: (m[1][0] - m[0][1]) / s}
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := 2 * math.Sqrt(1+m[0][0]-m[1][1]-m[2][2])
		q = quat.Number{Real: (m[2][1] - m[1][2]) / s, Imag: s / 4, Jmag: (m[0][1] + m[1][0]) / s, Kmag: (m[0][2] + m[2][0]) / s}
	case m[1][1] > m[2][2]:
		s := 2 * math.Sqrt(1+m[1][1]-m[0][0]-m[2][2])
		q = quat.Number{Real: (m[0][2] - m[2][0]) / s, Imag: (m[0][1] + m[1][0]) / s, Jmag: s / 4, Kmag: (m[1][2] + m[2][1]) / s}
	default:
		s := 2 * math.Sqrt(1+m[2][2]-m[0][0]-m[1][1])
		q = quat.Number{Real: (m[1][0] - m[0][1]) / s, Imag: (m[0][2] + m[2][0]) / s, Jmag: (m[1][2] + m[2][1]) / s, Kmag: s / 4}
	}
	return normalize(q)
}
