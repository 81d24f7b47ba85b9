package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/spatialmath"
)

// ErrUnreachable is returned when a sole pose lies outside the workspace of its leg.
var ErrUnreachable = errors.New("sole pose is not reachable")

// kneeTolerance absorbs rounding of fully stretched legs.
const kneeTolerance = 1e-9

// legSolution holds the joints below the hip yaw pitch of one leg and the remaining hip rotation.
type legSolution struct {
	kneePitch  float64
	anklePitch float64
	ankleRoll  float64
	// hipRotation is the rotation of the hip joint chain before the thigh,
	// i.e. hip yaw pitch times hip roll times hip pitch.
	hipRotation mgl64.Mat3
}

// solveBelowHip computes knee and ankle from the ankle pose relative to the hip joint center.
func solveBelowHip(ankleToHip mgl64.Mat4) (legSolution, error) {
	rotation := ankleToHip.Mat3()
	translation := ankleToHip.Col(3).Vec3()
	// hip joint center expressed in the ankle frame
	hip := rotation.Transpose().Mul3x1(translation).Mul(-1)

	distanceSquared := hip.Dot(hip)
	cosKnee := (distanceSquared - UpperLegLength*UpperLegLength - LowerLegLength*LowerLegLength) /
		(2 * UpperLegLength * LowerLegLength)
	if cosKnee > 1+kneeTolerance || cosKnee < -1-kneeTolerance {
		return legSolution{}, errors.Wrapf(ErrUnreachable, "hip to ankle distance %.4f", math.Sqrt(distanceSquared))
	}
	cosKnee = math.Max(-1, math.Min(1, cosKnee))
	knee := math.Acos(cosKnee)

	ankleRoll := math.Atan2(hip.Y(), hip.Z())
	anklePitch := math.Atan2(-hip.X(), math.Hypot(hip.Y(), hip.Z())) -
		math.Atan2(UpperLegLength*math.Sin(knee), UpperLegLength*math.Cos(knee)+LowerLegLength)

	hipRotation := rotation.
		Mul3(mgl64.Rotate3DX(-ankleRoll)).
		Mul3(mgl64.Rotate3DY(-(knee + anklePitch)))
	return legSolution{
		kneePitch:   knee,
		anklePitch:  anklePitch,
		ankleRoll:   ankleRoll,
		hipRotation: hipRotation,
	}, nil
}

// decomposeZXY splits r into Rz(a) * Rx(b) * Ry(c).
func decomposeZXY(r mgl64.Mat3) (a, b, c float64) {
	b = math.Asin(math.Max(-1, math.Min(1, r.At(2, 1))))
	c = math.Atan2(-r.At(2, 0), r.At(2, 2))
	a = math.Atan2(-r.At(0, 1), r.At(1, 1))
	return a, b, c
}

// hipYawPitch recovers the hip yaw pitch of a single leg.
func (s legSolution) hipYawPitch(sign legSign) float64 {
	untilted := mgl64.Rotate3DX(-float64(sign) * math.Pi / 4).Mul3(s.hipRotation)
	a, _, _ := decomposeZXY(untilted)
	return -float64(sign) * a
}

// withHipYawPitch completes the leg for a fixed hip yaw pitch. Residual yaw that the fixed angle
// cannot realize is dropped.
func (s legSolution) withHipYawPitch(sign legSign, hipYawPitch float64) joints.LegJoints[float64] {
	remaining := hipYawPitchRotation(sign, hipYawPitch).Mat3().Transpose().Mul3(s.hipRotation)
	_, hipRoll, hipPitch := decomposeZXY(remaining)
	return joints.LegJoints[float64]{
		HipYawPitch: hipYawPitch,
		HipRoll:     hipRoll,
		HipPitch:    hipPitch,
		KneePitch:   s.kneePitch,
		AnklePitch:  s.anklePitch,
		AnkleRoll:   s.ankleRoll,
	}
}

func ankleToHip(sign legSign, soleToRobot mgl64.Mat4) mgl64.Mat4 {
	return hipToRobot(sign).Inv().Mul4(soleToRobot).Mul4(mgl64.Translate3D(0, 0, FootHeight))
}

// LegAngles computes the joints of both legs placing the soles at the given poses. The hip yaw
// pitch is a single motor on the NAO, so it is averaged between the legs and both legs are
// completed with the shared value.
func LegAngles(
	leftSole spatialmath.Isometry3[referenceframe.LeftSole, referenceframe.Robot],
	rightSole spatialmath.Isometry3[referenceframe.RightSole, referenceframe.Robot],
) (joints.LegJoints[float64], joints.LegJoints[float64], error) {
	leftSolution, err := solveBelowHip(ankleToHip(left, leftSole.Mat4()))
	if err != nil {
		return joints.LegJoints[float64]{}, joints.LegJoints[float64]{}, errors.Wrap(err, "left leg")
	}
	rightSolution, err := solveBelowHip(ankleToHip(right, rightSole.Mat4()))
	if err != nil {
		return joints.LegJoints[float64]{}, joints.LegJoints[float64]{}, errors.Wrap(err, "right leg")
	}

	hipYawPitch := (leftSolution.hipYawPitch(left) + rightSolution.hipYawPitch(right)) / 2
	return leftSolution.withHipYawPitch(left, hipYawPitch), rightSolution.withHipYawPitch(right, hipYawPitch), nil
}
