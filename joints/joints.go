// Package joints contains the joint structure of the NAO body, generic in the per joint value.
package joints

// HeadJoints are the two neck joints.
type HeadJoints[T any] struct {
	Yaw   T `json:"yaw"`
	Pitch T `json:"pitch"`
}

// ArmJoints are the joints of one arm from shoulder to hand.
type ArmJoints[T any] struct {
	ShoulderPitch T `json:"shoulder_pitch"`
	ShoulderRoll  T `json:"shoulder_roll"`
	ElbowYaw      T `json:"elbow_yaw"`
	ElbowRoll     T `json:"elbow_roll"`
	WristYaw      T `json:"wrist_yaw"`
	Hand          T `json:"hand"`
}

// LegJoints are the joints of one leg from hip to ankle.
type LegJoints[T any] struct {
	HipYawPitch T `json:"hip_yaw_pitch"`
	HipRoll     T `json:"hip_roll"`
	HipPitch    T `json:"hip_pitch"`
	KneePitch   T `json:"knee_pitch"`
	AnklePitch  T `json:"ankle_pitch"`
	AnkleRoll   T `json:"ankle_roll"`
}

// BodyJoints are all joints except the head.
type BodyJoints[T any] struct {
	LeftArm  ArmJoints[T] `json:"left_arm"`
	RightArm ArmJoints[T] `json:"right_arm"`
	LeftLeg  LegJoints[T] `json:"left_leg"`
	RightLeg LegJoints[T] `json:"right_leg"`
}

// Joints are all 26 joints of the robot.
type Joints[T any] struct {
	Head     HeadJoints[T] `json:"head"`
	LeftArm  ArmJoints[T]  `json:"left_arm"`
	RightArm ArmJoints[T]  `json:"right_arm"`
	LeftLeg  LegJoints[T]  `json:"left_leg"`
	RightLeg LegJoints[T]  `json:"right_leg"`
}

// Count is the number of joints in Joints.
const Count = 26

// Names lists the joints in the order of Enumerate.
var Names = [Count]string{
	"head.yaw", "head.pitch",
	"left_arm.shoulder_pitch", "left_arm.shoulder_roll", "left_arm.elbow_yaw",
	"left_arm.elbow_roll", "left_arm.wrist_yaw", "left_arm.hand",
	"right_arm.shoulder_pitch", "right_arm.shoulder_roll", "right_arm.elbow_yaw",
	"right_arm.elbow_roll", "right_arm.wrist_yaw", "right_arm.hand",
	"left_leg.hip_yaw_pitch", "left_leg.hip_roll", "left_leg.hip_pitch",
	"left_leg.knee_pitch", "left_leg.ankle_pitch", "left_leg.ankle_roll",
	"right_leg.hip_yaw_pitch", "right_leg.hip_roll", "right_leg.hip_pitch",
	"right_leg.knee_pitch", "right_leg.ankle_pitch", "right_leg.ankle_roll",
}

// FillHead sets both head joints to value.
func FillHead[T any](value T) HeadJoints[T] {
	return HeadJoints[T]{value, value}
}

// FillArm sets all arm joints to value.
func FillArm[T any](value T) ArmJoints[T] {
	return ArmJoints[T]{value, value, value, value, value, value}
}

// FillLeg sets all leg joints to value.
func FillLeg[T any](value T) LegJoints[T] {
	return LegJoints[T]{value, value, value, value, value, value}
}

// Fill sets every joint to value.
func Fill[T any](value T) Joints[T] {
	return Joints[T]{
		Head:     FillHead(value),
		LeftArm:  FillArm(value),
		RightArm: FillArm(value),
		LeftLeg:  FillLeg(value),
		RightLeg: FillLeg(value),
	}
}

// FromBody combines head and body joints.
func FromBody[T any](head HeadJoints[T], body BodyJoints[T]) Joints[T] {
	return Joints[T]{
		Head:     head,
		LeftArm:  body.LeftArm,
		RightArm: body.RightArm,
		LeftLeg:  body.LeftLeg,
		RightLeg: body.RightLeg,
	}
}

// Body drops the head joints.
func (j Joints[T]) Body() BodyJoints[T] {
	return BodyJoints[T]{LeftArm: j.LeftArm, RightArm: j.RightArm, LeftLeg: j.LeftLeg, RightLeg: j.RightLeg}
}

// Enumerate returns the values in the order of Names.
func (j Joints[T]) Enumerate() [Count]T {
	return [Count]T{
		j.Head.Yaw, j.Head.Pitch,
		j.LeftArm.ShoulderPitch, j.LeftArm.ShoulderRoll, j.LeftArm.ElbowYaw,
		j.LeftArm.ElbowRoll, j.LeftArm.WristYaw, j.LeftArm.Hand,
		j.RightArm.ShoulderPitch, j.RightArm.ShoulderRoll, j.RightArm.ElbowYaw,
		j.RightArm.ElbowRoll, j.RightArm.WristYaw, j.RightArm.Hand,
		j.LeftLeg.HipYawPitch, j.LeftLeg.HipRoll, j.LeftLeg.HipPitch,
		j.LeftLeg.KneePitch, j.LeftLeg.AnklePitch, j.LeftLeg.AnkleRoll,
		j.RightLeg.HipYawPitch, j.RightLeg.HipRoll, j.RightLeg.HipPitch,
		j.RightLeg.KneePitch, j.RightLeg.AnklePitch, j.RightLeg.AnkleRoll,
	}
}

// FromArray is the inverse of Enumerate.
func FromArray[T any](values [Count]T) Joints[T] {
	return Joints[T]{
		Head:     HeadJoints[T]{values[0], values[1]},
		LeftArm:  ArmJoints[T]{values[2], values[3], values[4], values[5], values[6], values[7]},
		RightArm: ArmJoints[T]{values[8], values[9], values[10], values[11], values[12], values[13]},
		LeftLeg:  LegJoints[T]{values[14], values[15], values[16], values[17], values[18], values[19]},
		RightLeg: LegJoints[T]{values[20], values[21], values[22], values[23], values[24], values[25]},
	}
}

// Map applies f to every joint.
func Map[T, U any](j Joints[T], f func(T) U) Joints[U] {
	values := j.Enumerate()
	var mapped [Count]U
	for i, value := range values {
		mapped[i] = f(value)
	}
	return FromArray(mapped)
}

// Zip combines two joint sets element wise.
func Zip[T, U, V any](a Joints[T], b Joints[U], f func(T, U) V) Joints[V] {
	left, right := a.Enumerate(), b.Enumerate()
	var zipped [Count]V
	for i := range left {
		zipped[i] = f(left[i], right[i])
	}
	return FromArray(zipped)
}

// MotorCommands are the per cycle actuator targets.
type MotorCommands[T any] struct {
	Positions   T `json:"positions"`
	Stiffnesses T `json:"stiffnesses"`
}
