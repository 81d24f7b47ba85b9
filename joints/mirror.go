package joints

// Signed is satisfied by values that can change sign when mirrored across the sagittal plane.
type Signed interface {
	~float32 | ~float64
}

// MirrorLeg returns the values of the opposite leg: roll joints change sign, the pitch joints and
// the shared hip yaw pitch keep theirs.
func MirrorLeg[T Signed](leg LegJoints[T]) LegJoints[T] {
	return LegJoints[T]{
		HipYawPitch: leg.HipYawPitch,
		HipRoll:     -leg.HipRoll,
		HipPitch:    leg.HipPitch,
		KneePitch:   leg.KneePitch,
		AnklePitch:  leg.AnklePitch,
		AnkleRoll:   -leg.AnkleRoll,
	}
}

// MirrorArm returns the values of the opposite arm.
func MirrorArm[T Signed](arm ArmJoints[T]) ArmJoints[T] {
	return ArmJoints[T]{
		ShoulderPitch: arm.ShoulderPitch,
		ShoulderRoll:  -arm.ShoulderRoll,
		ElbowYaw:      -arm.ElbowYaw,
		ElbowRoll:     -arm.ElbowRoll,
		WristYaw:      -arm.WristYaw,
		Hand:          arm.Hand,
	}
}

// MirrorHead negates the yaw.
func MirrorHead[T Signed](head HeadJoints[T]) HeadJoints[T] {
	return HeadJoints[T]{Yaw: -head.Yaw, Pitch: head.Pitch}
}

// Mirror swaps left and right and mirrors every group. Mirror(Mirror(j)) == j bit for bit since
// negation is exact.
func Mirror[T Signed](j Joints[T]) Joints[T] {
	return Joints[T]{
		Head:     MirrorHead(j.Head),
		LeftArm:  MirrorArm(j.RightArm),
		RightArm: MirrorArm(j.LeftArm),
		LeftLeg:  MirrorLeg(j.RightLeg),
		RightLeg: MirrorLeg(j.LeftLeg),
	}
}
