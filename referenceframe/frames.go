// Package referenceframe defines the coordinate frames spatial quantities are expressed in.
//
// A frame is a zero-size marker type used as a type parameter of the spatialmath wrappers, e.g.
// spatialmath.Point3[referenceframe.Robot]. Mixing up frames is therefore a compile error: an
// Isometry3[Robot, Walk] only accepts Point3[Robot] and only produces Point3[Walk].
package referenceframe

// Frame is satisfied by every frame marker.
type Frame interface {
	frameName() string
}

// Ground is the robot-fixed frame on the ground plane below the robot, x forward, z up.
type Ground struct{}

// Robot is the torso frame located at the hip center, x forward, y left, z up.
type Robot struct{}

// Walk is the frame the walking engine plans in: the robot frame shifted by the torso offset,
// lowered by the walk height and tilted by the torso tilt.
type Walk struct{}

// Field is the global frame of the soccer field, origin at the center spot, x towards the
// opponent goal.
type Field struct{}

// LeftSole is the frame of the left sole, origin below the ankle on the sole plane.
type LeftSole struct{}

// RightSole is the frame of the right sole.
type RightSole struct{}

// Head is the frame after the head yaw and pitch joints.
type Head struct{}

// Camera is a camera frame, x along the optical axis.
type Camera struct{}

// Pixel is the 2D image frame, x right, y down.
type Pixel struct{}

func (Ground) frameName() string    { return "ground" }
func (Robot) frameName() string     { return "robot" }
func (Walk) frameName() string      { return "walk" }
func (Field) frameName() string     { return "field" }
func (LeftSole) frameName() string  { return "left_sole" }
func (RightSole) frameName() string { return "right_sole" }
func (Head) frameName() string      { return "head" }
func (Camera) frameName() string    { return "camera" }
func (Pixel) frameName() string     { return "pixel" }

// Name returns the snake case name of the frame F, used in logs and serialized outputs.
func Name[F Frame]() string {
	var frame F
	return frame.frameName()
}
