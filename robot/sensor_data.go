package robot

import (
	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/spatialmath"
)

// SensorData is one sample of all proprioceptive sensors.
type SensorData struct {
	PositionsMeasured       joints.Joints[float64]  `json:"positions"`
	TemperatureSensors      joints.Joints[float64]  `json:"temperatures"`
	ForceSensitiveResistors ForceSensitiveResistors `json:"force_sensitive_resistors"`
	InertialMeasurementUnit InertialMeasurementUnit `json:"inertial_measurement_unit"`
	Buttons                 Buttons                 `json:"buttons"`
}

// Foot holds the four pressure sensors of one sole in kilograms.
type Foot struct {
	FrontLeft  float64 `json:"front_left"`
	FrontRight float64 `json:"front_right"`
	RearLeft   float64 `json:"rear_left"`
	RearRight  float64 `json:"rear_right"`
}

// Sum is the total pressure on the foot.
func (f Foot) Sum() float64 {
	return f.FrontLeft + f.FrontRight + f.RearLeft + f.RearRight
}

// ForceSensitiveResistors are the sole pressure sensors of both feet.
type ForceSensitiveResistors struct {
	Left  Foot `json:"left"`
	Right Foot `json:"right"`
}

// Foot returns the sensors of the foot on side.
func (f ForceSensitiveResistors) Foot(side Side) Foot {
	if side == Left {
		return f.Left
	}
	return f.Right
}

// Sum is the total pressure on both feet.
func (f ForceSensitiveResistors) Sum() float64 {
	return f.Left.Sum() + f.Right.Sum()
}

// InertialMeasurementUnit is the torso IMU sample.
type InertialMeasurementUnit struct {
	// AngularVelocity in rad/s around the robot axes.
	AngularVelocity spatialmath.Vector3[referenceframe.Robot] `json:"angular_velocity"`
	// LinearAcceleration in m/s², including gravity.
	LinearAcceleration spatialmath.Vector3[referenceframe.Robot] `json:"linear_acceleration"`
	// Roll and Pitch of the torso relative to gravity, in rad.
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// Buttons are the touch sensors.
type Buttons struct {
	ChestPressed bool `json:"chest_pressed"`
	HeadFront    bool `json:"head_front"`
	HeadMiddle   bool `json:"head_middle"`
	HeadRear     bool `json:"head_rear"`
}
