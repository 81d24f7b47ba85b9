// Package robot defines the hardware abstraction consumed by the cyclers and the data types
// crossing it.
package robot

import (
	"context"
	"time"

	"github.com/naosoccer/stack/joints"
)

// SensorInterface reads proprioceptive sensors. ReadSensorData blocks until the hardware delivers
// the next sample, which paces the control cycler.
type SensorInterface interface {
	ReadSensorData(ctx context.Context) (SensorData, error)
}

// ActuatorInterface commands the joint motors and LEDs.
type ActuatorInterface interface {
	WriteToActuators(ctx context.Context, positions, stiffnesses joints.Joints[float64], leds Leds) error
}

// CameraInterface grabs camera frames. ReadImage blocks until a new frame of the camera is available.
type CameraInterface interface {
	ReadImage(ctx context.Context, camera CameraPosition) (Image, error)
}

// MicrophoneInterface reads audio buffers.
type MicrophoneInterface interface {
	ReadMicrophones(ctx context.Context) (Samples, error)
}

// NetworkInterface exchanges team and game controller messages.
type NetworkInterface interface {
	ReadFromNetwork(ctx context.Context) (IncomingMessage, error)
	WriteToNetwork(ctx context.Context, message OutgoingMessage) error
}

// TimeInterface is the hardware clock.
type TimeInterface interface {
	Now() time.Time
}

// PathsInterface locates the on robot directories.
type PathsInterface interface {
	Paths() Paths
}

// IDsInterface identifies the body and head.
type IDsInterface interface {
	IDs() IDs
}

// HardwareInterface is the complete capability set of a robot.
type HardwareInterface interface {
	SensorInterface
	ActuatorInterface
	CameraInterface
	MicrophoneInterface
	NetworkInterface
	TimeInterface
	PathsInterface
	IDsInterface
}

// IDs are the serial numbers of body and head, which are swappable on the NAO.
type IDs struct {
	BodyID string `json:"body_id"`
	HeadID string `json:"head_id"`
}

// Paths are the directories the software reads from.
type Paths struct {
	Parameters string `json:"parameters"`
	Logs       string `json:"logs"`
}

// Leds are the controllable LEDs. Colors are RGB in [0, 1].
type Leds struct {
	Chest    [3]float64 `json:"chest"`
	LeftEye  [3]float64 `json:"left_eye"`
	RightEye [3]float64 `json:"right_eye"`
}
