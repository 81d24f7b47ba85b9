package robot

import (
	"image"
	"time"
)

// CameraPosition selects the top (forehead) or bottom (mouth) camera.
type CameraPosition int

// The two cameras.
const (
	TopCamera CameraPosition = iota
	BottomCamera
)

func (c CameraPosition) String() string {
	if c == TopCamera {
		return "top"
	}
	return "bottom"
}

// Image is a camera frame in YCbCr.
type Image struct {
	Camera    CameraPosition `json:"camera"`
	Timestamp time.Time      `json:"timestamp"`
	Frame     *image.YCbCr   `json:"-"`
}

// Samples is one buffer of microphone audio, one slice per channel.
type Samples struct {
	Rate     int         `json:"rate"`
	Channels [][]float32 `json:"-"`
}

// MessageKind tells how the payload of a network message is encoded.
type MessageKind string

// Known message kinds.
const (
	GameControllerMessage MessageKind = "game_controller"
	SplMessage            MessageKind = "spl"
)

// IncomingMessage is a datagram received from the network.
type IncomingMessage struct {
	Kind      MessageKind `json:"kind"`
	Sender    string      `json:"sender"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   []byte      `json:"payload"`
}

// OutgoingMessage is a datagram to send.
type OutgoingMessage struct {
	Kind    MessageKind `json:"kind"`
	Payload []byte      `json:"payload"`
}
