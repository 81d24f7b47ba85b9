package gamecontroller

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ReturnMessage is the status a player reports back to the game controller.
type ReturnMessage struct {
	PlayerNumber int  `json:"player_number"`
	Fallen       bool `json:"fallen"`
	// BallPosition is relative to the robot in meters, nil if no ball is known.
	BallPosition *[2]float64 `json:"ball_position,omitempty"`
	BallAge      float64     `json:"ball_age,omitempty"`
}

// EncodeReturnMessage checks the player number and encodes message.
func EncodeReturnMessage(message ReturnMessage) ([]byte, error) {
	if err := checkPlayer(message.PlayerNumber); err != nil {
		return nil, err
	}
	return json.Marshal(message)
}

// ParseReturnMessage is the inverse of EncodeReturnMessage.
func ParseReturnMessage(data []byte) (ReturnMessage, error) {
	var message ReturnMessage
	if err := json.Unmarshal(data, &message); err != nil {
		return ReturnMessage{}, errors.Wrap(err, "parsing return message")
	}
	return message, checkPlayer(message.PlayerNumber)
}
