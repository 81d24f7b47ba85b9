package robot

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Side is the left or right half of the body.
type Side int

// The two sides.
const (
	Left Side = iota
	Right
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Left {
		return Right
	}
	return Left
}

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// MarshalJSON writes the side as "left" or "right".
func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON reads "left" or "right".
func (s *Side) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	side, err := SideFromString(name)
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// SideFromString parses "left" or "right".
func SideFromString(name string) (Side, error) {
	switch name {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	default:
		return Left, errors.Errorf("unknown side %q", name)
	}
}
