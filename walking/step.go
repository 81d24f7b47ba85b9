package walking

import "math"

// Step is a requested displacement of the walk frame over one step: forward and left in meters,
// turn in radians.
type Step struct {
	Forward float64 `json:"forward"`
	Left    float64 `json:"left"`
	Turn    float64 `json:"turn"`
}

// ZeroStep steps in place.
var ZeroStep = Step{}

// Add returns the component wise sum.
func (s Step) Add(other Step) Step {
	return Step{Forward: s.Forward + other.Forward, Left: s.Left + other.Left, Turn: s.Turn + other.Turn}
}

// Scale multiplies every component by factor.
func (s Step) Scale(factor float64) Step {
	return Step{Forward: s.Forward * factor, Left: s.Left * factor, Turn: s.Turn * factor}
}

// Abs returns the component wise absolute value.
func (s Step) Abs() Step {
	return Step{Forward: math.Abs(s.Forward), Left: math.Abs(s.Left), Turn: math.Abs(s.Turn)}
}

// Dot returns the weighted sum of the components.
func (s Step) Dot(weights Step) float64 {
	return s.Forward*weights.Forward + s.Left*weights.Left + s.Turn*weights.Turn
}

// Mirror reflects the step at the sagittal plane.
func (s Step) Mirror() Step {
	return Step{Forward: s.Forward, Left: -s.Left, Turn: -s.Turn}
}
