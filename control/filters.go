// Package control contains the small signal processing blocks used by the motion nodes.
package control

import (
	"math"

	"github.com/pkg/errors"

	"github.com/naosoccer/stack/utils"
)

// LowPassFilter is a first order exponential smoothing filter y ← y + α(x − y).
type LowPassFilter struct {
	alpha       float64
	state       float64
	initialized bool
}

// NewLowPassFilter returns a filter with smoothing factor alpha in (0, 1]. An alpha of 1 passes
// the input through.
func NewLowPassFilter(alpha float64) (*LowPassFilter, error) {
	if alpha <= 0 || alpha > 1 || math.IsNaN(alpha) {
		return nil, errors.Errorf("low pass filter alpha must be in (0, 1], got %v", alpha)
	}
	return &LowPassFilter{alpha: alpha}, nil
}

// Reset forgets the state. The next sample initializes the filter.
func (f *LowPassFilter) Reset() {
	f.state = 0
	f.initialized = false
}

// Next feeds x and returns the filtered value. The first sample after a reset passes through.
func (f *LowPassFilter) Next(x float64) float64 {
	if !f.initialized {
		f.state = x
		f.initialized = true
		return f.state
	}
	f.state += f.alpha * (x - f.state)
	return f.state
}

// Value returns the current state.
func (f *LowPassFilter) Value() float64 {
	return f.state
}

// LimitRate returns current moved towards target by at most maxSpeed * dt.
func LimitRate(current, target, maxSpeed, dt float64) float64 {
	return utils.MoveTowards(current, target, maxSpeed*dt)
}
