package utils

import (
	"cmp"
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Clamp limits value to [low, high].
func Clamp[T cmp.Ordered](value, low, high T) T {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

// ClampAbs limits value to [-limit, limit].
func ClampAbs(value, limit float64) float64 {
	return Clamp(value, -limit, limit)
}

// Lerp interpolates linearly between a (t=0) and b (t=1). t is not clamped.
func Lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

// MoveTowards changes current towards target by at most maxDelta.
func MoveTowards(current, target, maxDelta float64) float64 {
	return current + ClampAbs(target-current, math.Abs(maxDelta))
}

// NormalizeAngle wraps an angle to (-pi, pi].
func NormalizeAngle(angle float64) float64 {
	wrapped := math.Mod(angle+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

// Square returns n*n.
func Square(n float64) float64 {
	return n * n
}
