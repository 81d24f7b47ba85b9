package walking

// parabolicStep eases the swing foot: 2t² on the first half, 4t - 2t² - 1 on the second. It maps
// 0 to 0, 0.5 to 0.5 and 1 to 1 with a continuous derivative.
func parabolicStep(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 4*t - 2*t*t - 1
}

// parabolicReturn is 0 at t = 0 and t = 1 and peaks with 1 at midpoint.
func parabolicReturn(t, midpoint float64) float64 {
	if t < midpoint {
		x := (t - midpoint) / midpoint
		return 1 - x*x
	}
	x := (t - midpoint) / (1 - midpoint)
	return 1 - x*x
}

// levelingBlend rises linearly to 1 until midpoint and falls back to 0 at the end of the step.
func levelingBlend(t, midpoint float64) float64 {
	if t <= midpoint {
		return t / midpoint
	}
	return (1 - t) / (1 - midpoint)
}
