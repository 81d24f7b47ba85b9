package vision

import "github.com/naosoccer/stack/utils"

// Parameters configure the detectors of one camera.
type Parameters struct {
	// HorizontalFieldOfView of the camera in radians.
	HorizontalFieldOfView float64                 `json:"horizontal_field_of_view"`
	Ball                  BallParameters          `json:"ball"`
	Lines                 LineParameters          `json:"lines"`
	Obstacles             ObstacleParameters      `json:"obstacles"`
	PoseCandidates        PoseCandidateParameters `json:"pose_candidates"`
}

// BallParameters configure the ball detection.
type BallParameters struct {
	LuminanceThreshold uint8 `json:"luminance_threshold"`
	// Stride between sampled pixels in both directions.
	Stride    int `json:"stride"`
	MinPixels int `json:"min_pixels"`
	// Radius of the ball in meters.
	Radius float64 `json:"radius"`
}

// LineParameters configure the line detection.
type LineParameters struct {
	LuminanceThreshold uint8 `json:"luminance_threshold"`
	Stride             int   `json:"stride"`
	// MaxLineWidth is the longest bright run in pixels that still counts as a line crossing.
	MaxLineWidth int     `json:"max_line_width"`
	MaxGap       float64 `json:"max_gap"`
	MinPoints    int     `json:"min_points"`
	// MinLength of a segment on the ground in meters.
	MinLength float64 `json:"min_length"`
}

// ObstacleParameters configure the obstacle detection.
type ObstacleParameters struct {
	DarkThreshold uint8 `json:"dark_threshold"`
	Stride        int   `json:"stride"`
	MinHeight     int   `json:"min_height"`
}

// PoseCandidateParameters configure the corner search.
type PoseCandidateParameters struct {
	// AngleTolerance is the allowed deviation from a right angle in radians.
	AngleTolerance float64 `json:"angle_tolerance"`
	// MaxCornerDistance is how far the corner may be from either segment in meters.
	MaxCornerDistance float64 `json:"max_corner_distance"`
}

// DefaultParameters fit the NAO v6 cameras.
func DefaultParameters() Parameters {
	return Parameters{
		HorizontalFieldOfView: utils.DegToRad(56.3),
		Ball: BallParameters{
			LuminanceThreshold: 230,
			Stride:             1,
			MinPixels:          9,
			Radius:             0.05,
		},
		Lines: LineParameters{
			LuminanceThreshold: 180,
			Stride:             2,
			MaxLineWidth:       8,
			MaxGap:             6,
			MinPoints:          4,
			MinLength:          0.1,
		},
		Obstacles: ObstacleParameters{
			DarkThreshold: 50,
			Stride:        2,
			MinHeight:     6,
		},
		PoseCandidates: PoseCandidateParameters{
			AngleTolerance:    0.2,
			MaxCornerDistance: 0.3,
		},
	}
}
