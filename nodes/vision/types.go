package vision

import (
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
)

// Ball is a detected ball.
type Ball struct {
	Camera   robot.CameraPosition                      `json:"camera"`
	Pixel    spatialmath.Point2[referenceframe.Pixel]  `json:"pixel"`
	Radius   float64                                   `json:"radius"`
	Position spatialmath.Point2[referenceframe.Ground] `json:"position"`
}

// LineSegment is a piece of field line on the ground.
type LineSegment struct {
	Start spatialmath.Point2[referenceframe.Ground] `json:"start"`
	End   spatialmath.Point2[referenceframe.Ground] `json:"end"`
}

// Direction is the vector from Start to End.
func (s LineSegment) Direction() spatialmath.Vector2[referenceframe.Ground] {
	return s.End.Sub(s.Start)
}

// Length on the ground in meters.
func (s LineSegment) Length() float64 {
	return s.Direction().Norm()
}

// DistanceTo is the distance of point to the closest point of the segment.
func (s LineSegment) DistanceTo(point spatialmath.Point2[referenceframe.Ground]) float64 {
	direction := s.Direction()
	length := direction.Dot(direction)
	if length == 0 {
		return point.DistanceTo(s.Start)
	}
	t := point.Sub(s.Start).Dot(direction) / length
	t = max(0, min(1, t))
	return point.DistanceTo(s.Start.Add(direction.Scale(t)))
}

// Obstacle is the foot point of something dark standing on the field.
type Obstacle struct {
	Position spatialmath.Point2[referenceframe.Ground] `json:"position"`
	// Width of the obstacle in pixel columns.
	Width int `json:"width"`
}

// PoseCandidate is a field corner seen as two perpendicular lines.
type PoseCandidate struct {
	Corner spatialmath.Point2[referenceframe.Ground] `json:"corner"`
	Lines  [2]LineSegment                            `json:"lines"`
}
