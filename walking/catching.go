package walking

import (
	"math"

	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
	"github.com/naosoccer/stack/utils"
)

// soleOutline places the sole polygon of side at pose. The outline is configured for the left
// sole, the right sole uses its mirror image.
func soleOutline(
	outline []spatialmath.Point2[referenceframe.LeftSole],
	pose spatialmath.Pose3[referenceframe.Walk],
	side robot.Side,
) []spatialmath.Point2[referenceframe.Walk] {
	ground := pose.Ground()
	points := make([]spatialmath.Point2[referenceframe.Walk], 0, len(outline))
	for _, point := range outline {
		local := spatialmath.NewVector2[referenceframe.Walk](point.X, sideSign(side)*point.Y)
		points = append(points, ground.Transform(local))
	}
	return points
}

// supportHull is the convex hull of the current soles and the planned swing sole.
func supportHull(params Parameters, state *StepState) []spatialmath.Point2[referenceframe.Walk] {
	support := state.Plan.SupportSide
	swing := support.Opposite()
	feet := state.Feet()
	outline := params.Catching.SoleOutline

	points := soleOutline(outline, feet.Support, support)
	points = append(points, soleOutline(outline, feet.Swing, swing)...)
	points = append(points, soleOutline(outline, state.Plan.EndFeet.Swing, swing)...)
	return spatialmath.ConvexHull(points)
}

// catchingStep returns the step that moves the swing foot under the zero moment point.
func catchingStep(params Parameters, state *StepState, zmp spatialmath.Point2[referenceframe.Walk]) Step {
	adjustment := utils.ClampAbs(zmp.X-state.Feet().Support.Position.X, params.Catching.MaxAdjustment)
	if adjustment >= 0 {
		adjustment -= params.Catching.ToeOffset
	} else {
		adjustment += params.Catching.HeelOffset
	}
	return Step{Forward: adjustment}
}

// needsCatching reports whether zmp left the support hull. A point on the hull boundary is still
// supported.
func needsCatching(hull []spatialmath.Point2[referenceframe.Walk], zmp spatialmath.Point2[referenceframe.Walk]) bool {
	if len(hull) == 0 || math.IsNaN(zmp.X) || math.IsNaN(zmp.Y) {
		return false
	}
	return !spatialmath.HullContains(hull, zmp)
}
