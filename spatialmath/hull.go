package spatialmath

import (
	"slices"

	"github.com/naosoccer/stack/referenceframe"
)

const hullEpsilon = 1e-12

// ConvexHull returns the convex hull of points in counter clockwise order without collinear
// points (Andrew's monotone chain). Fewer than three distinct points are returned as they are.
func ConvexHull[F referenceframe.Frame](points []Point2[F]) []Point2[F] {
	sorted := slices.Clone(points)
	slices.SortFunc(sorted, func(a, b Point2[F]) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		case a.Y < b.Y:
			return -1
		case a.Y > b.Y:
			return 1
		}
		return 0
	})
	sorted = slices.Compact(sorted)
	if len(sorted) < 3 {
		return sorted
	}

	turn := func(o, a, b Point2[F]) float64 {
		return a.Sub(o).Cross(b.Sub(o))
	}

	hull := make([]Point2[F], 0, 2*len(sorted))
	for _, point := range sorted {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], point) <= hullEpsilon {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, point)
	}
	lowerSize := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		point := sorted[i]
		for len(hull) >= lowerSize && turn(hull[len(hull)-2], hull[len(hull)-1], point) <= hullEpsilon {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, point)
	}
	return hull[:len(hull)-1]
}

// HullContains reports whether point lies inside or on the boundary of a counter clockwise convex
// hull as returned by ConvexHull.
func HullContains[F referenceframe.Frame](hull []Point2[F], point Point2[F]) bool {
	switch len(hull) {
	case 0:
		return false
	case 1:
		return hull[0].DistanceTo(point) <= hullEpsilon
	case 2:
		edge := hull[1].Sub(hull[0])
		toPoint := point.Sub(hull[0])
		if edge.Cross(toPoint) > hullEpsilon || edge.Cross(toPoint) < -hullEpsilon {
			return false
		}
		projection := edge.Dot(toPoint)
		return projection >= -hullEpsilon && projection <= edge.Dot(edge)+hullEpsilon
	}

	for i := range hull {
		start, end := hull[i], hull[(i+1)%len(hull)]
		if end.Sub(start).Cross(point.Sub(start)) < -hullEpsilon {
			return false
		}
	}
	return true
}
