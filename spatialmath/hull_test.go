package spatialmath

import (
	"testing"

	"go.viam.com/test"
)

func TestConvexHull(t *testing.T) {
	points := []Point2[walk]{
		NewPoint2[walk](0, 0),
		NewPoint2[walk](1, 0),
		NewPoint2[walk](1, 1),
		NewPoint2[walk](0, 1),
		NewPoint2[walk](0.5, 0.5),
		NewPoint2[walk](0.5, 0),
		NewPoint2[walk](1, 1),
	}
	hull := ConvexHull(points)
	test.That(t, hull, test.ShouldResemble, []Point2[walk]{
		NewPoint2[walk](0, 0),
		NewPoint2[walk](1, 0),
		NewPoint2[walk](1, 1),
		NewPoint2[walk](0, 1),
	})
}

func TestHullContains(t *testing.T) {
	hull := ConvexHull([]Point2[walk]{
		NewPoint2[walk](-0.05, -0.1),
		NewPoint2[walk](0.05, -0.1),
		NewPoint2[walk](0.05, 0.1),
		NewPoint2[walk](-0.05, 0.1),
	})

	cases := []struct {
		name   string
		point  Point2[walk]
		inside bool
	}{
		{"center", NewPoint2[walk](0, 0), true},
		{"on edge", NewPoint2[walk](0.05, 0), true},
		{"on corner", NewPoint2[walk](-0.05, 0.1), true},
		{"in front", NewPoint2[walk](0.25, 0), false},
		{"left", NewPoint2[walk](0, 0.11), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, HullContains(hull, tc.point), test.ShouldEqual, tc.inside)
		})
	}
}

func TestDegenerateHulls(t *testing.T) {
	test.That(t, HullContains([]Point2[walk]{}, NewPoint2[walk](0, 0)), test.ShouldBeFalse)

	segment := ConvexHull([]Point2[walk]{NewPoint2[walk](0, 0), NewPoint2[walk](1, 0)})
	test.That(t, len(segment), test.ShouldEqual, 2)
	test.That(t, HullContains(segment, NewPoint2[walk](0.5, 0)), test.ShouldBeTrue)
	test.That(t, HullContains(segment, NewPoint2[walk](0.5, 0.1)), test.ShouldBeFalse)
	test.That(t, HullContains(segment, NewPoint2[walk](1.5, 0)), test.ShouldBeFalse)

	collinear := ConvexHull([]Point2[walk]{NewPoint2[walk](0, 0), NewPoint2[walk](1, 0), NewPoint2[walk](2, 0)})
	test.That(t, HullContains(collinear, NewPoint2[walk](1.5, 0)), test.ShouldBeTrue)
}
