// Package spatialmath contains frame tagged geometry: points, vectors, orientations, poses and
// isometries whose coordinate frame is part of their type.
package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/naosoccer/stack/referenceframe"
)

// Point2 is a 2D position in frame F.
type Point2[F referenceframe.Frame] struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vector2 is a 2D displacement in frame F.
type Vector2[F referenceframe.Frame] struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point3 is a 3D position in frame F.
type Point3[F referenceframe.Frame] struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector3 is a 3D displacement in frame F.
type Vector3[F referenceframe.Frame] struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewPoint2 returns the point (x, y) in frame F.
func NewPoint2[F referenceframe.Frame](x, y float64) Point2[F] {
	return Point2[F]{X: x, Y: y}
}

// NewVector2 returns the vector (x, y) in frame F.
func NewVector2[F referenceframe.Frame](x, y float64) Vector2[F] {
	return Vector2[F]{X: x, Y: y}
}

// NewPoint3 returns the point (x, y, z) in frame F.
func NewPoint3[F referenceframe.Frame](x, y, z float64) Point3[F] {
	return Point3[F]{X: x, Y: y, Z: z}
}

// NewVector3 returns the vector (x, y, z) in frame F.
func NewVector3[F referenceframe.Frame](x, y, z float64) Vector3[F] {
	return Vector3[F]{X: x, Y: y, Z: z}
}

func point2FromR2[F referenceframe.Frame](p r2.Point) Point2[F] { return Point2[F]{X: p.X, Y: p.Y} }

func vector2FromR2[F referenceframe.Frame](p r2.Point) Vector2[F] { return Vector2[F]{X: p.X, Y: p.Y} }

func point3FromR3[F referenceframe.Frame](v r3.Vector) Point3[F] {
	return Point3[F]{X: v.X, Y: v.Y, Z: v.Z}
}

func vector3FromR3[F referenceframe.Frame](v r3.Vector) Vector3[F] {
	return Vector3[F]{X: v.X, Y: v.Y, Z: v.Z}
}

// R2 returns the untagged coordinates.
func (p Point2[F]) R2() r2.Point { return r2.Point{X: p.X, Y: p.Y} }

// Add moves the point by v.
func (p Point2[F]) Add(v Vector2[F]) Point2[F] { return point2FromR2[F](p.R2().Add(v.R2())) }

// Sub returns the vector from other to p.
func (p Point2[F]) Sub(other Point2[F]) Vector2[F] { return vector2FromR2[F](p.R2().Sub(other.R2())) }

// Coords returns the vector from the origin to p.
func (p Point2[F]) Coords() Vector2[F] { return Vector2[F](p) }

// DistanceTo returns the euclidean distance between the points.
func (p Point2[F]) DistanceTo(other Point2[F]) float64 { return p.Sub(other).Norm() }

// Extend adds a z coordinate.
func (p Point2[F]) Extend(z float64) Point3[F] { return Point3[F]{X: p.X, Y: p.Y, Z: z} }

// LerpPoint2 interpolates linearly between a (t=0) and b (t=1).
func LerpPoint2[F referenceframe.Frame](t float64, a, b Point2[F]) Point2[F] {
	return a.Add(b.Sub(a).Scale(t))
}

func (p Point2[F]) String() string {
	return fmt.Sprintf("Point2[%s](%.4f, %.4f)", referenceframe.Name[F](), p.X, p.Y)
}

// R2 returns the untagged coordinates.
func (v Vector2[F]) R2() r2.Point { return r2.Point{X: v.X, Y: v.Y} }

// Add returns v + other.
func (v Vector2[F]) Add(other Vector2[F]) Vector2[F] { return vector2FromR2[F](v.R2().Add(other.R2())) }

// Sub returns v - other.
func (v Vector2[F]) Sub(other Vector2[F]) Vector2[F] { return vector2FromR2[F](v.R2().Sub(other.R2())) }

// Scale returns v * factor.
func (v Vector2[F]) Scale(factor float64) Vector2[F] { return vector2FromR2[F](v.R2().Mul(factor)) }

// Dot returns the dot product.
func (v Vector2[F]) Dot(other Vector2[F]) float64 { return v.R2().Dot(other.R2()) }

// Cross returns the z component of the 3D cross product.
func (v Vector2[F]) Cross(other Vector2[F]) float64 { return v.R2().Cross(other.R2()) }

// Norm returns the euclidean length.
func (v Vector2[F]) Norm() float64 { return v.R2().Norm() }

// AsPoint returns the point at origin + v.
func (v Vector2[F]) AsPoint() Point2[F] { return Point2[F](v) }

// R3 returns the untagged coordinates.
func (p Point3[F]) R3() r3.Vector { return r3.Vector{X: p.X, Y: p.Y, Z: p.Z} }

// Add moves the point by v.
func (p Point3[F]) Add(v Vector3[F]) Point3[F] { return point3FromR3[F](p.R3().Add(v.R3())) }

// Sub returns the vector from other to p.
func (p Point3[F]) Sub(other Point3[F]) Vector3[F] { return vector3FromR3[F](p.R3().Sub(other.R3())) }

// Coords returns the vector from the origin to p.
func (p Point3[F]) Coords() Vector3[F] { return Vector3[F](p) }

// XY drops the z coordinate.
func (p Point3[F]) XY() Point2[F] { return Point2[F]{X: p.X, Y: p.Y} }

// DistanceTo returns the euclidean distance between the points.
func (p Point3[F]) DistanceTo(other Point3[F]) float64 { return p.R3().Distance(other.R3()) }

// LerpPoint3 interpolates linearly between a (t=0) and b (t=1).
func LerpPoint3[F referenceframe.Frame](t float64, a, b Point3[F]) Point3[F] {
	return a.Add(b.Sub(a).Scale(t))
}

func (p Point3[F]) String() string {
	return fmt.Sprintf("Point3[%s](%.4f, %.4f, %.4f)", referenceframe.Name[F](), p.X, p.Y, p.Z)
}

// R3 returns the untagged coordinates.
func (v Vector3[F]) R3() r3.Vector { return r3.Vector{X: v.X, Y: v.Y, Z: v.Z} }

// Add returns v + other.
func (v Vector3[F]) Add(other Vector3[F]) Vector3[F] { return vector3FromR3[F](v.R3().Add(other.R3())) }

// Sub returns v - other.
func (v Vector3[F]) Sub(other Vector3[F]) Vector3[F] { return vector3FromR3[F](v.R3().Sub(other.R3())) }

// Scale returns v * factor.
func (v Vector3[F]) Scale(factor float64) Vector3[F] { return vector3FromR3[F](v.R3().Mul(factor)) }

// Dot returns the dot product.
func (v Vector3[F]) Dot(other Vector3[F]) float64 { return v.R3().Dot(other.R3()) }

// Cross returns the cross product.
func (v Vector3[F]) Cross(other Vector3[F]) Vector3[F] {
	return vector3FromR3[F](v.R3().Cross(other.R3()))
}

// Norm returns the euclidean length.
func (v Vector3[F]) Norm() float64 { return v.R3().Norm() }

// XY drops the z component.
func (v Vector3[F]) XY() Vector2[F] { return Vector2[F]{X: v.X, Y: v.Y} }

// AsPoint returns the point at origin + v.
func (v Vector3[F]) AsPoint() Point3[F] { return Point3[F](v) }
