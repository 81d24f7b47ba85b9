package vision

import (
	"image"
	"math"

	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
)

type gridPoint struct {
	x, y int
}

// DetectBalls finds clusters of bright pixels and projects their centers to ball height.
func DetectBalls(frame *image.YCbCr, camera robot.CameraPosition, matrix CameraMatrix, params BallParameters) []Ball {
	stride := max(params.Stride, 1)
	bounds := frame.Rect
	columns, rows := (bounds.Dx()+stride-1)/stride, (bounds.Dy()+stride-1)/stride
	bright := func(p gridPoint) bool {
		return frame.Y[frame.YOffset(bounds.Min.X+p.x*stride, bounds.Min.Y+p.y*stride)] >= params.LuminanceThreshold
	}

	visited := make([]bool, columns*rows)
	var balls []Ball
	for y := 0; y < rows; y++ {
		for x := 0; x < columns; x++ {
			start := gridPoint{x, y}
			if visited[y*columns+x] || !bright(start) {
				continue
			}
			visited[y*columns+x] = true
			queue := []gridPoint{start}
			var sumX, sumY float64
			count := 0
			for len(queue) > 0 {
				p := queue[0]
				queue = queue[1:]
				sumX += float64(bounds.Min.X + p.x*stride)
				sumY += float64(bounds.Min.Y + p.y*stride)
				count++
				for _, n := range []gridPoint{{p.x + 1, p.y}, {p.x - 1, p.y}, {p.x, p.y + 1}, {p.x, p.y - 1}} {
					if n.x < 0 || n.y < 0 || n.x >= columns || n.y >= rows || visited[n.y*columns+n.x] {
						continue
					}
					if bright(n) {
						visited[n.y*columns+n.x] = true
						queue = append(queue, n)
					}
				}
			}
			if count < params.MinPixels {
				continue
			}
			pixel := spatialmath.NewPoint2[referenceframe.Pixel](sumX/float64(count), sumY/float64(count))
			position, ok := matrix.PixelToGround(pixel, params.Radius)
			if !ok {
				continue
			}
			balls = append(balls, Ball{
				Camera:   camera,
				Pixel:    pixel,
				Radius:   math.Sqrt(float64(count*stride*stride) / math.Pi),
				Position: position,
			})
		}
	}
	return balls
}

type linePoint struct {
	scan  int
	pixel spatialmath.Point2[referenceframe.Pixel]
}

// brightRuns returns the centers of bright runs no longer than maxWidth along one scan line.
func brightRuns(length int, luma func(i int) uint8, threshold uint8, maxWidth int) []float64 {
	var centers []float64
	start := -1
	for i := 0; i <= length; i++ {
		isBright := i < length && luma(i) >= threshold
		switch {
		case isBright && start < 0:
			start = i
		case !isBright && start >= 0:
			if i-start <= maxWidth {
				centers = append(centers, float64(start+i-1)/2)
			}
			start = -1
		}
	}
	return centers
}

// groupLinePoints chains points of consecutive scan lines that are at most maxGap apart.
func groupLinePoints(points []linePoint, maxGap float64) [][]linePoint {
	var groups [][]linePoint
	for _, point := range points {
		joined := false
		for i, group := range groups {
			last := group[len(group)-1]
			if last.scan != point.scan && point.pixel.DistanceTo(last.pixel) <= maxGap {
				groups[i] = append(group, point)
				joined = true
				break
			}
		}
		if !joined {
			groups = append(groups, []linePoint{point})
		}
	}
	return groups
}

// DetectLines scans columns and rows for thin bright runs and joins them into segments.
func DetectLines(frame *image.YCbCr, matrix CameraMatrix, params LineParameters) []LineSegment {
	stride := max(params.Stride, 1)
	bounds := frame.Rect
	luma := func(x, y int) uint8 {
		return frame.Y[frame.YOffset(x, y)]
	}

	var columnPoints, rowPoints []linePoint
	for x := bounds.Min.X; x < bounds.Max.X; x += stride {
		column := func(i int) uint8 { return luma(x, bounds.Min.Y+i) }
		for _, center := range brightRuns(bounds.Dy(), column, params.LuminanceThreshold, params.MaxLineWidth) {
			columnPoints = append(columnPoints, linePoint{
				scan:  x,
				pixel: spatialmath.NewPoint2[referenceframe.Pixel](float64(x), float64(bounds.Min.Y)+center),
			})
		}
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		row := func(i int) uint8 { return luma(bounds.Min.X+i, y) }
		for _, center := range brightRuns(bounds.Dx(), row, params.LuminanceThreshold, params.MaxLineWidth) {
			rowPoints = append(rowPoints, linePoint{
				scan:  y,
				pixel: spatialmath.NewPoint2[referenceframe.Pixel](float64(bounds.Min.X)+center, float64(y)),
			})
		}
	}

	maxGap := math.Max(params.MaxGap, float64(stride))
	var segments []LineSegment
	for _, group := range append(groupLinePoints(columnPoints, maxGap), groupLinePoints(rowPoints, maxGap)...) {
		if len(group) < params.MinPoints {
			continue
		}
		start, ok := matrix.PixelToGround(group[0].pixel, 0)
		if !ok {
			continue
		}
		end, ok := matrix.PixelToGround(group[len(group)-1].pixel, 0)
		if !ok {
			continue
		}
		segment := LineSegment{Start: start, End: end}
		if segment.Length() >= params.MinLength {
			segments = append(segments, segment)
		}
	}
	return segments
}

// DetectObstacles looks for dark runs at the bottom of columns and merges neighboring columns.
func DetectObstacles(frame *image.YCbCr, matrix CameraMatrix, params ObstacleParameters) []Obstacle {
	stride := max(params.Stride, 1)
	bounds := frame.Rect

	// foot row of every scanned column, -1 without obstacle
	feet := []int{}
	for x := bounds.Min.X; x < bounds.Max.X; x += stride {
		foot, run := -1, 0
		for y := bounds.Max.Y - 1; y >= bounds.Min.Y; y-- {
			if frame.Y[frame.YOffset(x, y)] > params.DarkThreshold {
				run = 0
				continue
			}
			run++
			if run >= params.MinHeight {
				foot = y + run - 1
				break
			}
		}
		feet = append(feet, foot)
	}

	var obstacles []Obstacle
	for start := 0; start < len(feet); start++ {
		if feet[start] < 0 {
			continue
		}
		end, lowest := start, feet[start]
		for end+1 < len(feet) && feet[end+1] >= 0 {
			end++
			lowest = max(lowest, feet[end])
		}
		center := float64(bounds.Min.X) + float64(start+end)/2*float64(stride)
		position, ok := matrix.PixelToGround(spatialmath.NewPoint2[referenceframe.Pixel](center, float64(lowest)), 0)
		if ok {
			obstacles = append(obstacles, Obstacle{Position: position, Width: (end - start + 1) * stride})
		}
		start = end
	}
	return obstacles
}

// FindPoseCandidates pairs perpendicular segments whose intersection is close to both.
func FindPoseCandidates(segments []LineSegment, params PoseCandidateParameters) []PoseCandidate {
	var candidates []PoseCandidate
	for i, first := range segments {
		for _, second := range segments[i+1:] {
			a, b := first.Direction(), second.Direction()
			if a.Norm() == 0 || b.Norm() == 0 {
				continue
			}
			angle := math.Acos(math.Min(1, math.Abs(a.Dot(b))/(a.Norm()*b.Norm())))
			if math.Abs(angle-math.Pi/2) > params.AngleTolerance {
				continue
			}
			denominator := a.Cross(b)
			if denominator == 0 {
				continue
			}
			t := second.Start.Sub(first.Start).Cross(b) / denominator
			corner := first.Start.Add(a.Scale(t))
			if first.DistanceTo(corner) > params.MaxCornerDistance || second.DistanceTo(corner) > params.MaxCornerDistance {
				continue
			}
			candidates = append(candidates, PoseCandidate{Corner: corner, Lines: [2]LineSegment{first, second}})
		}
	}
	return candidates
}
