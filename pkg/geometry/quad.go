package geometry

import (
	"errors"
	"image"
)

// ErrGeometryDegenerate is returned for boxes without area, e.g. a single-pixel detection.
var ErrGeometryDegenerate = errors.New("degenerate geometry")

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Quad is a four point bounding polygon ordered clockwise from the top-left corner:
// top-left, top-right, bottom-right, bottom-left.
// Downstream code treats it as approximately axis-aligned.
type Quad [4]Point

func (q Quad) TopLeft() Point     { return q[0] }
func (q Quad) TopRight() Point    { return q[1] }
func (q Quad) BottomRight() Point { return q[2] }
func (q Quad) BottomLeft() Point  { return q[3] }

// Width is the horizontal extent of the top edge.
func (q Quad) Width() int {
	return abs(q.TopRight().X - q.TopLeft().X)
}

// Height is the vertical extent between the top-left and bottom-right corners.
func (q Quad) Height() int {
	return abs(q.BottomRight().Y - q.TopLeft().Y)
}

func (q Quad) Degenerate() bool {
	return q.Width() == 0 || q.Height() == 0
}

// Rect returns the rectangle spanned by the top-left and bottom-right corners.
func (q Quad) Rect() image.Rectangle {
	return image.Rect(q.TopLeft().X, q.TopLeft().Y, q.BottomRight().X, q.BottomRight().Y)
}

func QuadFromRect(r image.Rectangle) Quad {
	return Quad{
		{X: r.Min.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Max.Y},
		{X: r.Min.X, Y: r.Max.Y},
	}
}

// Fragment is the atomic unit produced by OCR: a box and its text.
type Fragment struct {
	Quad Quad
	Text string
	// Reported by some detectors; grouping ignores it.
	Confidence float64
}

// MergeHorizontal joins two boxes of the same visual line. b must be the next box to the
// right of a in reading order: the left edge comes from a and the right edge from b,
// the top edge is the higher of both tops and the bottom edge the lower of both bottoms.
func MergeHorizontal(a, b Quad) Quad {
	return Quad{
		{X: a[0].X, Y: min(a[0].Y, b[0].Y)},
		{X: b[1].X, Y: min(a[1].Y, b[1].Y)},
		{X: b[2].X, Y: max(a[2].Y, b[2].Y)},
		{X: a[3].X, Y: max(a[3].Y, b[3].Y)},
	}
}

// MergeVertical joins a box with the box below it. The left and right edges span both boxes,
// the top edge comes from a and the bottom edge from b.
func MergeVertical(a, b Quad) Quad {
	return Quad{
		{X: min(a[0].X, b[0].X), Y: a[0].Y},
		{X: max(a[1].X, b[1].X), Y: a[1].Y},
		{X: max(a[2].X, b[2].X), Y: b[2].Y},
		{X: min(a[3].X, b[3].X), Y: b[3].Y},
	}
}

// Contains reports whether inner starts inside outer. Only the left, right and top edges
// are compared; the bottom edge of inner is never checked.
func Contains(outer, inner Quad) bool {
	return inner.TopLeft().X >= outer.TopLeft().X &&
		inner.TopRight().X <= outer.TopRight().X &&
		inner.TopLeft().Y >= outer.TopLeft().Y
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
