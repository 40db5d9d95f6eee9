package impl

import (
	"github.com/phototrans-project/phototrans/pkg/geometry"
	"github.com/phototrans-project/phototrans/pkg/utils"
)

// Horizontally merged fragments read as one visual line.
// Fragments are consumed by the merge; no back-reference is kept.
type Line struct {
	Quad geometry.Quad
	// Fragment texts joined with single spaces in detection order. E.g., "Hello World"
	Text string
}

// Vertically merged lines forming one text block.
type Paragraph struct {
	Quad geometry.Quad
	Text string
	// Vertical extent in pixels, used for text fitting.
	Height int
	// Horizontal extent in pixels, used for text fitting.
	Width int
}

// A wrapped line of translated text and where to draw it.
type PlacedLine struct {
	Text string
	// Top-left corner of the rendered text.
	Origin geometry.Point
}

// RenderPlan is computed by Reflow and consumed immediately by the renderer.
type RenderPlan struct {
	Lines    []PlacedLine
	FontSize int
}

// Heights returns the paragraph heights in paragraph order.
func Heights(paragraphs []Paragraph) []int {
	return utils.Map(paragraphs, func(paragraph Paragraph) int {
		return paragraph.Height
	})
}

// Widths returns the paragraph widths in paragraph order.
func Widths(paragraphs []Paragraph) []int {
	return utils.Map(paragraphs, func(paragraph Paragraph) int {
		return paragraph.Width
	})
}
