package impl

import (
	"math"
	"strings"

	"github.com/phototrans-project/phototrans/pkg/geometry"
	"github.com/phototrans-project/phototrans/pkg/utils"
)

// GroupLines merges OCR fragments into lines. Fragments must be in reading order
// (left-to-right, top-to-bottom); each one is compared only with the line being built.
// A fragment joins the current line when its top-left corner is within the thresholds
// of the line's top-right x and top-left y. Fragments without area or text are skipped.
func GroupLines(fragments []geometry.Fragment, thresholds Thresholds) ([]Line, error) {
	usable := utils.Filter(fragments, func(fragment geometry.Fragment) bool {
		return !fragment.Quad.Degenerate() && strings.TrimSpace(fragment.Text) != ""
	})
	if len(usable) == 0 {
		return nil, ErrEmptyInput
	}

	return utils.Reduce(usable[1:], func(lines []Line, fragment geometry.Fragment) []Line {
		current := lines[len(lines)-1]
		diffX := fragment.Quad.TopLeft().X - current.Quad.TopRight().X
		diffY := fragment.Quad.TopLeft().Y - current.Quad.TopLeft().Y
		if math.Abs(float64(diffX)) < thresholds.LineMergeX && math.Abs(float64(diffY)) < thresholds.LineMergeY {
			lines[len(lines)-1] = Line{
				Quad: geometry.MergeHorizontal(current.Quad, fragment.Quad),
				Text: current.Text + " " + fragment.Text,
			}
			return lines
		}
		return append(lines, Line{Quad: fragment.Quad, Text: fragment.Text})
	}, []Line{{Quad: usable[0].Quad, Text: usable[0].Text}}), nil
}

// GroupParagraphs merges vertically adjacent lines into paragraphs. A line joins the
// current paragraph when its top edge is less than ParagraphGapY below the paragraph's
// bottom edge and its left edge is less than ParagraphMergeX right of the paragraph's
// right edge. Both differences are signed. Degenerate lines are skipped.
func GroupParagraphs(lines []Line, thresholds Thresholds) ([]Paragraph, error) {
	usable := utils.Filter(lines, func(line Line) bool {
		return !line.Quad.Degenerate()
	})
	if len(usable) == 0 {
		return nil, ErrEmptyInput
	}

	paragraphs := utils.Reduce(usable[1:], func(paragraphs []Paragraph, line Line) []Paragraph {
		current := paragraphs[len(paragraphs)-1]
		diffX := line.Quad.TopLeft().X - current.Quad.TopRight().X
		diffY := line.Quad.TopLeft().Y - current.Quad.BottomRight().Y
		if float64(diffY) < thresholds.ParagraphGapY && float64(diffX) < thresholds.ParagraphMergeX {
			paragraphs[len(paragraphs)-1] = Paragraph{
				Quad: geometry.MergeVertical(current.Quad, line.Quad),
				Text: current.Text + " " + line.Text,
			}
			return paragraphs
		}
		return append(paragraphs, Paragraph{Quad: line.Quad, Text: line.Text})
	}, []Paragraph{{Quad: usable[0].Quad, Text: usable[0].Text}})

	// Dimensions are only final once a paragraph is closed.
	return utils.Map(paragraphs, func(paragraph Paragraph) Paragraph {
		paragraph.Height = paragraph.Quad.Height()
		paragraph.Width = paragraph.Quad.Width()
		return paragraph
	}), nil
}

// FirstLineHeights returns, per paragraph, the height of the first line contained in it.
// Paragraphs without a contained line fall back to their own height.
func FirstLineHeights(paragraphs []Paragraph, lines []Line) []int {
	return utils.Map(paragraphs, func(paragraph Paragraph) int {
		line, found := utils.Find(lines, func(line Line) bool {
			return geometry.Contains(paragraph.Quad, line.Quad)
		})
		if !found {
			return paragraph.Height
		}
		return line.Quad.Height()
	})
}
