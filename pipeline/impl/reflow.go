package impl

import (
	"fmt"
	"math"
	"strings"

	"github.com/phototrans-project/phototrans/pkg/geometry"
)

// Measurer returns the rendered pixel width of a text at a font size.
type Measurer interface {
	MeasureString(text string, size int) (float64, error)
}

// Box describes where a paragraph's translated text has to fit.
type Box struct {
	// Top-left corner of the paragraph.
	Origin geometry.Point
	Width  int
	Height int
	// Height of the first original line inside the paragraph.
	FirstLineHeight int
}

// Reflow wraps text into the box and picks a font size that fits it.
//
// The initial size assumes the paragraph holds one line more than it originally did.
// The number of lines needed at that size is estimated from the full text width; if those
// lines are taller than the box the size shrinks proportionally. Words are then wrapped
// greedily, and a text that ends up on a single line narrower than the box is grown
// towards the box width. A single word wider than the box is placed as-is.
func Reflow(text string, box Box, measurer Measurer, thresholds Thresholds) (RenderPlan, error) {
	if box.Width <= 0 || box.Height <= 0 || box.FirstLineHeight <= 0 {
		return RenderPlan{}, fmt.Errorf("failed to reflow into %dx%d box with line height %d: %w",
			box.Width, box.Height, box.FirstLineHeight, geometry.ErrGeometryDegenerate)
	}
	boxWidth := float64(box.Width)
	parHeight := float64(box.Height)
	lineHeight := float64(box.FirstLineHeight)

	fontSize := math.Trunc(parHeight / float64(box.Height/box.FirstLineHeight+1) * thresholds.InitialFontScale)

	textWidth, err := measurer.MeasureString(text, fontSizeOf(fontSize))
	if err != nil {
		return RenderPlan{}, err
	}
	linesNum := max(1, int(math.Ceil(textWidth/boxWidth)))
	if float64(linesNum)*lineHeight > parHeight {
		fontSize *= parHeight / (float64(linesNum) * lineHeight)
	}

	size := fontSizeOf(fontSize)
	words := strings.Fields(text)
	if len(words) == 0 {
		return RenderPlan{FontSize: size}, nil
	}

	lines := []PlacedLine{{Text: words[0], Origin: box.Origin}}
	advance := int(lineHeight * thresholds.LineAdvanceRatio)
	for _, word := range words[1:] {
		last := &lines[len(lines)-1]
		width, err := measurer.MeasureString(last.Text+" "+word, size)
		if err != nil {
			return RenderPlan{}, err
		}
		if width <= boxWidth {
			last.Text += " " + word
			continue
		}
		lines = append(lines, PlacedLine{
			Text:   word,
			Origin: geometry.Point{X: last.Origin.X, Y: last.Origin.Y + advance},
		})
	}

	if len(lines) == 1 {
		lineWidth, err := measurer.MeasureString(lines[0].Text, size)
		if err != nil {
			return RenderPlan{}, err
		}
		if lineWidth > 0 && lineWidth < boxWidth {
			fontSize *= boxWidth / lineWidth * thresholds.FontGrowScale
			size = fontSizeOf(fontSize)
		}
	}

	return RenderPlan{Lines: lines, FontSize: size}, nil
}

func fontSizeOf(size float64) int {
	return max(1, int(size))
}
