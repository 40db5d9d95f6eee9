package impl

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/phototrans-project/phototrans/pkg/geometry"
)

// Below this CIEDE2000 distance the complement of a background is hard to read on it,
// e.g. mid-gray backgrounds whose complement is mid-gray again.
const MIN_INK_CONTRAST = 0.2

type colorCount struct {
	color color.RGBA
	count int
}

// Tallies the exact RGB values of the pixels in [TL.x, TR.x) x [TL.y, BR.y), clipped to the image.
// The result keeps scan order (x outer, y inner) so ties resolve to the first color seen.
// Cost is proportional to the box area.
func colorHistogram(img image.Image, box geometry.Quad) ([]colorCount, error) {
	area := image.Rect(box.TopLeft().X, box.TopLeft().Y, box.TopRight().X, box.BottomRight().Y).Intersect(img.Bounds())
	if area.Empty() {
		return nil, fmt.Errorf("failed to sample %v: %w", box, geometry.ErrGeometryDegenerate)
	}

	indexes := map[color.RGBA]int{}
	histogram := []colorCount{}
	for x := area.Min.X; x < area.Max.X; x++ {
		for y := area.Min.Y; y < area.Max.Y; y++ {
			r, g, b, _ := img.At(x, y).RGBA()
			c := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
			if i, ok := indexes[c]; ok {
				histogram[i].count++
				continue
			}
			indexes[c] = len(histogram)
			histogram = append(histogram, colorCount{color: c, count: 1})
		}
	}
	return histogram, nil
}

// DominantColor returns the most frequent color inside the box. Used to repaint detected text
// with the surrounding background.
func DominantColor(img image.Image, box geometry.Quad) (color.RGBA, error) {
	histogram, err := colorHistogram(img, box)
	if err != nil {
		return color.RGBA{}, err
	}
	best := histogram[0]
	for _, candidate := range histogram[1:] {
		if candidate.count > best.count {
			best = candidate
		}
	}
	return best.color, nil
}

// RarestColor returns the least frequent color inside the box, which on flat backgrounds
// tends to be the text color itself.
func RarestColor(img image.Image, box geometry.Quad) (color.RGBA, error) {
	histogram, err := colorHistogram(img, box)
	if err != nil {
		return color.RGBA{}, err
	}
	best := histogram[0]
	for _, candidate := range histogram[1:] {
		if candidate.count < best.count {
			best = candidate
		}
	}
	return best.color, nil
}

// InkColor is the bitwise complement of the background, used to draw replacement text.
func InkColor(background color.RGBA) color.RGBA {
	return color.RGBA{R: 255 - background.R, G: 255 - background.G, B: 255 - background.B, A: 255}
}

// ReadableInkColor returns the complement of the background unless it is too close to the
// background, in which case black or white is used, whichever is further away.
func ReadableInkColor(background color.RGBA) color.RGBA {
	ink := InkColor(background)
	backgroundColor, _ := colorful.MakeColor(background)
	inkColor, _ := colorful.MakeColor(ink)
	if backgroundColor.DistanceCIEDE2000(inkColor) >= MIN_INK_CONTRAST {
		return ink
	}

	black := colorful.Color{R: 0, G: 0, B: 0}
	white := colorful.Color{R: 1, G: 1, B: 1}
	if backgroundColor.DistanceCIEDE2000(black) >= backgroundColor.DistanceCIEDE2000(white) {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}

// Hex formats a color for logs. E.g., "#ffffff"
func Hex(c color.RGBA) string {
	converted, _ := colorful.MakeColor(c)
	return converted.Hex()
}
