// Package ocr adapts text detectors to ordered geometry.Fragment sequences.
//
// Every detector returns fragments in approximate reading order (left-to-right,
// top-to-bottom). The grouping that follows relies on that order and does not sort.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/phototrans-project/phototrans/pkg/geometry"
	"github.com/phototrans-project/phototrans/pkg/utils"
)

type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]geometry.Fragment, error)
}

// Func adapts a plain function to Detector.
type Func func(ctx context.Context, img image.Image) ([]geometry.Fragment, error)

func (f Func) Detect(ctx context.Context, img image.Image) ([]geometry.Fragment, error) {
	return f(ctx, img)
}

// Four vertices are taken as-is, clockwise from the top-left corner. Any other
// number of vertices is replaced by their axis-aligned bounding box.
func quadFromVertices(vertices []geometry.Point) geometry.Quad {
	if len(vertices) == 4 {
		return geometry.Quad{vertices[0], vertices[1], vertices[2], vertices[3]}
	}
	bounds := utils.Reduce(vertices, func(bounds image.Rectangle, vertex geometry.Point) image.Rectangle {
		return image.Rectangle{
			Min: image.Point{X: min(bounds.Min.X, vertex.X), Y: min(bounds.Min.Y, vertex.Y)},
			Max: image.Point{X: max(bounds.Max.X, vertex.X), Y: max(bounds.Max.Y, vertex.Y)},
		}
	}, image.Rectangle{
		Min: image.Point{X: math.MaxInt32, Y: math.MaxInt32},
		Max: image.Point{X: 0, Y: 0},
	})
	if len(vertices) == 0 {
		bounds = image.Rectangle{}
	}
	return geometry.QuadFromRect(bounds)
}

func encodePNG(img image.Image) ([]byte, error) {
	buffer := new(bytes.Buffer)
	if err := png.Encode(buffer, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buffer.Bytes(), nil
}
