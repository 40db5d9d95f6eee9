// Package canvas holds the single mutable image a pipeline run draws on.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/anthonynsimon/bild/clone"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/phototrans-project/phototrans/pkg/geometry"
)

// Canvas owns a copy of the source image. Draw calls are serialised.
type Canvas struct {
	mu             sync.Mutex
	img            *image.RGBA
	drawingContext *gg.Context
}

// New copies src into a drawable RGBA buffer; src itself is never modified.
func New(src image.Image) *Canvas {
	img := clone.AsRGBA(src)
	return &Canvas{
		img:            img,
		drawingContext: gg.NewContextForRGBA(img),
	}
}

// Image returns the underlying buffer. It must not be modified while draw calls are in flight.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Snapshot returns an independent copy of the current state.
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone.AsRGBA(c.img)
}

// Fill paints the box, both corners included, with a solid color.
func (c *Canvas) Fill(box geometry.Quad, fill color.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()

	area := image.Rect(box.TopLeft().X, box.TopLeft().Y, box.BottomRight().X+1, box.BottomRight().Y+1)
	draw.Draw(c.img, area, image.NewUniform(fill), image.Point{}, draw.Src)
}

// DrawString draws text with its top-left corner at origin.
func (c *Canvas) DrawString(text string, origin geometry.Point, face font.Face, ink color.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ascent := float64(face.Metrics().Ascent) / 64
	c.drawingContext.SetFontFace(face)
	c.drawingContext.SetColor(ink)
	c.drawingContext.DrawString(text, float64(origin.X), float64(origin.Y)+ascent)
}

// Outline strokes the box border, growing outwards by thickness pixels.
func (c *Canvas) Outline(box geometry.Quad, stroke color.Color, thickness int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	left, top := box.TopLeft().X, box.TopLeft().Y
	right, bottom := box.BottomRight().X, box.BottomRight().Y
	// Draw top and bottom horizontal lines.
	for x := left - thickness; x <= right+thickness; x++ {
		for t := 0; t < thickness; t++ {
			c.img.Set(x, top-t, stroke)
			c.img.Set(x, bottom+t, stroke)
		}
	}
	// Draw left and right vertical lines.
	for y := top - thickness; y <= bottom+thickness; y++ {
		for t := 0; t < thickness; t++ {
			c.img.Set(left-t, y, stroke)
			c.img.Set(right+t, y, stroke)
		}
	}
}

// Label writes text with its baseline 1 pixel above the top of the box.
func (c *Canvas) Label(box geometry.Quad, text string, face font.Face, ink color.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()

	drawer := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot:  fixed.P(box.TopLeft().X, box.TopLeft().Y-1),
	}
	drawer.DrawString(text)
}
