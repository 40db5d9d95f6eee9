package impl

import (
	"fmt"
	"image"
	"image/color"

	"github.com/phototrans-project/phototrans/pipeline/impl/canvas"
)

const (
	OVERLAY_BOX_THICKNESS = 3
	OVERLAY_LABEL_SIZE    = 20
)

var (
	overlayBoxColor   = color.RGBA{0, 0, 255, 255} /* =blue */
	overlayLabelColor = color.RGBA{255, 0, 0, 255} /* =red */
)

// drawOverlay returns a copy of img with every paragraph outlined and numbered from 1.
func (p *Pipeline) drawOverlay(img image.Image, paragraphs []Paragraph) (*image.RGBA, error) {
	face, err := p.fonts.Face(OVERLAY_LABEL_SIZE)
	if err != nil {
		return nil, err
	}
	overlay := canvas.New(img)
	for i, paragraph := range paragraphs {
		overlay.Outline(paragraph.Quad, overlayBoxColor, OVERLAY_BOX_THICKNESS)
		overlay.Label(paragraph.Quad, fmt.Sprintf("%d", i+1), face, overlayLabelColor)
	}
	return overlay.Image(), nil
}
