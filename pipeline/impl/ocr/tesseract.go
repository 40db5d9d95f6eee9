//go:build cgo

package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"

	"github.com/phototrans-project/phototrans/pkg/geometry"
	"github.com/phototrans-project/phototrans/pkg/utils"
)

type tesseractDetector struct {
	languages []string
}

// NewTesseract detects words with a local Tesseract installation.
// languages are traineddata names, e.g. "rus", "ukr".
func NewTesseract(languages ...string) (Detector, error) {
	return &tesseractDetector{languages: languages}, nil
}

func (d *tesseractDetector) Detect(ctx context.Context, img image.Image) ([]geometry.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if len(d.languages) > 0 {
		if err := client.SetLanguage(d.languages...); err != nil {
			return nil, fmt.Errorf("failed to set tesseract language: %w", err)
		}
	}
	if err := client.SetImageFromBytes(content); err != nil {
		return nil, fmt.Errorf("failed to set tesseract image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to detect text: %w", err)
	}

	return utils.Map(boxes, func(box gosseract.BoundingBox) geometry.Fragment {
		return geometry.Fragment{
			Quad:       geometry.QuadFromRect(box.Box),
			Text:       box.Word,
			Confidence: box.Confidence / 100,
		}
	}), nil
}
