package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/phototrans-project/phototrans/pkg/geometry"
	"github.com/phototrans-project/phototrans/pkg/utils"
)

// detection is one EasyOCR readtext entry:
// [[[x,y],[x,y],[x,y],[x,y]], "text", confidence]
type detection struct {
	Vertices   [][2]float64
	Text       string
	Confidence float64
}

func (d *detection) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if len(fields) < 2 {
		return fmt.Errorf("expected [box, text, confidence], got %d fields", len(fields))
	}
	if err := json.Unmarshal(fields[0], &d.Vertices); err != nil {
		return fmt.Errorf("failed to decode box: %w", err)
	}
	if err := json.Unmarshal(fields[1], &d.Text); err != nil {
		return fmt.Errorf("failed to decode text: %w", err)
	}
	if len(fields) > 2 {
		if err := json.Unmarshal(fields[2], &d.Confidence); err != nil {
			return fmt.Errorf("failed to decode confidence: %w", err)
		}
	}
	return nil
}

// DecodeJSON reads detections recorded in the EasyOCR readtext layout.
// Coordinates are truncated to whole pixels.
func DecodeJSON(r io.Reader) ([]geometry.Fragment, error) {
	var detections []detection
	if err := json.NewDecoder(r).Decode(&detections); err != nil {
		return nil, fmt.Errorf("failed to decode detections: %w", err)
	}
	return utils.Map(detections, func(d detection) geometry.Fragment {
		return geometry.Fragment{
			Quad: quadFromVertices(utils.Map(d.Vertices, func(vertex [2]float64) geometry.Point {
				return geometry.Point{X: int(vertex[0]), Y: int(vertex[1])}
			})),
			Text:       d.Text,
			Confidence: d.Confidence,
		}
	}), nil
}

type jsonFileDetector struct {
	path string
}

// NewJSONFile replays detections previously saved to path, ignoring the image.
func NewJSONFile(path string) Detector {
	return &jsonFileDetector{path: path}
}

func (d *jsonFileDetector) Detect(ctx context.Context, _ image.Image) ([]geometry.Fragment, error) {
	file, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open detections: %w", err)
	}
	defer file.Close()
	return DecodeJSON(file)
}
