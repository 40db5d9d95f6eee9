package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"

	"github.com/phototrans-project/phototrans/pkg/geometry"
	"github.com/phototrans-project/phototrans/pkg/utils"
)

// VisionClient is an interface for the vision.ImageAnnotatorClient
// Ref: https://pkg.go.dev/cloud.google.com/go/vision/v2/apiv1
// This interface is used for mocking the vision.ImageAnnotatorClient in unit tests.
type VisionClient interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

var _ VisionClient = (*vision.ImageAnnotatorClient)(nil)

type visionDetector struct {
	client        VisionClient
	languageHints []string
}

// NewVision detects words with Google Cloud Vision document text detection.
// languageHints are BCP 47 codes, e.g. "ru", "uk"; none lets Vision detect the language.
func NewVision(client VisionClient, languageHints ...string) Detector {
	return &visionDetector{client: client, languageHints: languageHints}
}

func (d *visionDetector) Detect(ctx context.Context, img image.Image) ([]geometry.Fragment, error) {
	content, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	var imageContext *visionpb.ImageContext
	if len(d.languageHints) > 0 {
		imageContext = &visionpb.ImageContext{LanguageHints: d.languageHints}
	}
	response, err := d.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:        &visionpb.Image{Content: content},
			Features:     []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			ImageContext: imageContext,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect text: %w", err)
	}
	if len(response.GetResponses()) == 0 {
		return nil, errors.New("failed to detect text: empty annotate response")
	}
	annotated := response.GetResponses()[0]
	if annotated.GetError() != nil {
		return nil, fmt.Errorf("failed to detect text: %s", annotated.GetError().GetMessage())
	}
	return textAnnotationToFragments(annotated.GetFullTextAnnotation()), nil
}

// Document structure:
// TextAnnotation
//
//	└── Pages
//	     └── Blocks
//	          └── Paragraphs
//	               └── Words
//	                    ├── BoundingBox.Vertices (clockwise from top-left)
//	                    └── Symbols
//	                         └── Text
func textAnnotationToFragments(annotation *visionpb.TextAnnotation) []geometry.Fragment {
	blocks := utils.FlatMap(annotation.GetPages(), func(page *visionpb.Page) []*visionpb.Block {
		return page.GetBlocks()
	})
	paragraphs := utils.FlatMap(blocks, func(block *visionpb.Block) []*visionpb.Paragraph {
		return block.GetParagraphs()
	})
	words := utils.FlatMap(paragraphs, func(paragraph *visionpb.Paragraph) []*visionpb.Word {
		return paragraph.GetWords()
	})

	return utils.Map(words, func(word *visionpb.Word) geometry.Fragment {
		return geometry.Fragment{
			Quad: quadFromVertices(utils.Map(word.GetBoundingBox().GetVertices(), func(vertex *visionpb.Vertex) geometry.Point {
				return geometry.Point{X: int(vertex.GetX()), Y: int(vertex.GetY())}
			})),
			Text: utils.Reduce(word.GetSymbols(), func(text string, symbol *visionpb.Symbol) string {
				return text + symbol.GetText()
			}, ""),
			Confidence: float64(word.GetConfidence()),
		}
	})
}
