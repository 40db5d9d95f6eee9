package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"

	"github.com/phototrans-project/phototrans/pkg/geometry"
	"github.com/phototrans-project/phototrans/pkg/utils"
)

// DocumentAIClient is an interface for the DocumentProcessorClient.
// Ref: https://pkg.go.dev/cloud.google.com/go/documentai
// This interface is used for mocking the documentai.DocumentProcessorClient in tests.
type DocumentAIClient interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
}

type DocumentaiSpec struct {
	// E.g., special-tf-prod
	ProjectID string
	// E.g., us
	Location string
	// E.g., 98dae69a95e1906
	ProcessorID string
}

func (s DocumentaiSpec) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", s.ProjectID, s.Location, s.ProcessorID)
}

type documentaiDetector struct {
	client DocumentAIClient
	spec   DocumentaiSpec
}

// NewDocumentAI detects tokens with a Document AI OCR processor.
func NewDocumentAI(client DocumentAIClient, spec DocumentaiSpec) Detector {
	return &documentaiDetector{client: client, spec: spec}
}

func (d *documentaiDetector) Detect(ctx context.Context, img image.Image) ([]geometry.Fragment, error) {
	content, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	request := &documentaipb.ProcessRequest{
		Name: d.spec.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: "image/png",
			},
		},
	}
	response, err := d.client.ProcessDocument(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}
	return documentToFragments(response.GetDocument()), nil
}

// Document structure:
// Document
//
//	└── Pages []Document_Page
//	     ├── Dimension (Width, Height)
//	     └── Tokens []Document_Page_Token
//	          └── Layout
//	               ├── TextAnchor
//	               │    └── TextSegments []TextAnchor_TextSegment (StartIndex, EndIndex)
//	               └── BoundingPoly
//	                    ├── Vertices []Vertex
//	                    └── NormalizedVertices []NormalizedVertex
func documentToFragments(document *documentaipb.Document) []geometry.Fragment {
	text := []rune(document.GetText())
	return utils.FlatMap(document.GetPages(), func(page *documentaipb.Document_Page) []geometry.Fragment {
		return utils.Map(page.GetTokens(), func(token *documentaipb.Document_Page_Token) geometry.Fragment {
			layout := token.GetLayout()
			tokenText := strings.Join(utils.Map(layout.GetTextAnchor().GetTextSegments(), func(segment *documentaipb.Document_TextAnchor_TextSegment) string {
				end := min(int(segment.GetEndIndex()), len(text))
				start := min(int(segment.GetStartIndex()), end)
				return string(text[start:end])
			}), "")
			return geometry.Fragment{
				Quad:       quadFromVertices(boundingPolyVertices(layout.GetBoundingPoly(), page.GetDimension())),
				Text:       strings.TrimSpace(tokenText),
				Confidence: float64(layout.GetConfidence()),
			}
		})
	})
}

// Some processors only report normalized vertices, which are scaled back to pixels.
func boundingPolyVertices(poly *documentaipb.BoundingPoly, dimension *documentaipb.Document_Page_Dimension) []geometry.Point {
	if len(poly.GetVertices()) > 0 {
		return utils.Map(poly.GetVertices(), func(vertex *documentaipb.Vertex) geometry.Point {
			return geometry.Point{X: int(vertex.GetX()), Y: int(vertex.GetY())}
		})
	}
	return utils.Map(poly.GetNormalizedVertices(), func(vertex *documentaipb.NormalizedVertex) geometry.Point {
		return geometry.Point{
			X: int(vertex.GetX() * dimension.GetWidth()),
			Y: int(vertex.GetY() * dimension.GetHeight()),
		}
	})
}
