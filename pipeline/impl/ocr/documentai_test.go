package ocr

import (
	"context"
	"errors"
	"image"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phototrans-project/phototrans/pkg/geometry"
)

type fakeDocumentAIClient struct {
	request  *documentaipb.ProcessRequest
	response *documentaipb.ProcessResponse
	err      error
}

func (f *fakeDocumentAIClient) ProcessDocument(_ context.Context, req *documentaipb.ProcessRequest, _ ...gax.CallOption) (*documentaipb.ProcessResponse, error) {
	f.request = req
	return f.response, f.err
}

func token(start, end int64, poly *documentaipb.BoundingPoly) *documentaipb.Document_Page_Token {
	return &documentaipb.Document_Page_Token{
		Layout: &documentaipb.Document_Page_Layout{
			TextAnchor: &documentaipb.Document_TextAnchor{
				TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: start, EndIndex: end}},
			},
			BoundingPoly: poly,
			Confidence:   0.95,
		},
	}
}

func TestDocumentAIDetect(t *testing.T) {
	client := &fakeDocumentAIClient{response: &documentaipb.ProcessResponse{
		Document: &documentaipb.Document{
			Text: "Привет мир\n",
			Pages: []*documentaipb.Document_Page{{
				Dimension: &documentaipb.Document_Page_Dimension{Width: 200, Height: 100},
				Tokens: []*documentaipb.Document_Page_Token{
					token(0, 7, &documentaipb.BoundingPoly{Vertices: []*documentaipb.Vertex{
						{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 50, Y: 20}, {X: 0, Y: 20},
					}}),
					token(7, 11, &documentaipb.BoundingPoly{NormalizedVertices: []*documentaipb.NormalizedVertex{
						{X: 0.25, Y: 0}, {X: 0.5, Y: 0}, {X: 0.5, Y: 0.2}, {X: 0.25, Y: 0.2},
					}}),
				},
			}},
		},
	}}
	spec := DocumentaiSpec{ProjectID: "project", Location: "us", ProcessorID: "processor"}

	fragments, err := NewDocumentAI(client, spec).Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)))

	require.NoError(t, err)
	assert.Equal(t, "projects/project/locations/us/processors/processor", client.request.GetName())
	assert.Equal(t, "image/png", client.request.GetRawDocument().GetMimeType())
	require.Len(t, fragments, 2)
	assert.Equal(t, "Привет", fragments[0].Text)
	assert.Equal(t, geometry.QuadFromRect(image.Rect(0, 0, 50, 20)), fragments[0].Quad)
	assert.Equal(t, "мир", fragments[1].Text)
	assert.Equal(t, geometry.QuadFromRect(image.Rect(50, 0, 100, 20)), fragments[1].Quad)
	assert.InDelta(t, 0.95, fragments[1].Confidence, 1e-6)
}

func TestDocumentAIDetect_Error(t *testing.T) {
	client := &fakeDocumentAIClient{err: errors.New("processor not found")}

	_, err := NewDocumentAI(client, DocumentaiSpec{}).Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)))

	assert.ErrorContains(t, err, "processor not found")
}

func TestDocumentToFragments_InvertedSegmentIsEmpty(t *testing.T) {
	document := &documentaipb.Document{
		Text: "Привет мир",
		Pages: []*documentaipb.Document_Page{{
			Tokens: []*documentaipb.Document_Page_Token{
				token(4, 2, &documentaipb.BoundingPoly{Vertices: []*documentaipb.Vertex{
					{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
				}}),
				token(7, 100, &documentaipb.BoundingPoly{Vertices: []*documentaipb.Vertex{
					{X: 20, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 10}, {X: 20, Y: 10},
				}}),
			},
		}},
	}

	fragments := documentToFragments(document)

	require.Len(t, fragments, 2)
	assert.Equal(t, "", fragments[0].Text)
	assert.Equal(t, "мир", fragments[1].Text)
}
