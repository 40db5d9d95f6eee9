package impl

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phototrans-project/phototrans/pipeline/impl/font"
	"github.com/phototrans-project/phototrans/pipeline/impl/ocr"
	"github.com/phototrans-project/phototrans/pipeline/impl/translate"
	"github.com/phototrans-project/phototrans/pkg/geometry"
)

func detected(fragments ...geometry.Fragment) ocr.Detector {
	return ocr.Func(func(context.Context, image.Image) ([]geometry.Fragment, error) {
		return fragments, nil
	})
}

func constantTranslation(text string) translate.Translator {
	return translate.Func(func(context.Context, string, string, string) (string, error) {
		return text, nil
	})
}

func newTestPipeline(t *testing.T, detector ocr.Detector, translator translate.Translator, sink ImageSink, options Options) (*Pipeline, *test.Hook) {
	t.Helper()
	fonts, err := font.Default()
	require.NoError(t, err)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	options.Logger = logger
	return New(detector, translator, fonts, sink, options), hook
}

// A white page with dark "ink" pixels inside the Hello/World boxes.
func page() *image.RGBA {
	img := filledImage(200, 100, white)
	for x := 5; x < 45; x += 3 {
		for y := 5; y < 15; y++ {
			img.SetRGBA(x, y, black)
		}
	}
	return img
}

func hasInk(img image.Image, area image.Rectangle) bool {
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r < 0x8000 && g < 0x8000 && b < 0x8000 {
				return true
			}
		}
	}
	return false
}

var helloWorld = []geometry.Fragment{
	fragment("Hello", 0, 0, 50, 20),
	fragment("World", 55, 2, 110, 22),
}

func TestTranslateImage(t *testing.T) {
	var gotText, gotSource, gotTarget string
	translator := translate.Func(func(_ context.Context, text, source, target string) (string, error) {
		gotText, gotSource, gotTarget = text, source, target
		return "Привіт світ", nil
	})
	pipeline, _ := newTestPipeline(t, detected(helloWorld...), translator, nil, Options{})
	src := page()

	result, err := pipeline.TranslateImage(context.Background(), src, Request{Source: "en", Target: "uk"})

	require.NoError(t, err)
	assert.Equal(t, "Hello World", gotText)
	assert.Equal(t, "en", gotSource)
	assert.Equal(t, "uk", gotTarget)
	require.Len(t, result.Lines, 1)
	require.Len(t, result.Paragraphs, 1)
	assert.Equal(t, []string{"Привіт світ"}, result.Translations)
	assert.Equal(t, []bool{false}, result.Fallbacks)
	assert.Equal(t, []bool{false}, result.Skipped)
	assert.Nil(t, result.Overlay)
	assert.True(t, hasInk(result.Image, image.Rect(0, 0, 111, 23)))
	assert.False(t, hasInk(result.Image, image.Rect(0, 30, 200, 100)))
	// The source image is left untouched.
	assert.Equal(t, black, src.RGBAAt(5, 5))
}

func TestTranslateImage_ErasesLines(t *testing.T) {
	pipeline, _ := newTestPipeline(t, detected(helloWorld...), constantTranslation(""), nil, Options{})

	result, err := pipeline.TranslateImage(context.Background(), page(), Request{Target: "uk"})

	require.NoError(t, err)
	assert.False(t, hasInk(result.Image, result.Image.Bounds()))
	assert.Equal(t, white, result.Image.RGBAAt(110, 22))
}

func TestTranslateImage_KeepsOriginalTextOnFailure(t *testing.T) {
	translator := translate.Func(func(context.Context, string, string, string) (string, error) {
		return "", translate.ErrTranslationFailure
	})
	pipeline, hook := newTestPipeline(t, detected(helloWorld...), translator, nil, Options{})

	result, err := pipeline.TranslateImage(context.Background(), page(), Request{Target: "uk"})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hello World"}, result.Translations)
	assert.Equal(t, []bool{true}, result.Fallbacks)
	assert.True(t, hasInk(result.Image, image.Rect(0, 0, 111, 23)))

	warnings := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warnings++
			assert.Equal(t, StageTranslated, entry.Data["stage"])
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestTranslateImage_TranslationTimeout(t *testing.T) {
	translator := translate.Func(func(ctx context.Context, _, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	pipeline, _ := newTestPipeline(t, detected(helloWorld...), translator, nil, Options{TranslateTimeout: 10 * time.Millisecond})

	result, err := pipeline.TranslateImage(context.Background(), page(), Request{Target: "uk"})

	require.NoError(t, err)
	assert.Equal(t, []bool{true}, result.Fallbacks)
}

func TestTranslateImage_BoundedConcurrency(t *testing.T) {
	var inFlight, peak int32
	var mu sync.Mutex
	translator := translate.Func(func(_ context.Context, text, _, _ string) (string, error) {
		current := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		mu.Lock()
		peak = max(peak, current)
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		return "<" + text + ">", nil
	})
	fragments := []geometry.Fragment{
		fragment("one", 0, 0, 40, 15),
		fragment("two", 0, 30, 40, 45),
		fragment("three", 0, 60, 40, 75),
		fragment("four", 100, 60, 140, 75),
	}
	pipeline, _ := newTestPipeline(t, detected(fragments...), translator, nil, Options{TranslateConcurrency: 2})

	result, err := pipeline.TranslateImage(context.Background(), filledImage(200, 100, white), Request{Target: "de"})

	require.NoError(t, err)
	assert.Equal(t, []string{"<one>", "<two>", "<three>", "<four>"}, result.Translations)
	assert.LessOrEqual(t, peak, int32(2))
}

func TestTranslateImage_DebugOverlay(t *testing.T) {
	pipeline, _ := newTestPipeline(t, detected(helloWorld...), constantTranslation("x"), nil, Options{})

	result, err := pipeline.TranslateImage(context.Background(), page(), Request{Target: "uk", DebugOverlay: true})

	require.NoError(t, err)
	require.NotNil(t, result.Overlay)
	blue := color.RGBA{0, 0, 255, 255}
	assert.Equal(t, blue, result.Overlay.RGBAAt(80, 0))
	assert.Equal(t, blue, result.Overlay.RGBAAt(80, 22))
	assert.Equal(t, blue, result.Overlay.RGBAAt(110, 10))
	// Text pixels outside the box outline are kept.
	assert.Equal(t, black, result.Overlay.RGBAAt(8, 10))
}

func TestTranslateImage_Errors(t *testing.T) {
	var stageErr *StageError

	pipeline, _ := newTestPipeline(t, detected(), constantTranslation("x"), nil, Options{})
	_, err := pipeline.TranslateImage(context.Background(), page(), Request{Target: "uk"})
	assert.ErrorIs(t, err, ErrEmptyDetectionResult)
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageLoaded, stageErr.Stage)

	pipeline, _ = newTestPipeline(t, detected(fragment(" ", 0, 0, 10, 10)), constantTranslation("x"), nil, Options{})
	_, err = pipeline.TranslateImage(context.Background(), page(), Request{Target: "uk"})
	assert.ErrorIs(t, err, ErrEmptyDetectionResult)
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageGroupedLines, stageErr.Stage)

	failing := ocr.Func(func(context.Context, image.Image) ([]geometry.Fragment, error) {
		return nil, errors.New("permission denied")
	})
	pipeline, _ = newTestPipeline(t, failing, constantTranslation("x"), nil, Options{})
	_, err = pipeline.TranslateImage(context.Background(), page(), Request{Target: "uk"})
	assert.ErrorContains(t, err, "permission denied")

	pipeline, _ = newTestPipeline(t, detected(helloWorld...), constantTranslation("x"), nil, Options{})
	_, err = pipeline.TranslateImage(context.Background(), page(), Request{})
	assert.Error(t, err)
	_, err = pipeline.TranslateImage(context.Background(), page(), Request{Target: "no such language"})
	assert.Error(t, err)
}

func TestTranslateImage_SkipsBoxesOutsideImage(t *testing.T) {
	fragments := []geometry.Fragment{
		fragment("inside", 0, 0, 50, 20),
		fragment("outside", 500, 500, 550, 520),
	}
	pipeline, _ := newTestPipeline(t, detected(fragments...), constantTranslation("x"), nil, Options{})

	result, err := pipeline.TranslateImage(context.Background(), page(), Request{Target: "uk"})

	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, result.Skipped)
}

func TestTranslateImage_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	translator := translate.Func(func(context.Context, string, string, string) (string, error) {
		cancel()
		return "", context.Canceled
	})
	pipeline, _ := newTestPipeline(t, detected(helloWorld...), translator, nil, Options{})

	_, err := pipeline.TranslateImage(ctx, page(), Request{Target: "uk"})

	assert.ErrorIs(t, err, context.Canceled)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageTranslated, stageErr.Stage)
}

type memorySink struct {
	images map[string]image.Image
}

func (m *memorySink) Load(_ context.Context, location string) (image.Image, error) {
	img, ok := m.images[location]
	if !ok {
		return nil, errors.New("not found")
	}
	return img, nil
}

func (m *memorySink) Save(_ context.Context, location string, img image.Image) error {
	m.images[location] = img
	return nil
}

func TestTranslateFile(t *testing.T) {
	sink := &memorySink{images: map[string]image.Image{"in.jpg": page()}}
	pipeline, _ := newTestPipeline(t, detected(helloWorld...), constantTranslation("Hallo Welt"), sink, Options{})

	result, err := pipeline.TranslateFile(context.Background(), "in.jpg", "out/page.png", Request{Target: "de", DebugOverlay: true})

	require.NoError(t, err)
	assert.Same(t, result.Image, sink.images["out/page.png"])
	assert.Same(t, result.Overlay, sink.images["out/page.boxes.png"])

	_, err = pipeline.TranslateFile(context.Background(), "missing.jpg", "out.png", Request{Target: "de"})
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageLoaded, stageErr.Stage)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "grouped(paragraphs)", StageGroupedParagraphs.String())
	assert.Equal(t, "done", StageDone.String())
	assert.Equal(t, "stage(42)", Stage(42).String())
}

func TestNew_PartialThresholdsStillMerge(t *testing.T) {
	pipeline, _ := newTestPipeline(t, detected(helloWorld...), constantTranslation("x"), nil,
		Options{Thresholds: Thresholds{LineAdvanceRatio: 1}})

	result, err := pipeline.TranslateImage(context.Background(), page(), Request{Target: "uk"})

	require.NoError(t, err)
	assert.Len(t, result.Lines, 1)
	assert.Equal(t, float64(LINE_MERGE_X_THRESHOLD), pipeline.options.Thresholds.LineMergeX)
	assert.Equal(t, 1.0, pipeline.options.Thresholds.LineAdvanceRatio)
}
