package impl

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/sync/errgroup"

	"github.com/phototrans-project/phototrans/pipeline/impl/canvas"
	"github.com/phototrans-project/phototrans/pipeline/impl/ocr"
	"github.com/phototrans-project/phototrans/pipeline/impl/translate"
	"github.com/phototrans-project/phototrans/pkg/geometry"
	"github.com/phototrans-project/phototrans/pkg/utils"
)

const (
	// Used when Options.TranslateTimeout is not set.
	DEFAULT_TRANSLATE_TIMEOUT = 30 * time.Second
	// Suffix of the debug overlay written next to the output file. E.g., "out.boxes.png"
	OVERLAY_SUFFIX = ".boxes"
)

// Stage names the state a pipeline run has reached.
type Stage int

const (
	StageLoaded Stage = iota
	StageGroupedLines
	StageGroupedParagraphs
	StageErased
	StageTranslated
	StageRendered
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageLoaded:
		return "loaded"
	case StageGroupedLines:
		return "grouped(lines)"
	case StageGroupedParagraphs:
		return "grouped(paragraphs)"
	case StageErased:
		return "erased"
	case StageTranslated:
		return "translated"
	case StageRendered:
		return "rendered"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// FontProvider loads faces and measures text for the reflow engine.
type FontProvider interface {
	Measurer
	Face(size int) (font.Face, error)
}

// ImageSink loads the source image and stores the results.
type ImageSink interface {
	Load(ctx context.Context, location string) (image.Image, error)
	Save(ctx context.Context, location string, img image.Image) error
}

type Options struct {
	Thresholds Thresholds

	// Maximum number of paragraphs translated at once. Values below 1 mean sequential.
	TranslateConcurrency int

	// Deadline of a single translation call.
	TranslateTimeout time.Duration

	// Replace ink colors that are too close to the background with black or white.
	ReadableInk bool

	Logger logrus.FieldLogger
}

func DefaultOptions() Options {
	return Options{
		Thresholds:           DefaultThresholds(),
		TranslateConcurrency: 1,
		TranslateTimeout:     DEFAULT_TRANSLATE_TIMEOUT,
		Logger:               logrus.StandardLogger(),
	}
}

type Request struct {
	// Language of the text in the image; empty or translate.AutoDetect lets the translator decide.
	Source string
	// E.g., "uk"
	Target string
	// Also produce a copy of the input with numbered paragraph boxes.
	DebugOverlay bool
}

type Result struct {
	Image *image.RGBA
	// Set when Request.DebugOverlay is true.
	Overlay *image.RGBA

	Lines      []Line
	Paragraphs []Paragraph
	// Text rendered per paragraph, in paragraph order.
	Translations []string
	// True where the translation failed and the original text was rendered instead.
	Fallbacks []bool
	// True where the paragraph was left untouched because its box could not be used.
	Skipped []bool
}

type Pipeline struct {
	detector   ocr.Detector
	translator translate.Translator
	fonts      FontProvider
	sink       ImageSink
	options    Options
}

// New creates a pipeline. Zero option fields, including single Thresholds fields, take their defaults; sink may be nil
// when only TranslateImage is used.
func New(detector ocr.Detector, translator translate.Translator, fonts FontProvider, sink ImageSink, options Options) *Pipeline {
	defaults := DefaultOptions()
	options.Thresholds = options.Thresholds.withDefaults(defaults.Thresholds)
	if options.TranslateConcurrency < 1 {
		options.TranslateConcurrency = defaults.TranslateConcurrency
	}
	if options.TranslateTimeout <= 0 {
		options.TranslateTimeout = defaults.TranslateTimeout
	}
	if options.Logger == nil {
		options.Logger = defaults.Logger
	}
	return &Pipeline{
		detector:   detector,
		translator: translator,
		fonts:      fonts,
		sink:       sink,
		options:    options,
	}
}

// TranslateFile loads in, translates it and saves the result to out. With
// Request.DebugOverlay the overlay is saved next to out, e.g. "out.boxes.png".
func (p *Pipeline) TranslateFile(ctx context.Context, in string, out string, request Request) (*Result, error) {
	if p.sink == nil {
		return nil, &StageError{Stage: StageLoaded, Err: errors.New("no image sink configured")}
	}
	img, err := p.sink.Load(ctx, in)
	if err != nil {
		return nil, &StageError{Stage: StageLoaded, Err: err}
	}

	result, err := p.TranslateImage(ctx, img, request)
	if err != nil {
		return nil, err
	}

	if err := p.sink.Save(ctx, out, result.Image); err != nil {
		return nil, &StageError{Stage: StageDone, Err: err}
	}
	if result.Overlay != nil {
		if err := p.sink.Save(ctx, OverlayLocation(out), result.Overlay); err != nil {
			return nil, &StageError{Stage: StageDone, Err: err}
		}
	}
	return result, nil
}

// OverlayLocation derives the debug overlay location from the output location.
func OverlayLocation(out string) string {
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + OVERLAY_SUFFIX + ext
}

// TranslateImage runs detection, grouping, erasure, translation and rendering on a copy
// of img. img itself is never modified.
func (p *Pipeline) TranslateImage(ctx context.Context, img image.Image, request Request) (*Result, error) {
	logger := p.options.Logger
	if _, err := translate.ParseLanguage(request.Source); err != nil {
		return nil, &StageError{Stage: StageLoaded, Err: err}
	}
	if request.Target == "" || request.Target == translate.AutoDetect {
		return nil, &StageError{Stage: StageLoaded, Err: fmt.Errorf("invalid target language %q", request.Target)}
	}
	if _, err := translate.ParseLanguage(request.Target); err != nil {
		return nil, &StageError{Stage: StageLoaded, Err: err}
	}

	fragments, err := p.detector.Detect(ctx, img)
	if err != nil {
		return nil, &StageError{Stage: StageLoaded, Err: fmt.Errorf("failed to detect text: %w", err)}
	}
	if len(fragments) == 0 {
		return nil, &StageError{Stage: StageLoaded, Err: ErrEmptyDetectionResult}
	}
	logger.WithField("stage", StageLoaded).Debugf("Detected %d fragments", len(fragments))

	lines, err := GroupLines(fragments, p.options.Thresholds)
	if err != nil {
		if errors.Is(err, ErrEmptyInput) {
			err = fmt.Errorf("%w: every fragment was blank or degenerate", ErrEmptyDetectionResult)
		}
		return nil, &StageError{Stage: StageGroupedLines, Err: err}
	}
	logger.WithField("stage", StageGroupedLines).Debugf("Grouped %d lines", len(lines))

	paragraphs, err := GroupParagraphs(lines, p.options.Thresholds)
	if err != nil {
		return nil, &StageError{Stage: StageGroupedParagraphs, Err: err}
	}
	firstLineHeights := FirstLineHeights(paragraphs, lines)
	logger.WithField("stage", StageGroupedParagraphs).Debugf("Grouped %d paragraphs", len(paragraphs))

	result := &Result{
		Lines:      lines,
		Paragraphs: paragraphs,
		Fallbacks:  make([]bool, len(paragraphs)),
		Skipped:    make([]bool, len(paragraphs)),
	}

	if request.DebugOverlay {
		overlay, err := p.drawOverlay(img, paragraphs)
		if err != nil {
			return nil, &StageError{Stage: StageGroupedParagraphs, Err: err}
		}
		result.Overlay = overlay
	}

	// Ink is sampled from the untouched source so erasure cannot influence it.
	inks := make([]color.RGBA, len(paragraphs))
	for i, paragraph := range paragraphs {
		background, err := DominantColor(img, paragraph.Quad)
		if err != nil {
			logger.WithFields(logrus.Fields{"stage": StageErased, "paragraph": i}).Warnf("Failed to sample paragraph background: %v", err)
			result.Skipped[i] = true
			continue
		}
		inks[i] = p.inkColor(background)
	}

	drawing := canvas.New(img)
	for i, line := range lines {
		background, err := DominantColor(img, line.Quad)
		if err != nil {
			logger.WithFields(logrus.Fields{"stage": StageErased, "line": i}).Warnf("Failed to sample line background: %v", err)
			continue
		}
		drawing.Fill(line.Quad, background)
		logger.WithFields(logrus.Fields{"stage": StageErased, "line": i, "color": Hex(background)}).Debug("Erased line")
	}

	translations, err := p.translateParagraphs(ctx, paragraphs, request, result.Fallbacks)
	if err != nil {
		return nil, &StageError{Stage: StageTranslated, Err: err}
	}
	result.Translations = translations

	for i, paragraph := range paragraphs {
		if result.Skipped[i] {
			continue
		}
		box := Box{
			Origin:          paragraph.Quad.TopLeft(),
			Width:           paragraph.Width,
			Height:          paragraph.Height,
			FirstLineHeight: firstLineHeights[i],
		}
		if err := p.render(drawing, translations[i], box, inks[i]); err != nil {
			if errors.Is(err, geometry.ErrGeometryDegenerate) {
				logger.WithFields(logrus.Fields{"stage": StageRendered, "paragraph": i}).Warnf("Failed to fit paragraph: %v", err)
				result.Skipped[i] = true
				continue
			}
			return nil, &StageError{Stage: StageRendered, Err: err}
		}
	}

	result.Image = drawing.Image()
	logger.WithField("stage", StageDone).Infof("Translated %d paragraphs (%d kept original text)",
		len(paragraphs), utils.Count(result.Fallbacks, func(fallback bool) bool { return fallback }))
	return result, nil
}

// Translation failures are recovered per paragraph by keeping the original text.
// Only cancellation of ctx aborts the stage.
func (p *Pipeline) translateParagraphs(ctx context.Context, paragraphs []Paragraph, request Request, fallbacks []bool) ([]string, error) {
	translations := make([]string, len(paragraphs))
	var group errgroup.Group
	group.SetLimit(p.options.TranslateConcurrency)

	for i, paragraph := range paragraphs {
		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, p.options.TranslateTimeout)
			defer cancel()

			translated, err := p.translator.Translate(callCtx, paragraph.Text, request.Source, request.Target)
			if err != nil {
				p.options.Logger.WithFields(logrus.Fields{"stage": StageTranslated, "paragraph": i}).
					Warnf("Failed to translate paragraph, keeping original text: %v", err)
				translations[i] = paragraph.Text
				fallbacks[i] = true
				return nil
			}
			translations[i] = translated
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return translations, nil
}

func (p *Pipeline) render(drawing *canvas.Canvas, text string, box Box, ink color.RGBA) error {
	plan, err := Reflow(text, box, p.fonts, p.options.Thresholds)
	if err != nil {
		return err
	}
	if len(plan.Lines) == 0 {
		return nil
	}
	face, err := p.fonts.Face(plan.FontSize)
	if err != nil {
		return err
	}
	for _, line := range plan.Lines {
		drawing.DrawString(line.Text, line.Origin, face, ink)
	}
	return nil
}

func (p *Pipeline) inkColor(background color.RGBA) color.RGBA {
	if p.options.ReadableInk {
		return ReadableInkColor(background)
	}
	return InkColor(background)
}
