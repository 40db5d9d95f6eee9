package impl

import "github.com/phototrans-project/phototrans/pkg/env"

const (
	// Maximum horizontal gap, in pixels, between the right edge of a line and the left edge of the
	// next fragment for both to be read as one line. Compared as an absolute value.
	LINE_MERGE_X_THRESHOLD = 30
	// Maximum difference, in pixels, between the top edges of a line and the next fragment.
	LINE_MERGE_Y_THRESHOLD = 30
	// Maximum signed offset between the right edge of a paragraph and the left edge of the next line.
	PARAGRAPH_MERGE_X_THRESHOLD = 30
	// Maximum signed gap between the bottom of a paragraph and the top of the next line.
	PARAGRAPH_GAP_Y_THRESHOLD = 5
	// Vertical advance between wrapped lines, relative to the first line height of the paragraph.
	LINE_ADVANCE_RATIO = 0.8
	// The initial font size assumes one more line than the paragraph holds and keeps 10% margin.
	INITIAL_FONT_SCALE = 0.9
	// Margin kept when a single short line is grown to the box width.
	FONT_GROW_SCALE = 0.95
)

// Thresholds holds the tunable constants of grouping and reflow.
type Thresholds struct {
	LineMergeX       float64
	LineMergeY       float64
	ParagraphMergeX  float64
	ParagraphGapY    float64
	LineAdvanceRatio float64
	InitialFontScale float64
	FontGrowScale    float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		LineMergeX:       LINE_MERGE_X_THRESHOLD,
		LineMergeY:       LINE_MERGE_Y_THRESHOLD,
		ParagraphMergeX:  PARAGRAPH_MERGE_X_THRESHOLD,
		ParagraphGapY:    PARAGRAPH_GAP_Y_THRESHOLD,
		LineAdvanceRatio: LINE_ADVANCE_RATIO,
		InitialFontScale: INITIAL_FONT_SCALE,
		FontGrowScale:    FONT_GROW_SCALE,
	}
}

// ThresholdsFromEnv overrides the defaults with the environment variables of the same name.
func ThresholdsFromEnv() Thresholds {
	defaults := DefaultThresholds()
	return Thresholds{
		LineMergeX:       env.FloatVariable("LINE_MERGE_X_THRESHOLD", defaults.LineMergeX),
		LineMergeY:       env.FloatVariable("LINE_MERGE_Y_THRESHOLD", defaults.LineMergeY),
		ParagraphMergeX:  env.FloatVariable("PARAGRAPH_MERGE_X_THRESHOLD", defaults.ParagraphMergeX),
		ParagraphGapY:    env.FloatVariable("PARAGRAPH_GAP_Y_THRESHOLD", defaults.ParagraphGapY),
		LineAdvanceRatio: env.FloatVariable("LINE_ADVANCE_RATIO", defaults.LineAdvanceRatio),
		InitialFontScale: env.FloatVariable("INITIAL_FONT_SCALE", defaults.InitialFontScale),
		FontGrowScale:    env.FloatVariable("FONT_GROW_SCALE", defaults.FontGrowScale),
	}
}

// withDefaults replaces every zero field with the matching field of defaults.
func (t Thresholds) withDefaults(defaults Thresholds) Thresholds {
	orDefault := func(value, fallback float64) float64 {
		if value == 0 {
			return fallback
		}
		return value
	}
	return Thresholds{
		LineMergeX:       orDefault(t.LineMergeX, defaults.LineMergeX),
		LineMergeY:       orDefault(t.LineMergeY, defaults.LineMergeY),
		ParagraphMergeX:  orDefault(t.ParagraphMergeX, defaults.ParagraphMergeX),
		ParagraphGapY:    orDefault(t.ParagraphGapY, defaults.ParagraphGapY),
		LineAdvanceRatio: orDefault(t.LineAdvanceRatio, defaults.LineAdvanceRatio),
		InitialFontScale: orDefault(t.InitialFontScale, defaults.InitialFontScale),
		FontGrowScale:    orDefault(t.FontGrowScale, defaults.FontGrowScale),
	}
}
