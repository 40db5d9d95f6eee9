package impl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdsFromEnv(t *testing.T) {
	t.Setenv("LINE_MERGE_X_THRESHOLD", "45")
	t.Setenv("PARAGRAPH_GAP_Y_THRESHOLD", "8.5")

	thresholds := ThresholdsFromEnv()

	assert.Equal(t, 45.0, thresholds.LineMergeX)
	assert.Equal(t, 8.5, thresholds.ParagraphGapY)
	assert.Equal(t, DefaultThresholds().LineMergeY, thresholds.LineMergeY)
	assert.Equal(t, LINE_ADVANCE_RATIO, thresholds.LineAdvanceRatio)
}

func TestThresholdsFromEnv_Invalid(t *testing.T) {
	t.Setenv("FONT_GROW_SCALE", "large")

	assert.Panics(t, func() { ThresholdsFromEnv() })
}

func TestOverlayLocation(t *testing.T) {
	assert.Equal(t, "out/page.boxes.png", OverlayLocation("out/page.png"))
	assert.Equal(t, "gs://bucket/page.boxes.jpg", OverlayLocation("gs://bucket/page.jpg"))
	assert.Equal(t, "page.boxes", OverlayLocation("page"))
}

func TestThresholdsWithDefaults_FillsZeroFields(t *testing.T) {
	thresholds := Thresholds{LineAdvanceRatio: 1.2, ParagraphGapY: 12}.withDefaults(DefaultThresholds())

	assert.Equal(t, 1.2, thresholds.LineAdvanceRatio)
	assert.Equal(t, 12.0, thresholds.ParagraphGapY)
	assert.Equal(t, float64(LINE_MERGE_X_THRESHOLD), thresholds.LineMergeX)
	assert.Equal(t, float64(LINE_MERGE_Y_THRESHOLD), thresholds.LineMergeY)
	assert.Equal(t, float64(PARAGRAPH_MERGE_X_THRESHOLD), thresholds.ParagraphMergeX)
	assert.Equal(t, INITIAL_FONT_SCALE, thresholds.InitialFontScale)
	assert.Equal(t, FONT_GROW_SCALE, thresholds.FontGrowScale)
}
