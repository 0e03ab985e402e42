package colorclass

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestClassifySolidColors(t *testing.T) {
	tests := []struct {
		name string
		c    color.RGBA
		want Category
	}{
		{"pure white", color.RGBA{255, 255, 255, 255}, White},
		{"pure black", color.RGBA{0, 0, 0, 255}, Black},
		{"red", color.RGBA{210, 30, 30, 255}, Red},
		{"green", color.RGBA{40, 180, 60, 255}, Green},
		{"blue", color.RGBA{40, 70, 200, 255}, Blue},
		{"yellow", color.RGBA{230, 220, 40, 255}, Yellow},
		{"purple", color.RGBA{140, 40, 200, 255}, Purple},
		{"brown", color.RGBA{130, 80, 40, 255}, Brown},
		{"pink", color.RGBA{230, 60, 170, 255}, Pink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(solid(128, 128, tt.c))
			assert.Equal(t, tt.want, got.Primary)
			assert.GreaterOrEqual(t, got.Confidence, MinConfidence)
		})
	}
}

func TestClassifySolidWhiteCanonicalSize(t *testing.T) {
	got := Classify(solid(512, 512, color.RGBA{255, 255, 255, 255}))
	assert.Equal(t, White, got.Primary)
	assert.GreaterOrEqual(t, got.Confidence, MinConfidence)
}

func TestClassifyConfidenceBounds(t *testing.T) {
	// A noisy mix of many hues keeps confidence within [0, 1].
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	palette := []color.RGBA{
		{210, 30, 30, 255},
		{40, 180, 60, 255},
		{40, 70, 200, 255},
		{230, 220, 40, 255},
		{140, 40, 200, 255},
	}
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			img.SetRGBA(x, y, palette[(x/24)%len(palette)])
		}
	}

	got := Classify(img)
	assert.GreaterOrEqual(t, got.Confidence, 0.0)
	assert.LessOrEqual(t, got.Confidence, 1.0)
}

func TestTallyVotesLowConfidenceForcesUnknown(t *testing.T) {
	// Five clusters with harmonic weights guarantee the winner at least
	// ~0.44 of the vote, so a sub-threshold winner only arises from a
	// flatter distribution than Classify's clustering can emit.
	votes := map[Category]float64{
		Red:    0.25,
		Blue:   0.2,
		Green:  0.2,
		Yellow: 0.2,
		Purple: 0.15,
	}
	got := tallyVotes(votes, 1.0, nil)
	assert.Equal(t, Unknown, got.Primary)
	assert.InDelta(t, 0.25, got.Confidence, 1e-9)
	assert.Equal(t, Blue, got.Secondary)
}

func TestTallyVotesDominantWinnerKept(t *testing.T) {
	votes := map[Category]float64{Red: 0.7, Blue: 0.3}
	got := tallyVotes(votes, 1.0, nil)
	assert.Equal(t, Red, got.Primary)
	assert.Equal(t, Blue, got.Secondary)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)
}

func TestClassifyDeterministic(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(40 + x), uint8(60 + y), 90, 255})
		}
	}

	first := Classify(img)
	for i := 0; i < 3; i++ {
		again := Classify(img)
		require.Equal(t, first.Primary, again.Primary)
		require.Equal(t, first.Secondary, again.Secondary)
		require.InDelta(t, first.Confidence, again.Confidence, 1e-12)
		require.Equal(t, first.DominantColors, again.DominantColors)
	}
}

func TestClassifyDominantColorsOrdered(t *testing.T) {
	// Two-thirds red, one-third blue: red cluster must come first.
	img := image.NewRGBA(image.Rect(0, 0, 90, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 90; x++ {
			if x < 60 {
				img.SetRGBA(x, y, color.RGBA{200, 30, 30, 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{30, 60, 200, 255})
			}
		}
	}

	got := Classify(img)
	require.NotEmpty(t, got.DominantColors)
	first := got.DominantColors[0]
	assert.Greater(t, int(first[0]), int(first[2]), "most dominant color should be the red cluster")
	assert.Equal(t, Red, got.Primary)
	assert.Equal(t, Blue, got.Secondary)
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, Red, ParseCategory("red"))
	assert.Equal(t, Unknown, ParseCategory("turquoise"))
	assert.Equal(t, Unknown, ParseCategory(""))
}

func TestRGBToHSV(t *testing.T) {
	h, s, v := rgbToHSV(255, 0, 0)
	assert.InDelta(t, 0, h, 1e-9)
	assert.InDelta(t, 1, s, 1e-9)
	assert.InDelta(t, 1, v, 1e-9)

	h, _, _ = rgbToHSV(0, 255, 0)
	assert.InDelta(t, 120, h, 1e-9)

	h, _, _ = rgbToHSV(0, 0, 255)
	assert.InDelta(t, 240, h, 1e-9)
}
