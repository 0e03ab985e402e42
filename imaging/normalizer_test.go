package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestNormalizeProducesCanonicalResolution(t *testing.T) {
	n := NewNormalizer(Config{})

	inputs := map[string]*image.RGBA{
		"small square":    solidImage(64, 64, color.RGBA{R: 200, G: 30, B: 30, A: 255}),
		"large landscape": solidImage(1024, 600, color.RGBA{R: 30, G: 180, B: 50, A: 255}),
		"tall portrait":   solidImage(300, 900, color.RGBA{R: 240, G: 240, B: 240, A: 255}),
	}

	for name, src := range inputs {
		t.Run(name, func(t *testing.T) {
			out, err := n.Normalize(encodePNG(t, src))
			require.NoError(t, err)
			assert.Equal(t, CanonicalSize, out.Bounds().Dx())
			assert.Equal(t, CanonicalSize, out.Bounds().Dy())

			// 3-channel color: alpha forced fully opaque.
			c := out.RGBA().RGBAAt(10, 10)
			assert.Equal(t, uint8(0xff), c.A)
		})
	}
}

func TestNormalizeRejectsTinyImage(t *testing.T) {
	n := NewNormalizer(Config{})

	_, err := n.Normalize(encodePNG(t, solidImage(10, 10, color.RGBA{A: 255})))
	require.ErrorIs(t, err, ErrInvalidImage)
}

func TestNormalizeRejectsGarbageBytes(t *testing.T) {
	n := NewNormalizer(Config{})

	_, err := n.Normalize([]byte("definitely not an image"))
	require.ErrorIs(t, err, ErrInvalidImage)
}

func TestIsolateBackgroundDiscardsUniformFrame(t *testing.T) {
	// A solid image has no foreground at all; the mask must be discarded.
	src := solidImage(100, 100, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	_, ok := isolateBackground(src)
	assert.False(t, ok)
}

func TestIsolateBackgroundKeepsCenteredSubject(t *testing.T) {
	src := solidImage(100, 100, color.RGBA{R: 250, G: 250, B: 250, A: 255})
	// Paint a dark product in the middle, ~36% of the frame.
	for y := 20; y < 80; y++ {
		for x := 20; x < 80; x++ {
			src.SetRGBA(x, y, color.RGBA{R: 40, G: 40, B: 120, A: 255})
		}
	}

	out, ok := isolateBackground(src)
	require.True(t, ok)

	// Background becomes the neutral fill; subject survives.
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(2, 2))
	assert.Equal(t, color.RGBA{R: 40, G: 40, B: 120, A: 255}, out.RGBAAt(50, 50))
}

func TestCorrectGammaBrightensDarkImage(t *testing.T) {
	dark := solidImage(64, 64, color.RGBA{R: 40, G: 40, B: 40, A: 255})
	out := correctGamma(dark)
	assert.Greater(t, meanLuminance(out), meanLuminance(dark))
}

func TestCorrectGammaDarkensBrightImage(t *testing.T) {
	bright := solidImage(64, 64, color.RGBA{R: 230, G: 230, B: 230, A: 255})
	out := correctGamma(bright)
	assert.Less(t, meanLuminance(out), meanLuminance(bright))
}

type captureSink struct {
	stages []string
}

func (s *captureSink) CaptureStage(name string, _ image.Image) {
	s.stages = append(s.stages, name)
}

func TestNormalizeEmitsDebugStages(t *testing.T) {
	sink := &captureSink{}
	n := NewNormalizer(Config{DebugSink: sink})

	src := solidImage(200, 200, color.RGBA{R: 250, G: 250, B: 250, A: 255})
	for y := 50; y < 150; y++ {
		for x := 50; x < 150; x++ {
			src.SetRGBA(x, y, color.RGBA{R: 180, G: 30, B: 30, A: 255})
		}
	}

	_, err := n.Normalize(encodePNG(t, src))
	require.NoError(t, err)

	assert.Contains(t, sink.stages, "0_original")
	assert.Contains(t, sink.stages, "5_final")
}

func TestLocalContrastKeepsUniformRegions(t *testing.T) {
	// Small tiles clip nearly all of a uniform tile's histogram mass; the
	// redistribution must put it back or the mapping collapses toward
	// black and flips color classification downstream.
	src := solidImage(64, 64, color.RGBA{R: 32, G: 56, B: 209, A: 255})
	out := enhanceLocalContrast(src)

	got := out.RGBAAt(32, 32)
	assert.InDelta(t, meanLuminance(src), meanLuminance(out), 15)
	assert.Greater(t, float64(got.B), float64(got.R))
	assert.Greater(t, float64(got.B), float64(got.G))
	assert.Greater(t, float64(got.B), 150.0)
}

func TestNormalizePreservesDominantHue(t *testing.T) {
	n := NewNormalizer(Config{})
	normalized, err := n.Normalize(encodePNG(t, solidImage(64, 64, color.RGBA{R: 20, G: 40, B: 200, A: 255})))
	require.NoError(t, err)

	c := normalized.RGBA().RGBAAt(256, 256)
	assert.Greater(t, float64(c.B), float64(c.R))
	assert.Greater(t, float64(c.B), float64(c.G))
	assert.Greater(t, float64(c.B), 100.0)
}
