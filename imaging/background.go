package imaging

import (
	"image"
	"image/color"
	"math"
)

const (
	// Foreground ratio bounds outside of which the isolation mask is
	// considered unreliable and discarded.
	minForegroundRatio = 0.02
	maxForegroundRatio = 0.98

	// Color distance from the estimated background beyond which a pixel is
	// treated as foreground.
	backgroundDistanceThreshold = 48.0
)

// isolateBackground replaces background pixels with a neutral white fill.
//
// The background color is estimated from the image border. A mask marking
// pixels that differ strongly from that estimate is computed; if the mask
// keeps almost everything or almost nothing it is unreliable (a busy scene
// or a product filling the frame) and the original buffer is returned with
// ok=false.
func isolateBackground(src *image.RGBA) (*image.RGBA, bool) {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return src, false
	}

	bgR, bgG, bgB := estimateBorderColor(src)

	mask := make([]bool, width*height)
	foreground := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := src.RGBAAt(x, y)
			dr := float64(c.R) - bgR
			dg := float64(c.G) - bgG
			db := float64(c.B) - bgB
			if math.Sqrt(dr*dr+dg*dg+db*db) > backgroundDistanceThreshold {
				mask[y*width+x] = true
				foreground++
			}
		}
	}

	ratio := float64(foreground) / float64(width*height)
	if ratio < minForegroundRatio || ratio > maxForegroundRatio {
		return src, false
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(out.Pix, src.Pix)
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !mask[y*width+x] {
				out.SetRGBA(x, y, white)
			}
		}
	}
	return out, true
}

// estimateBorderColor averages the pixels along the image border, which is
// where the backdrop dominates in a typical product photo.
func estimateBorderColor(src *image.RGBA) (r, g, b float64) {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var sumR, sumG, sumB float64
	count := 0
	sample := func(x, y int) {
		c := src.RGBAAt(x, y)
		sumR += float64(c.R)
		sumG += float64(c.G)
		sumB += float64(c.B)
		count++
	}

	for x := 0; x < width; x++ {
		sample(x, 0)
		sample(x, height-1)
	}
	for y := 1; y < height-1; y++ {
		sample(0, y)
		sample(width-1, y)
	}

	if count == 0 {
		return 255, 255, 255
	}
	return sumR / float64(count), sumG / float64(count), sumB / float64(count)
}
