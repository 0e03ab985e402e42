// Package imaging converts arbitrary uploaded product photos into the
// canonical fixed-size representation the rest of the pipeline operates on.
package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

const (
	// CanonicalSize is the edge length of a normalized image in pixels.
	CanonicalSize = 512

	// MinDimension is the smallest acceptable input edge length.
	MinDimension = 50
)

// ErrInvalidImage is returned when the input bytes cannot be decoded or the
// decoded image has degenerate dimensions.
var ErrInvalidImage = errors.New("invalid image")

// NormalizedImage is the canonical output of the Normalizer: a fixed-size
// RGB pixel buffer with a standardized background. It is immutable once
// produced; stages always allocate a new buffer.
type NormalizedImage struct {
	rgba *image.RGBA
}

// RGBA exposes the underlying pixel buffer. Callers must not mutate it.
func (n *NormalizedImage) RGBA() *image.RGBA {
	return n.rgba
}

// Bounds returns the pixel bounds of the image.
func (n *NormalizedImage) Bounds() image.Rectangle {
	return n.rgba.Bounds()
}

// At returns the color at (x, y).
func (n *NormalizedImage) At(x, y int) color.Color {
	return n.rgba.At(x, y)
}

// EncodeJPEG serializes the image for transport to the model services.
func (n *NormalizedImage) EncodeJPEG() ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, n.rgba, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode parses raw bytes into an RGBA buffer, honoring EXIF orientation
// so phone photos come out upright. A decode failure or an image smaller
// than MinDimension on either side is fatal for the input.
func decode(raw []byte) (*image.RGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrInvalidImage
	}

	bounds := img.Bounds()
	if bounds.Dx() < MinDimension || bounds.Dy() < MinDimension {
		return nil, ErrInvalidImage
	}

	return toRGBA(img), nil
}

// toRGBA copies any image into a zero-origin RGBA buffer.
func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x-bounds.Min.X, y-bounds.Min.Y, img.At(x, y))
		}
	}
	return dst
}

// luminance returns the perceptual brightness of an RGBA pixel in [0, 255].
func luminance(c color.RGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}
