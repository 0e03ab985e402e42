package imaging

import (
	"image"
	"image/draw"
	"log/slog"

	"github.com/disintegration/imaging"
)

// DebugSink receives intermediate pipeline stage outputs for diagnostic
// capture. Implementations must not mutate the image.
type DebugSink interface {
	CaptureStage(name string, img image.Image)
}

// Config configures the Normalizer.
type Config struct {
	// TargetSize overrides the canonical resolution (default CanonicalSize).
	TargetSize int

	// DebugSink, when set, receives a copy of every stage output.
	DebugSink DebugSink
}

// Normalizer converts raw image bytes into a NormalizedImage.
//
// The pipeline is: decode, background isolation, gamma correction, adaptive
// local contrast, mild sharpening, resize. Only the decode stage is fatal;
// every later stage falls back to the previous buffer on failure.
type Normalizer struct {
	targetSize int
	debugSink  DebugSink
}

// NewNormalizer creates a new Normalizer.
func NewNormalizer(cfg Config) *Normalizer {
	size := cfg.TargetSize
	if size <= 0 {
		size = CanonicalSize
	}
	return &Normalizer{
		targetSize: size,
		debugSink:  cfg.DebugSink,
	}
}

// Normalize runs the full pipeline over raw image bytes.
func (n *Normalizer) Normalize(raw []byte) (*NormalizedImage, error) {
	img, err := decode(raw)
	if err != nil {
		return nil, err
	}
	n.capture("0_original", img)

	if isolated, ok := isolateBackground(img); ok {
		img = isolated
		n.capture("1_bg_isolated", img)
	} else {
		slog.Debug("background isolation unreliable, keeping original frame")
	}

	img = correctGamma(img)
	n.capture("2_gamma_corrected", img)

	img = enhanceLocalContrast(img)
	n.capture("3_contrast_enhanced", img)

	img = unsharpMask(img)
	n.capture("4_sharpened", img)

	final := n.resize(img)
	n.capture("5_final", final)

	return &NormalizedImage{rgba: final}, nil
}

// resize scales the buffer to the canonical resolution with Lanczos
// resampling and forces a 3-channel interpretation (opaque alpha).
func (n *Normalizer) resize(src *image.RGBA) *image.RGBA {
	scaled := imaging.Resize(src, n.targetSize, n.targetSize, imaging.Lanczos)
	dst := image.NewRGBA(image.Rect(0, 0, n.targetSize, n.targetSize))
	draw.Draw(dst, dst.Bounds(), scaled, image.Point{}, draw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func (n *Normalizer) capture(name string, img image.Image) {
	if n.debugSink == nil {
		return
	}
	n.debugSink.CaptureStage(name, img)
}
