package imaging

import (
	"image"
	"image/color"
	"math"
)

const (
	// Mean luminance the gamma stage drives toward.
	targetLuminance = 128.0

	// Gamma clamp bounds to prevent overcorrection of very dark or very
	// bright inputs.
	minGamma = 0.5
	maxGamma = 1.8
)

// correctGamma applies a lookup-table gamma correction that pushes the mean
// luminance toward targetLuminance.
func correctGamma(src *image.RGBA) *image.RGBA {
	mean := meanLuminance(src)
	if mean <= 0 {
		return src
	}

	gamma := math.Log(targetLuminance) / math.Log(mean)
	gamma = math.Min(math.Max(gamma, minGamma), maxGamma)

	invGamma := 1.0 / gamma
	var table [256]uint8
	for i := 0; i < 256; i++ {
		table[i] = uint8(math.Pow(float64(i)/255.0, invGamma)*255.0 + 0.5)
	}

	out := image.NewRGBA(src.Bounds())
	for i := 0; i < len(src.Pix); i += 4 {
		out.Pix[i] = table[src.Pix[i]]
		out.Pix[i+1] = table[src.Pix[i+1]]
		out.Pix[i+2] = table[src.Pix[i+2]]
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out
}

func meanLuminance(src *image.RGBA) float64 {
	bounds := src.Bounds()
	total := 0.0
	count := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			total += luminance(src.RGBAAt(x, y))
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

const (
	contrastTiles     = 8
	contrastClipLimit = 4.0
)

// enhanceLocalContrast applies a clip-limited adaptive histogram
// equalization over the luminance channel, interpolating the per-tile
// mappings bilinearly so tile borders stay invisible. Chroma is preserved by
// scaling the RGB channels with the luminance ratio.
func enhanceLocalContrast(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < contrastTiles || height < contrastTiles {
		return src
	}

	tileW := (width + contrastTiles - 1) / contrastTiles
	tileH := (height + contrastTiles - 1) / contrastTiles

	// Per-tile clipped-histogram CDF mapping.
	maps := make([][256]uint8, contrastTiles*contrastTiles)
	for ty := 0; ty < contrastTiles; ty++ {
		for tx := 0; tx < contrastTiles; tx++ {
			var hist [256]int
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, width), min(y0+tileH, height)
			pixels := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[int(luminance(src.RGBAAt(x, y)))]++
					pixels++
				}
			}
			maps[ty*contrastTiles+tx] = equalizeClipped(hist, pixels)
		}
	}

	out := image.NewRGBA(bounds)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := src.RGBAAt(x, y)
			lum := luminance(c)
			mapped := interpolateTiles(maps, x, y, tileW, tileH, uint8(lum))
			ratio := 1.0
			if lum > 0 {
				ratio = float64(mapped) / lum
			}
			out.SetRGBA(x, y, scalePixel(c, ratio))
		}
	}
	return out
}

// equalizeClipped builds an equalization mapping from a clip-limited
// histogram; the clipped excess is redistributed uniformly.
func equalizeClipped(hist [256]int, pixels int) [256]uint8 {
	var mapping [256]uint8
	if pixels == 0 {
		for i := range mapping {
			mapping[i] = uint8(i)
		}
		return mapping
	}

	clip := int(contrastClipLimit * float64(pixels) / 256.0)
	if clip < 1 {
		clip = 1
	}
	excess := 0
	for i := 0; i < 256; i++ {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	redistribute := excess / 256
	for i := 0; i < 256; i++ {
		hist[i] += redistribute
	}
	// The division remainder must go back too, spread over evenly spaced
	// bins. Dropping it deflates the CDF and darkens the whole tile, worst
	// for small tiles where nearly all mass sits above the clip.
	if leftover := excess % 256; leftover > 0 {
		step := 256 / leftover
		if step < 1 {
			step = 1
		}
		for i := 0; i < 256 && leftover > 0; i += step {
			hist[i]++
			leftover--
		}
	}

	cdf := 0
	for i := 0; i < 256; i++ {
		cdf += hist[i]
		mapping[i] = uint8(math.Round(255.0 * float64(cdf) / float64(pixels)))
	}
	return mapping
}

// interpolateTiles bilinearly blends the four surrounding tile mappings for
// the pixel at (x, y).
func interpolateTiles(maps [][256]uint8, x, y, tileW, tileH int, v uint8) uint8 {
	fx := (float64(x) - float64(tileW)/2.0) / float64(tileW)
	fy := (float64(y) - float64(tileH)/2.0) / float64(tileH)

	tx0 := int(math.Floor(fx))
	ty0 := int(math.Floor(fy))
	wx := fx - float64(tx0)
	wy := fy - float64(ty0)

	clampTile := func(t int) int {
		if t < 0 {
			return 0
		}
		if t >= contrastTiles {
			return contrastTiles - 1
		}
		return t
	}
	tx1 := clampTile(tx0 + 1)
	ty1 := clampTile(ty0 + 1)
	tx0 = clampTile(tx0)
	ty0 = clampTile(ty0)

	m00 := float64(maps[ty0*contrastTiles+tx0][v])
	m10 := float64(maps[ty0*contrastTiles+tx1][v])
	m01 := float64(maps[ty1*contrastTiles+tx0][v])
	m11 := float64(maps[ty1*contrastTiles+tx1][v])

	top := m00*(1-wx) + m10*wx
	bottom := m01*(1-wx) + m11*wx
	return uint8(top*(1-wy) + bottom*wy)
}

const (
	sharpenAmount    = 0.5
	sharpenThreshold = 2.0
)

// unsharpMask applies a mild sharpening: subtract a 3x3 box blur and add
// back a fraction of the difference for pixels above a small threshold.
func unsharpMask(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(bounds)
	copy(out.Pix, src.Pix)

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			for ch := 0; ch < 3; ch++ {
				idx := src.PixOffset(x, y) + ch
				sum := 0
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						sum += int(src.Pix[src.PixOffset(x+dx, y+dy)+ch])
					}
				}
				blurred := float64(sum) / 9.0
				orig := float64(src.Pix[idx])
				diff := orig - blurred
				if math.Abs(diff) < sharpenThreshold {
					continue
				}
				out.Pix[idx] = clampByte(orig + sharpenAmount*diff)
			}
		}
	}
	return out
}

func scalePixel(c color.RGBA, ratio float64) color.RGBA {
	return color.RGBA{
		R: clampByte(float64(c.R) * ratio),
		G: clampByte(float64(c.G) * ratio),
		B: clampByte(float64(c.B) * ratio),
		A: c.A,
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
