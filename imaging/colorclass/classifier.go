package colorclass

import (
	"image"
	"math"
	"sort"
)

const (
	// Downsample edge length used before clustering.
	sampleSize = 64

	// Pixels darker or brighter than these mean-channel bounds are treated
	// as background or blowout and excluded from clustering.
	minPixelBrightness = 20.0
	maxPixelBrightness = 235.0

	clusterCount      = 5
	clusterIterations = 20
)

// Classify derives the categorical color signature of an image. It is
// deterministic for a fixed image.
func Classify(img image.Image) Classification {
	points := samplePixels(img, true)
	if len(points) == 0 {
		// The brightness filter removed every pixel, which happens for
		// uniformly black or white frames. Fall back to the unfiltered
		// sample rather than giving up on an obviously classifiable image.
		points = samplePixels(img, false)
	}
	if len(points) == 0 {
		return Classification{Primary: Unknown, Confidence: 0}
	}

	clusters := kmeans(points, clusterCount, clusterIterations)

	dominant := make([][3]uint8, 0, len(clusters))
	votes := map[Category]float64{}
	total := 0.0
	for rank, cl := range clusters {
		dominant = append(dominant, [3]uint8{
			uint8(math.Round(cl.center[0])),
			uint8(math.Round(cl.center[1])),
			uint8(math.Round(cl.center[2])),
		})
		weight := 1.0 / float64(rank+1)
		votes[bucketColor(cl.center)] += weight
		total += weight
	}

	return tallyVotes(votes, total, dominant)
}

// tallyVotes ranks categories by weighted vote, breaking ties by category
// name, and applies the MinConfidence floor. With five clusters and harmonic
// rank weights the top category always holds at least 1/(1+1/2+...+1/5) of
// the total, so the floor only fires for vote distributions flatter than
// clustering itself can produce.
func tallyVotes(votes map[Category]float64, total float64, dominant [][3]uint8) Classification {
	ranked := make([]Category, 0, len(votes))
	for c := range votes {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if votes[ranked[i]] != votes[ranked[j]] {
			return votes[ranked[i]] > votes[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	result := Classification{
		Primary:        ranked[0],
		Confidence:     votes[ranked[0]] / total,
		DominantColors: dominant,
	}
	if len(ranked) > 1 {
		result.Secondary = ranked[1]
	}
	if result.Confidence < MinConfidence {
		result.Primary = Unknown
	}
	return result
}

// samplePixels downsamples the image with nearest-neighbor striding and,
// when filter is set, drops background/blowout pixels.
func samplePixels(img image.Image, filter bool) []point {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	strideX := width / sampleSize
	if strideX < 1 {
		strideX = 1
	}
	strideY := height / sampleSize
	if strideY < 1 {
		strideY = 1
	}

	points := make([]point, 0, sampleSize*sampleSize)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += strideY {
		for x := bounds.Min.X; x < bounds.Max.X; x += strideX {
			r, g, b, _ := img.At(x, y).RGBA()
			p := point{float64(r >> 8), float64(g >> 8), float64(b >> 8)}
			if filter {
				mean := (p[0] + p[1] + p[2]) / 3.0
				if mean < minPixelBrightness || mean > maxPixelBrightness {
					continue
				}
			}
			points = append(points, p)
		}
	}
	return points
}

// bucketColor maps an RGB cluster center to its color category via HSV
// ranges with explicit special cases for black, white and brown.
func bucketColor(p point) Category {
	h, s, v := rgbToHSV(p[0], p[1], p[2])

	switch {
	case v < 0.15:
		return Black
	case s < 0.12 && v > 0.85:
		return White
	case s < 0.12:
		// Low saturation grays: split on value.
		if v > 0.5 {
			return White
		}
		return Black
	}

	// Brown is a dark, moderately saturated sub-range of the orange band.
	if h >= 10 && h < 45 && v < 0.7 && s > 0.2 {
		return Brown
	}

	switch {
	case h < 12 || h >= 340:
		return Red
	case h < 40:
		return Orange
	case h < 70:
		return Yellow
	case h < 165:
		return Green
	case h < 255:
		return Blue
	case h < 290:
		return Purple
	case h < 340:
		return Pink
	}
	return Unknown
}

// rgbToHSV converts 0-255 RGB values to hue in degrees [0, 360) and
// saturation/value in [0, 1].
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255
	g /= 255
	b /= 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC

	v = maxC
	if maxC > 0 {
		s = delta / maxC
	}

	if delta == 0 {
		return 0, s, v
	}
	switch maxC {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}
