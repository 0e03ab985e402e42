// Package colorclass derives a categorical color signature from a normalized
// product image. The palette is closed: every image maps to exactly one
// primary category, with a confidence score and an optional secondary.
package colorclass

// Category is one of the closed set of color categories.
type Category string

const (
	Red     Category = "red"
	Orange  Category = "orange"
	Yellow  Category = "yellow"
	Green   Category = "green"
	Blue    Category = "blue"
	Purple  Category = "purple"
	White   Category = "white"
	Black   Category = "black"
	Brown   Category = "brown"
	Pink    Category = "pink"
	Unknown Category = "unknown"
)

// Categories lists every category in the palette, Unknown last.
var Categories = []Category{
	Red, Orange, Yellow, Green, Blue, Purple, White, Black, Brown, Pink, Unknown,
}

// Valid reports whether c is part of the closed palette.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory maps a raw string to a Category, falling back to Unknown for
// anything outside the palette.
func ParseCategory(s string) Category {
	c := Category(s)
	if !c.Valid() {
		return Unknown
	}
	return c
}

// Classification is the categorical color signature of an image.
type Classification struct {
	// Primary is the winning category. Forced to Unknown when Confidence is
	// below MinConfidence.
	Primary Category `json:"category"`

	// Secondary is the runner-up category, empty when there is none.
	Secondary Category `json:"secondary_category,omitempty"`

	// Confidence is the winning vote share in [0, 1]. It is preserved for
	// diagnostics even when Primary has been forced to Unknown.
	Confidence float64 `json:"confidence"`

	// DominantColors holds the cluster centers ordered by population,
	// largest first, as RGB triples.
	DominantColors [][3]uint8 `json:"dominant_colors,omitempty"`
}

// MinConfidence is the vote share below which the primary category is not
// trusted downstream.
const MinConfidence = 0.3
