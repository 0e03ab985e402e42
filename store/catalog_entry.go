package store

import (
	"github.com/hrygo/shelfsight/imaging/colorclass"
)

// CatalogEntry is one indexed product with its precomputed signatures.
type CatalogEntry struct {
	ID string

	// Standard fields
	CreatedTs int64
	UpdatedTs int64

	// Domain specific fields
	Name      string
	Brand     string
	Barcode   string
	ImagePath string

	// Signatures computed at ingest time
	VisualEmbedding []float32
	TextEmbedding   []float32
	ColorCategory   colorclass.Category
	SecondaryColor  colorclass.Category
	ColorConfidence float64
	DominantColors  [][3]uint8
	OCRText         string
}

// FindCatalogEntry is the typed filter for catalog listing.
type FindCatalogEntry struct {
	ID            *string
	Barcode       *string
	ColorCategory *colorclass.Category

	// OnlyWithFeatures keeps entries that carry a visual embedding, which is
	// what the index rebuild consumes.
	OnlyWithFeatures bool

	Limit  *int
	Offset *int
}

// UpdateCatalogEntry carries the mutable subset of a catalog entry. Nil
// fields are left untouched.
type UpdateCatalogEntry struct {
	ID string

	Name      *string
	Brand     *string
	Barcode   *string
	ImagePath *string

	VisualEmbedding []float32
	TextEmbedding   []float32
	ColorCategory   *colorclass.Category
	SecondaryColor  *colorclass.Category
	ColorConfidence *float64
	DominantColors  [][3]uint8
	OCRText         *string
}
