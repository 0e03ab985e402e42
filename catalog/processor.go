// Package catalog ingests reference products: it computes the signatures a
// product needs to be findable (normalized image, color classification,
// visual features, recognized text and its embedding) and persists them.
package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hrygo/shelfsight/extractor"
	"github.com/hrygo/shelfsight/imaging"
	"github.com/hrygo/shelfsight/imaging/colorclass"
	"github.com/hrygo/shelfsight/store"
	"github.com/hrygo/shelfsight/textproc"
)

// RebuildNotifier is signaled after every catalog mutation so the index can
// pick up the change.
type RebuildNotifier interface {
	Notify()
}

// IngestRequest is one product to add to the catalog.
type IngestRequest struct {
	Name      string
	Brand     string
	Barcode   string
	ImageData []byte
}

// Processor runs the ingest pipeline.
type Processor struct {
	store      *store.Store
	registry   *extractor.ModelRegistry
	normalizer *imaging.Normalizer
	notifier   RebuildNotifier
	imageDir   string
}

// NewProcessor creates a Processor. notifier may be nil when no index is
// attached, for bulk imports before serving starts.
func NewProcessor(s *store.Store, registry *extractor.ModelRegistry, normalizer *imaging.Normalizer, notifier RebuildNotifier, imageDir string) *Processor {
	return &Processor{
		store:      s,
		registry:   registry,
		normalizer: normalizer,
		notifier:   notifier,
		imageDir:   imageDir,
	}
}

// Ingest normalizes the image, derives every signature and persists the
// entry. Feature extraction failure is fatal for the ingest; text
// recognition and embedding degrade to empty values.
func (p *Processor) Ingest(ctx context.Context, req *IngestRequest) (*store.CatalogEntry, error) {
	normalized, err := p.normalizer.Normalize(req.ImageData)
	if err != nil {
		return nil, errors.Wrap(err, "failed to normalize catalog image")
	}

	classification := colorclass.Classify(normalized.RGBA())

	encoded, err := normalized.EncodeJPEG()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode normalized image")
	}

	features, err := p.registry.Features.ExtractFeatures(ctx, encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract catalog features")
	}

	id := uuid.NewString()
	imagePath, err := p.saveImage(id, encoded)
	if err != nil {
		return nil, err
	}

	entry := &store.CatalogEntry{
		ID:              id,
		Name:            req.Name,
		Brand:           req.Brand,
		Barcode:         req.Barcode,
		ImagePath:       imagePath,
		VisualEmbedding: features,
		ColorCategory:   classification.Primary,
		SecondaryColor:  classification.Secondary,
		ColorConfidence: classification.Confidence,
		DominantColors:  classification.DominantColors,
	}

	p.attachText(ctx, entry, encoded, req)

	created, err := p.store.CreateCatalogEntry(ctx, entry)
	if err != nil {
		return nil, errors.Wrap(err, "failed to persist catalog entry")
	}

	if p.notifier != nil {
		p.notifier.Notify()
	}
	slog.Info("catalog entry ingested",
		"id", created.ID,
		"name", created.Name,
		"color", created.ColorCategory,
		"confidence", created.ColorConfidence)
	return created, nil
}

// attachText runs recognition and text embedding. Both are best effort: a
// product without readable text is still searchable visually.
func (p *Processor) attachText(ctx context.Context, entry *store.CatalogEntry, encoded []byte, req *IngestRequest) {
	recognized := p.registry.Text.RecognizeText(ctx, encoded)
	parsed := textproc.ParseText(recognized.Text)
	entry.OCRText = parsed.FullText

	if entry.Name == "" && parsed.Name != "" {
		entry.Name = parsed.Name
	}
	if entry.Brand == "" && parsed.Brand != "" {
		entry.Brand = parsed.Brand
	}

	embedText := textproc.NormalizeForEmbedding(entry.Brand + " " + entry.Name + " " + parsed.FullText)
	if embedText == "" {
		return
	}
	vec, err := p.registry.Embedding.EmbedWithColor(ctx, embedText, entry.ColorCategory)
	if err != nil {
		slog.Warn("catalog text embedding failed, entry stays visual-only",
			"name", entry.Name, "err", err)
		return
	}
	entry.TextEmbedding = vec
}

func (p *Processor) saveImage(id string, encoded []byte) (string, error) {
	dir := filepath.Join(p.imageDir, "catalog")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.Wrap(err, "failed to create catalog image dir")
	}
	path := filepath.Join(dir, id+".jpg")
	if err := os.WriteFile(path, encoded, 0o640); err != nil {
		return "", errors.Wrap(err, "failed to write catalog image")
	}
	return path, nil
}
