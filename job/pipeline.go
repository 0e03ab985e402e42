package job

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/shelfsight/extractor"
	"github.com/hrygo/shelfsight/imaging/colorclass"
	"github.com/hrygo/shelfsight/search"
	"github.com/hrygo/shelfsight/store"
	"github.com/hrygo/shelfsight/textproc"
)

// ResultItem is one ranked match in the job result payload.
type ResultItem struct {
	CatalogID         string  `json:"catalog_id"`
	Name              string  `json:"name"`
	Brand             string  `json:"brand"`
	HybridScore       float64 `json:"hybrid_score"`
	VisualSimilarity  float64 `json:"visual_similarity"`
	TextSimilarity    float64 `json:"text_similarity"`
	ColorCategory     string  `json:"color_category"`
	IsExactColorMatch bool    `json:"is_exact_color_match"`
	ImagePath         string  `json:"image_path,omitempty"`
}

// QueryInfo describes what the pipeline saw in the query image.
type QueryInfo struct {
	ColorCategory     string     `json:"color_category"`
	SecondaryCategory string     `json:"secondary_category,omitempty"`
	ColorConfidence   float64    `json:"color_confidence"`
	DominantColors    [][3]uint8 `json:"dominant_colors,omitempty"`
	OCRText           string     `json:"ocr_text,omitempty"`
	Brand             string     `json:"brand,omitempty"`
	Name              string     `json:"name,omitempty"`
}

// ResultPayload is the JSON document stored on SUCCESS.
type ResultPayload struct {
	Query   QueryInfo    `json:"query"`
	Results []ResultItem `json:"results"`
}

// process drives one job to a terminal status. Every exit path either
// succeeds or fails the row; the query image is removed once the job is
// terminal.
func (s *Service) process(ctx context.Context, registry *extractor.ModelRegistry, jobID string) {
	job, err := s.store.GetSearchJob(ctx, jobID)
	if err != nil {
		slog.Error("failed to load search job", "id", jobID, "err", err)
		return
	}
	if job == nil || job.Status.Terminal() {
		return
	}

	if !s.transition(ctx, jobID, store.JobProcessing, nil) {
		return
	}
	start := time.Now()
	if s.exporter != nil {
		s.exporter.JobStarted()
	}

	status := s.run(ctx, registry, job)

	if s.exporter != nil {
		s.exporter.JobFinished(string(status), time.Since(start))
	}
	if err := os.Remove(job.ImagePath); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove query image", "id", jobID, "err", err)
	}
}

// run executes the pipeline stages and returns the terminal status it
// recorded.
func (s *Service) run(ctx context.Context, registry *extractor.ModelRegistry, job *store.SearchJob) store.JobStatus {
	raw, err := os.ReadFile(job.ImagePath)
	if err != nil {
		return s.fail(ctx, job.ID, "query image unavailable: "+err.Error())
	}

	stageStart := time.Now()
	normalized, err := s.normalizer.Normalize(raw)
	if err != nil {
		return s.fail(ctx, job.ID, "invalid query image: "+err.Error())
	}
	s.observe("normalize", stageStart)

	stageStart = time.Now()
	classification := colorclass.Classify(normalized.RGBA())
	s.observe("classify", stageStart)

	encoded, err := normalized.EncodeJPEG()
	if err != nil {
		return s.fail(ctx, job.ID, "failed to encode query image: "+err.Error())
	}

	// Visual features and the text branch are independent; run them in
	// parallel. Both degrade on backend failure, only cancellation aborts
	// the job.
	var features []float32
	var queryParsed textproc.ParsedText
	var textVec []float32

	stageStart = time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := registry.Features.ExtractFeatures(gctx, encoded)
		if err != nil {
			if gctx.Err() != nil {
				return err
			}
			// A dead extraction service must not strand the job; a zero
			// vector still ranks on text and keeps the outcome terminal.
			slog.Warn("feature extraction degraded to a zero vector",
				"id", job.ID, "err", err)
			vec = make([]float32, registry.Features.Dimensions())
		}
		features = vec
		return nil
	})
	g.Go(func() error {
		recognized := registry.Text.RecognizeText(gctx, encoded)
		queryParsed = textproc.ParseText(recognized.Text)

		embedText := textproc.NormalizeForEmbedding(queryParsed.FullText)
		if embedText == "" {
			return nil
		}
		vec, err := registry.Embedding.EmbedWithColor(gctx, embedText, classification.Primary)
		if err != nil {
			slog.Warn("query text embedding failed, ranking on visuals only",
				"id", job.ID, "err", err)
			return nil
		}
		textVec = vec
		return nil
	})
	if err := g.Wait(); err != nil {
		return s.fail(ctx, job.ID, "search pipeline interrupted: "+err.Error())
	}
	s.observe("extract", stageStart)

	stageStart = time.Now()
	probe := search.ProbeOrder(classification.Primary, classification.Secondary)
	candidates := s.index.Search(features, probe, s.profile.SearchTopK)
	ranked := search.Rank(candidates, textVec, queryParsed.FullText, s.lookup)
	if len(ranked) > s.profile.ResultLimit {
		ranked = ranked[:s.profile.ResultLimit]
	}
	s.observe("search", stageStart)

	payload, err := s.buildPayload(ctx, classification, queryParsed, candidates, ranked)
	if err != nil {
		return s.fail(ctx, job.ID, "failed to assemble results: "+err.Error())
	}

	success := store.JobSuccess
	update := &store.UpdateSearchJob{
		ID:              job.ID,
		Status:          &success,
		ColorCategory:   &classification.Primary,
		ColorConfidence: &classification.Confidence,
		OCRText:         &queryParsed.FullText,
		ResultsJSON:     &payload,
	}
	if classification.Secondary != "" {
		update.SecondaryColor = &classification.Secondary
	}
	if _, err := s.store.UpdateSearchJob(ctx, update); err != nil {
		// The job must still reach a terminal row; fail swaps in a fresh
		// context when this one has been canceled by the timeout.
		return s.fail(ctx, job.ID, "failed to record job results: "+err.Error())
	}
	slog.Info("search job completed",
		"id", job.ID,
		"color", classification.Primary,
		"results", len(ranked))
	return store.JobSuccess
}

func (s *Service) buildPayload(ctx context.Context, classification colorclass.Classification, parsed textproc.ParsedText, candidates []search.Candidate, ranked []search.HybridResult) (string, error) {
	byID := make(map[string]search.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	payload := ResultPayload{
		Query: QueryInfo{
			ColorCategory:     string(classification.Primary),
			SecondaryCategory: string(classification.Secondary),
			ColorConfidence:   classification.Confidence,
			DominantColors:    classification.DominantColors,
			OCRText:           parsed.FullText,
			Brand:             parsed.Brand,
			Name:              parsed.Name,
		},
		Results: make([]ResultItem, 0, len(ranked)),
	}

	for _, hit := range ranked {
		cand := byID[hit.ID]
		item := ResultItem{
			CatalogID:         hit.ID,
			HybridScore:       hit.HybridScore,
			VisualSimilarity:  hit.VisualSimilarity,
			TextSimilarity:    hit.TextSimilarity,
			ColorCategory:     string(cand.ColorCategory),
			IsExactColorMatch: cand.IsExactColorMatch,
		}
		if entry, err := s.store.GetCatalogEntry(ctx, hit.ID); err == nil && entry != nil {
			item.Name = entry.Name
			item.Brand = entry.Brand
			item.ImagePath = entry.ImagePath
		}
		payload.Results = append(payload.Results, item)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *Service) observe(stage string, start time.Time) {
	if s.exporter != nil {
		s.exporter.ObserveStage(stage, time.Since(start))
	}
}

// fail records the FAILURE with its message and returns the status.
func (s *Service) fail(ctx context.Context, jobID, message string) store.JobStatus {
	failure := store.JobFailure
	if !s.transition(ctx, jobID, failure, &message) {
		return failure
	}
	slog.Warn("search job failed", "id", jobID, "reason", message)
	return failure
}

// transition applies a status change, tolerating jobs that concurrently
// reached a terminal status.
func (s *Service) transition(ctx context.Context, jobID string, status store.JobStatus, message *string) bool {
	// A canceled pipeline context must not block the terminal write.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	_, err := s.store.UpdateSearchJob(ctx, &store.UpdateSearchJob{
		ID:           jobID,
		Status:       &status,
		ErrorMessage: message,
	})
	if err != nil {
		if errors.Is(err, store.ErrJobTerminal) {
			return false
		}
		slog.Error("failed to update job status", "id", jobID, "status", status, "err", err)
		return false
	}
	return true
}
