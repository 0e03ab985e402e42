package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/shelfsight/catalog"
	"github.com/hrygo/shelfsight/imaging/colorclass"
	"github.com/hrygo/shelfsight/job"
	"github.com/hrygo/shelfsight/store"
)

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type jobResponse struct {
	JobID        string             `json:"job_id"`
	Status       string             `json:"status"`
	CreatedTs    int64              `json:"created_ts"`
	UpdatedTs    int64              `json:"updated_ts"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Payload      *job.ResultPayload `json:"payload,omitempty"`
}

type catalogEntryResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Brand           string  `json:"brand,omitempty"`
	Barcode         string  `json:"barcode,omitempty"`
	ColorCategory   string  `json:"color_category"`
	ColorConfidence float64 `json:"color_confidence"`
}

type indexStatsResponse struct {
	BuiltAt    string         `json:"built_at"`
	Entries    int            `json:"entries"`
	ShardSizes map[string]int `json:"shard_sizes"`
}

// submitSearch accepts a multipart image upload and queues an asynchronous
// search. The response is the job handle to poll.
func (s *Server) submitSearch(c echo.Context) error {
	data, err := readUpload(c, "image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := s.jobs.Submit(c.Request().Context(), data)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to submit search job")
	}
	return c.JSON(http.StatusAccepted, submitResponse{
		JobID:  created.ID,
		Status: string(created.Status),
	})
}

// getSearchJob returns the state of a job, including the parsed result
// payload once the job succeeded.
func (s *Server) getSearchJob(c echo.Context) error {
	found, err := s.jobs.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load search job")
	}
	if found == nil {
		return echo.NewHTTPError(http.StatusNotFound, "search job not found")
	}

	resp := jobResponse{
		JobID:        found.ID,
		Status:       string(found.Status),
		CreatedTs:    found.CreatedTs,
		UpdatedTs:    found.UpdatedTs,
		ErrorMessage: found.ErrorMessage,
	}
	if found.Status == store.JobSuccess && found.ResultsJSON != "" {
		var payload job.ResultPayload
		if err := json.Unmarshal([]byte(found.ResultsJSON), &payload); err == nil {
			resp.Payload = &payload
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// createCatalogEntry ingests one reference product.
func (s *Server) createCatalogEntry(c echo.Context) error {
	data, err := readUpload(c, "image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entry, err := s.processor.Ingest(c.Request().Context(), &catalog.IngestRequest{
		Name:      c.FormValue("name"),
		Brand:     c.FormValue("brand"),
		Barcode:   c.FormValue("barcode"),
		ImageData: data,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusCreated, catalogEntryResponse{
		ID:              entry.ID,
		Name:            entry.Name,
		Brand:           entry.Brand,
		Barcode:         entry.Barcode,
		ColorCategory:   string(entry.ColorCategory),
		ColorConfidence: entry.ColorConfidence,
	})
}

// triggerRebuild schedules an index rebuild.
func (s *Server) triggerRebuild(c echo.Context) error {
	s.rebuilder.Notify()
	return c.JSON(http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// indexStats reports the active snapshot.
func (s *Server) indexStats(c echo.Context) error {
	snapshot := s.index.Snapshot()

	sizes := make(map[string]int, len(colorclass.Categories))
	for category, size := range snapshot.ShardSizes() {
		sizes[string(category)] = size
	}
	return c.JSON(http.StatusOK, indexStatsResponse{
		BuiltAt:    snapshot.BuiltAt().UTC().Format("2006-01-02T15:04:05Z07:00"),
		Entries:    snapshot.Len(),
		ShardSizes: sizes,
	})
}

func readUpload(c echo.Context, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, errMissingUpload(field)
	}
	f, err := header.Open()
	if err != nil {
		return nil, errMissingUpload(field)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		return nil, errMissingUpload(field)
	}
	return data, nil
}

type errMissingUpload string

func (e errMissingUpload) Error() string {
	return "missing or unreadable upload field: " + string(e)
}
