package store

import (
	"github.com/pkg/errors"

	"github.com/hrygo/shelfsight/imaging/colorclass"
)

// JobStatus is the lifecycle state of a search job.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobSuccess    JobStatus = "SUCCESS"
	JobFailure    JobStatus = "FAILURE"
)

// ErrJobTerminal is returned when an update targets a job that already
// reached SUCCESS or FAILURE. Terminal statuses never change.
var ErrJobTerminal = errors.New("search job is in a terminal status")

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobFailure
}

// SearchJob is one asynchronous similarity search request.
type SearchJob struct {
	ID string

	// Standard fields
	CreatedTs int64
	UpdatedTs int64

	// Domain specific fields
	Status    JobStatus
	ImagePath string

	// Populated while processing
	ColorCategory   colorclass.Category
	SecondaryColor  colorclass.Category
	ColorConfidence float64
	OCRText         string

	// ResultsJSON holds the serialized ranked results on SUCCESS.
	ResultsJSON  string
	ErrorMessage string
}

// FindSearchJob is the typed filter for job listing.
type FindSearchJob struct {
	ID       *string
	Status   *JobStatus
	Statuses []JobStatus

	Limit  *int
	Offset *int
}

// UpdateSearchJob carries a job state transition. Nil fields are left
// untouched.
type UpdateSearchJob struct {
	ID string

	Status          *JobStatus
	ColorCategory   *colorclass.Category
	SecondaryColor  *colorclass.Category
	ColorConfidence *float64
	OCRText         *string
	ResultsJSON     *string
	ErrorMessage    *string
}
