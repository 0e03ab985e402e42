package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/shelfsight/imaging/colorclass"
	"github.com/hrygo/shelfsight/store"
)

// CreateSearchJob inserts a job, defaulting to PENDING.
func (d *DB) CreateSearchJob(ctx context.Context, create *store.SearchJob) (*store.SearchJob, error) {
	status := create.Status
	if status == "" {
		status = store.JobPending
	}

	stmt := `
		INSERT INTO search_job (id, status, image_path)
		VALUES (?, ?, ?)
		RETURNING created_ts, updated_ts
	`
	job := *create
	job.Status = status
	err := d.db.QueryRowContext(ctx, stmt,
		create.ID,
		string(status),
		create.ImagePath,
	).Scan(&job.CreatedTs, &job.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create search job")
	}
	return &job, nil
}

// GetSearchJob fetches one job by id, nil when absent.
func (d *DB) GetSearchJob(ctx context.Context, id string) (*store.SearchJob, error) {
	jobs, err := d.ListSearchJobs(ctx, &store.FindSearchJob{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return jobs[0], nil
}

// ListSearchJobs lists jobs matching the filter, oldest first so pending
// recovery processes them in submission order.
func (d *DB) ListSearchJobs(ctx context.Context, find *store.FindSearchJob) ([]*store.SearchJob, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, string(*find.Status))
	}
	if len(find.Statuses) > 0 {
		placeholders := make([]string, len(find.Statuses))
		for i, status := range find.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `
		SELECT id, created_ts, updated_ts, status, image_path,
			color_category, secondary_color, color_confidence, ocr_text,
			results, error_message
		FROM search_job
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
		if find.Offset != nil {
			query += " OFFSET ?"
			args = append(args, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list search jobs")
	}
	defer rows.Close()

	var jobs []*store.SearchJob
	for rows.Next() {
		var job store.SearchJob
		var status, category, secondary string
		err := rows.Scan(
			&job.ID,
			&job.CreatedTs,
			&job.UpdatedTs,
			&status,
			&job.ImagePath,
			&category,
			&secondary,
			&job.ColorConfidence,
			&job.OCRText,
			&job.ResultsJSON,
			&job.ErrorMessage,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan search job")
		}
		job.Status = store.JobStatus(status)
		job.ColorCategory = colorclass.Category(category)
		job.SecondaryColor = colorclass.Category(secondary)
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// UpdateSearchJob applies the non-nil fields of the update. Jobs in a
// terminal status are immutable: the guard is in the statement itself, so a
// concurrent transition can never overwrite a finished job.
func (d *DB) UpdateSearchJob(ctx context.Context, update *store.UpdateSearchJob) (*store.SearchJob, error) {
	set, args := []string{"updated_ts = strftime('%s', 'now')"}, []any{}

	if update.Status != nil {
		set, args = append(set, "status = ?"), append(args, string(*update.Status))
	}
	if update.ColorCategory != nil {
		set, args = append(set, "color_category = ?"), append(args, string(*update.ColorCategory))
	}
	if update.SecondaryColor != nil {
		set, args = append(set, "secondary_color = ?"), append(args, string(*update.SecondaryColor))
	}
	if update.ColorConfidence != nil {
		set, args = append(set, "color_confidence = ?"), append(args, *update.ColorConfidence)
	}
	if update.OCRText != nil {
		set, args = append(set, "ocr_text = ?"), append(args, *update.OCRText)
	}
	if update.ResultsJSON != nil {
		set, args = append(set, "results = ?"), append(args, *update.ResultsJSON)
	}
	if update.ErrorMessage != nil {
		set, args = append(set, "error_message = ?"), append(args, *update.ErrorMessage)
	}

	stmt := `UPDATE search_job SET ` + strings.Join(set, ", ") + `
		WHERE id = ? AND status NOT IN (?, ?)`
	args = append(args, update.ID, string(store.JobSuccess), string(store.JobFailure))

	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update search job")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		existing, err := d.GetSearchJob(ctx, update.ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, errors.Errorf("search job %s not found", update.ID)
		}
		return nil, store.ErrJobTerminal
	}
	return d.GetSearchJob(ctx, update.ID)
}

// CountSearchJobsByStatus returns per-status job counts.
func (d *DB) CountSearchJobsByStatus(ctx context.Context) (map[store.JobStatus]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM search_job GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count search jobs")
	}
	defer rows.Close()

	counts := make(map[store.JobStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan job count")
		}
		counts[store.JobStatus(status)] = count
	}
	return counts, rows.Err()
}
