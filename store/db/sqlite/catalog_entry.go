package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/shelfsight/imaging/colorclass"
	"github.com/hrygo/shelfsight/store"
)

// CreateCatalogEntry inserts a catalog entry.
func (d *DB) CreateCatalogEntry(ctx context.Context, create *store.CatalogEntry) (*store.CatalogEntry, error) {
	visual, err := encodeVector(create.VisualEmbedding)
	if err != nil {
		return nil, err
	}
	text, err := encodeVector(create.TextEmbedding)
	if err != nil {
		return nil, err
	}
	swatches, err := encodeSwatches(create.DominantColors)
	if err != nil {
		return nil, err
	}

	stmt := `
		INSERT INTO catalog_entry (
			id, name, brand, barcode, image_path,
			visual_embedding, text_embedding,
			color_category, secondary_color, color_confidence,
			dominant_colors, ocr_text
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING created_ts, updated_ts
	`
	entry := *create
	err = d.db.QueryRowContext(ctx, stmt,
		create.ID,
		create.Name,
		create.Brand,
		create.Barcode,
		create.ImagePath,
		visual,
		text,
		string(create.ColorCategory),
		string(create.SecondaryColor),
		create.ColorConfidence,
		swatches,
		create.OCRText,
	).Scan(&entry.CreatedTs, &entry.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create catalog entry")
	}
	return &entry, nil
}

// GetCatalogEntry fetches one entry by id, nil when absent.
func (d *DB) GetCatalogEntry(ctx context.Context, id string) (*store.CatalogEntry, error) {
	entries, err := d.ListCatalogEntries(ctx, &store.FindCatalogEntry{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

// ListCatalogEntries lists entries matching the filter.
func (d *DB) ListCatalogEntries(ctx context.Context, find *store.FindCatalogEntry) ([]*store.CatalogEntry, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.Barcode != nil {
		where, args = append(where, "barcode = ?"), append(args, *find.Barcode)
	}
	if find.ColorCategory != nil {
		where, args = append(where, "color_category = ?"), append(args, string(*find.ColorCategory))
	}
	if find.OnlyWithFeatures {
		where = append(where, "visual_embedding != ''")
	}

	query := `
		SELECT id, created_ts, updated_ts, name, brand, barcode, image_path,
			visual_embedding, text_embedding,
			color_category, secondary_color, color_confidence,
			dominant_colors, ocr_text
		FROM catalog_entry
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
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
		return nil, errors.Wrap(err, "failed to list catalog entries")
	}
	defer rows.Close()

	var entries []*store.CatalogEntry
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanCatalogEntry(rows *sql.Rows) (*store.CatalogEntry, error) {
	var entry store.CatalogEntry
	var visual, text, category, secondary, swatches string
	err := rows.Scan(
		&entry.ID,
		&entry.CreatedTs,
		&entry.UpdatedTs,
		&entry.Name,
		&entry.Brand,
		&entry.Barcode,
		&entry.ImagePath,
		&visual,
		&text,
		&category,
		&secondary,
		&entry.ColorConfidence,
		&swatches,
		&entry.OCRText,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan catalog entry")
	}

	if entry.VisualEmbedding, err = decodeVector(visual); err != nil {
		return nil, err
	}
	if entry.TextEmbedding, err = decodeVector(text); err != nil {
		return nil, err
	}
	if entry.DominantColors, err = decodeSwatches(swatches); err != nil {
		return nil, err
	}
	entry.ColorCategory = colorclass.Category(category)
	entry.SecondaryColor = colorclass.Category(secondary)
	return &entry, nil
}

// UpdateCatalogEntry applies the non-nil fields of the update.
func (d *DB) UpdateCatalogEntry(ctx context.Context, update *store.UpdateCatalogEntry) (*store.CatalogEntry, error) {
	set, args := []string{"updated_ts = strftime('%s', 'now')"}, []any{}

	if update.Name != nil {
		set, args = append(set, "name = ?"), append(args, *update.Name)
	}
	if update.Brand != nil {
		set, args = append(set, "brand = ?"), append(args, *update.Brand)
	}
	if update.Barcode != nil {
		set, args = append(set, "barcode = ?"), append(args, *update.Barcode)
	}
	if update.ImagePath != nil {
		set, args = append(set, "image_path = ?"), append(args, *update.ImagePath)
	}
	if update.VisualEmbedding != nil {
		visual, err := encodeVector(update.VisualEmbedding)
		if err != nil {
			return nil, err
		}
		set, args = append(set, "visual_embedding = ?"), append(args, visual)
	}
	if update.TextEmbedding != nil {
		text, err := encodeVector(update.TextEmbedding)
		if err != nil {
			return nil, err
		}
		set, args = append(set, "text_embedding = ?"), append(args, text)
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
	if update.DominantColors != nil {
		swatches, err := encodeSwatches(update.DominantColors)
		if err != nil {
			return nil, err
		}
		set, args = append(set, "dominant_colors = ?"), append(args, swatches)
	}
	if update.OCRText != nil {
		set, args = append(set, "ocr_text = ?"), append(args, *update.OCRText)
	}

	stmt := `UPDATE catalog_entry SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	args = append(args, update.ID)
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update catalog entry")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, errors.Errorf("catalog entry %s not found", update.ID)
	}
	return d.GetCatalogEntry(ctx, update.ID)
}

// DeleteCatalogEntry removes an entry.
func (d *DB) DeleteCatalogEntry(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM catalog_entry WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, "failed to delete catalog entry")
	}
	return nil
}
