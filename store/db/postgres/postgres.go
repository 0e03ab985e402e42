package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Import the Postgres driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/shelfsight/internal/profile"
	"github.com/hrygo/shelfsight/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a Postgres database from the profile DSN. The pgvector
// extension must be available; embeddings are stored as native vectors.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate applies the schema. The embedding columns are dimensioned from
// the profile, so changing models requires a fresh database or a manual
// column migration.
func (d *DB) Migrate(ctx context.Context) error {
	schema := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS catalog_entry (
	id TEXT PRIMARY KEY,
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
	updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
	name TEXT NOT NULL DEFAULT '',
	brand TEXT NOT NULL DEFAULT '',
	barcode TEXT NOT NULL DEFAULT '',
	image_path TEXT NOT NULL DEFAULT '',
	visual_embedding vector(%d),
	text_embedding vector(%d),
	color_category TEXT NOT NULL DEFAULT 'unknown',
	secondary_color TEXT NOT NULL DEFAULT '',
	color_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	dominant_colors TEXT NOT NULL DEFAULT '',
	ocr_text TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_catalog_entry_color_category ON catalog_entry (color_category);
CREATE INDEX IF NOT EXISTS idx_catalog_entry_barcode ON catalog_entry (barcode);

CREATE TABLE IF NOT EXISTS search_job (
	id TEXT PRIMARY KEY,
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
	updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW()),
	status TEXT NOT NULL DEFAULT 'PENDING',
	image_path TEXT NOT NULL DEFAULT '',
	color_category TEXT NOT NULL DEFAULT '',
	secondary_color TEXT NOT NULL DEFAULT '',
	color_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	ocr_text TEXT NOT NULL DEFAULT '',
	results TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_search_job_status ON search_job (status);
`, d.profile.FeatureDimensions, d.profile.EmbeddingDimensions)

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}
