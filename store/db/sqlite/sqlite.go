package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/shelfsight/internal/profile"
	"github.com/hrygo/shelfsight/store"
)

// SQLite keeps embeddings as JSON text and leaves nearest-neighbor math to
// the in-process index, so it serves development and single-node
// deployments without any extension. Postgres is the driver for anything
// that needs server-side vector storage.

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// WAL journal mode with a generous busy timeout keeps the single-writer
	// model workable for the worker pool. Pragmas are passed with the
	// `_pragma=` prefix required by modernc.org/sqlite.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// A single connection is optimal for SQLite with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS catalog_entry (
	id TEXT PRIMARY KEY,
	created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	name TEXT NOT NULL DEFAULT '',
	brand TEXT NOT NULL DEFAULT '',
	barcode TEXT NOT NULL DEFAULT '',
	image_path TEXT NOT NULL DEFAULT '',
	visual_embedding TEXT NOT NULL DEFAULT '',
	text_embedding TEXT NOT NULL DEFAULT '',
	color_category TEXT NOT NULL DEFAULT 'unknown',
	secondary_color TEXT NOT NULL DEFAULT '',
	color_confidence REAL NOT NULL DEFAULT 0,
	dominant_colors TEXT NOT NULL DEFAULT '',
	ocr_text TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_catalog_entry_color_category ON catalog_entry (color_category);
CREATE INDEX IF NOT EXISTS idx_catalog_entry_barcode ON catalog_entry (barcode);

CREATE TABLE IF NOT EXISTS search_job (
	id TEXT PRIMARY KEY,
	created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	status TEXT NOT NULL DEFAULT 'PENDING',
	image_path TEXT NOT NULL DEFAULT '',
	color_category TEXT NOT NULL DEFAULT '',
	secondary_color TEXT NOT NULL DEFAULT '',
	color_confidence REAL NOT NULL DEFAULT 0,
	ocr_text TEXT NOT NULL DEFAULT '',
	results TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_search_job_status ON search_job (status);
`

// Migrate applies the schema. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
