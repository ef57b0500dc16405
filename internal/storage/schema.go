package storage

import (
	"context"
	"fmt"
)

// The DDL sticks to types both SQLite and PostgreSQL accept. UUIDs are stored
// as text and choices as a JSON document in a text column.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id          TEXT PRIMARY KEY,
		filename    TEXT NOT NULL,
		status      TEXT NOT NULL,
		last_error  TEXT,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id              TEXT PRIMARY KEY,
		document_id     TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		page_index      INTEGER NOT NULL,
		number_label    TEXT NOT NULL,
		stem            TEXT NOT NULL,
		choices         TEXT,
		category        TEXT NOT NULL,
		confidence      REAL NOT NULL,
		needs_review    BOOLEAN NOT NULL,
		review_reason   TEXT,
		has_figure      BOOLEAN NOT NULL,
		page_image_file TEXT NOT NULL,
		created_at      TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_document ON questions(document_id)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, db DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
