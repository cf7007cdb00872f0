package database

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaStatements creates the three ledger tables.
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS applicants (
		id           BIGINT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'pending'
		             CHECK (status IN ('pending', 'approved', 'rejected')),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		applicant_id    BIGINT PRIMARY KEY REFERENCES applicants(id) ON DELETE CASCADE,
		display_name    TEXT NOT NULL DEFAULT '',
		name            TEXT NOT NULL,
		tenure          TEXT NOT NULL,
		preference      TEXT NOT NULL,
		motivation      TEXT NOT NULL,
		feedback        TEXT NOT NULL,
		confidentiality TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS moderation_records (
		id           BIGSERIAL PRIMARY KEY,
		applicant_id BIGINT NOT NULL REFERENCES applicants(id) ON DELETE CASCADE,
		moderator_id BIGINT NOT NULL,
		decision     TEXT NOT NULL CHECK (decision IN ('approved', 'rejected')),
		decided_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_moderation_records_applicant_decided
		ON moderation_records (applicant_id, decision, decided_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_applicants_status ON applicants (status)`,
}

// ApplySchema runs SchemaStatements in one transaction.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range SchemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return tx.Commit()
}
