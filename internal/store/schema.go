package store

import (
	"context"
	"database/sql"
	"fmt"
)

// users belongs to the identity service; it is created here only so a fresh
// database can serve the read-only lookups.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		email       TEXT UNIQUE NOT NULL,
		role        TEXT NOT NULL,
		department  TEXT NOT NULL DEFAULT '',
		semester    INT CHECK (semester BETWEEN 1 AND 12),
		roll_number TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id                  TEXT PRIMARY KEY,
		title               TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		department          TEXT NOT NULL,
		type                TEXT NOT NULL,
		start_time          TIMESTAMPTZ NOT NULL,
		end_time            TIMESTAMPTZ NOT NULL,
		location            TEXT NOT NULL DEFAULT '',
		created_by          TEXT NOT NULL,
		is_academic         BOOLEAN NOT NULL DEFAULT TRUE,
		target_departments  TEXT[] NOT NULL DEFAULT '{}',
		target_semesters    INT[] NOT NULL DEFAULT '{}',
		registered_students TEXT[] NOT NULL DEFAULT '{}',
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (start_time < end_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_department_start ON events (department, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_start ON events (start_time)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id                    TEXT PRIMARY KEY,
		event_id              TEXT NOT NULL,
		student_id            TEXT NOT NULL,
		status                TEXT NOT NULL DEFAULT 'present',
		source                TEXT NOT NULL DEFAULT 'qr',
		scanned_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		hours                 DOUBLE PRECISION NOT NULL DEFAULT 0,
		category              TEXT NOT NULL DEFAULT 'academic',
		internal_marks_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (event_id, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		student_id TEXT,
		department TEXT,
		semester   INT,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL DEFAULT '',
		event_id   TEXT,
		type       TEXT NOT NULL DEFAULT 'general',
		seen       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_student ON notifications (student_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_scope ON notifications (department, semester, created_at DESC) WHERE student_id IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_notifications_reminder ON notifications (event_id, student_id) WHERE type = 'reminder'`,
}

// Migrate applies the schema; every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
