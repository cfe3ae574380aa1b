package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"campusevents/internal/apperr"
	"campusevents/internal/model"
)

// Repository persists the attendance ledger in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const attendanceColumns = `id, event_id, student_id, status, source, scanned_at, hours, category, internal_marks_weight, created_at, updated_at`

func scanAttendance(row interface{ Scan(...any) error }, a *model.Attendance, extra ...any) error {
	dest := []any{&a.ID, &a.EventID, &a.StudentID, &a.Status, &a.Source, &a.ScannedAt,
		&a.Hours, &a.Category, &a.InternalMarksWeight, &a.CreatedAt, &a.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

// UpsertScan relies on the (event_id, student_id) unique constraint, so two
// concurrent scans of one badge converge on a single row. Metadata columns
// are only written by the INSERT branch.
func (r *Repository) UpsertScan(ctx context.Context, s Scan) (model.Attendance, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, event_id, student_id, status, source, scanned_at, hours, category, internal_marks_weight)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, 0)
		ON CONFLICT (event_id, student_id) DO UPDATE SET
			status = EXCLUDED.status,
			source = EXCLUDED.source,
			scanned_at = EXCLUDED.scanned_at,
			updated_at = NOW()
		RETURNING `+attendanceColumns+`, (xmax = 0) AS inserted
	`, uuid.NewString(), s.EventID, s.StudentID, s.Status, s.Source, s.At, model.CategoryAcademic)

	var (
		a        model.Attendance
		inserted bool
	)
	if err := scanAttendance(row, &a, &inserted); err != nil {
		return model.Attendance{}, false, fmt.Errorf("upsert attendance: %w", err)
	}
	return a, inserted, nil
}

// UpdateMeta updates only the provided metadata fields.
func (r *Repository) UpdateMeta(ctx context.Context, id string, p MetaPatch) (model.Attendance, error) {
	var category *string
	if p.Category != nil {
		c := string(*p.Category)
		category = &c
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance
		SET hours = COALESCE($2, hours),
			category = COALESCE($3, category),
			internal_marks_weight = COALESCE($4, internal_marks_weight),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+attendanceColumns, id, p.Hours, category, p.InternalMarksWeight)

	var a model.Attendance
	if err := scanAttendance(row, &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Attendance{}, apperr.NotFound("attendance record")
		}
		return model.Attendance{}, fmt.Errorf("update attendance meta: %w", err)
	}
	return a, nil
}

// ListForEvent returns every record for an event, earliest scan first.
func (r *Repository) ListForEvent(ctx context.Context, eventID string) ([]model.Attendance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance
		WHERE event_id = $1
		ORDER BY scanned_at ASC, id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var res []model.Attendance
	for rows.Next() {
		var a model.Attendance
		if err := scanAttendance(rows, &a); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
