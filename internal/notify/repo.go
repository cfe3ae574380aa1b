package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"campusevents/internal/apperr"
	"campusevents/internal/model"
)

// Repository persists notifications in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const notificationColumns = `id, student_id, department, semester, title, body, event_id, type, seen, created_at`

func scanNotification(row interface{ Scan(...any) error }) (model.Notification, error) {
	var (
		n                    model.Notification
		student, dept, evtID sql.NullString
		semester             sql.NullInt32
	)
	if err := row.Scan(&n.ID, &student, &dept, &semester, &n.Title, &n.Body, &evtID, &n.Type, &n.Seen, &n.CreatedAt); err != nil {
		return model.Notification{}, err
	}
	if student.Valid {
		n.StudentID = &student.String
	}
	if dept.Valid {
		n.Department = &dept.String
	}
	if semester.Valid {
		n.Semester = model.Ptr(int(semester.Int32))
	}
	if evtID.Valid {
		n.EventID = &evtID.String
	}
	return n, nil
}

// Insert writes a new notification.
func (r *Repository) Insert(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, student_id, department, semester, title, body, event_id, type, seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
		RETURNING `+notificationColumns,
		n.ID, n.StudentID, n.Department, n.Semester, n.Title, n.Body, n.EventID, n.Type)
	out, err := scanNotification(row)
	if err != nil {
		return model.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return out, nil
}

// InsertOnce leans on the partial unique index over (event_id, student_id)
// for reminders.
func (r *Repository) InsertOnce(ctx context.Context, n model.Notification) (model.Notification, bool, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, student_id, department, semester, title, body, event_id, type, seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
		ON CONFLICT (event_id, student_id) WHERE type = 'reminder' DO NOTHING
		RETURNING `+notificationColumns,
		n.ID, n.StudentID, n.Department, n.Semester, n.Title, n.Body, n.EventID, n.Type)
	out, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Notification{}, false, nil
		}
		return model.Notification{}, false, fmt.Errorf("insert notification once: %w", err)
	}
	return out, true, nil
}

// MarkSeen sets seen = true.
func (r *Repository) MarkSeen(ctx context.Context, id string) (model.Notification, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE notifications SET seen = TRUE WHERE id = $1
		RETURNING `+notificationColumns, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Notification{}, apperr.NotFound("notification")
		}
		return model.Notification{}, fmt.Errorf("mark notification seen: %w", err)
	}
	return n, nil
}

// ListForStudent unions direct and matching broadcast notifications.
func (r *Repository) ListForStudent(ctx context.Context, studentID, department string, semester, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = ListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE student_id = $1
		   OR (student_id IS NULL AND department = $2 AND (semester IS NULL OR semester = $3))
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, studentID, department, semester, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var res []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}
