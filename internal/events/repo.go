package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"campusevents/internal/apperr"
	"campusevents/internal/model"
)

// Repository persists events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const eventColumns = `id, title, description, department, type, start_time, end_time, location, created_by,
	is_academic, target_departments, target_semesters, registered_students, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	// pgtype.Map is not safe for concurrent use; one per scan.
	m := pgtype.NewMap()
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Department, &e.Type, &e.StartTime, &e.EndTime,
		&e.Location, &e.CreatedBy, &e.IsAcademic,
		m.SQLScanner(&e.TargetDepartments),
		m.SQLScanner(&e.TargetSemesters),
		m.SQLScanner(&e.RegisteredStudents),
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.Event{}, err
	}
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()
	var res []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Insert writes a new event with an empty registration set.
func (r *Repository) Insert(ctx context.Context, e model.Event) (model.Event, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO events (id, title, description, department, type, start_time, end_time, location,
			created_by, is_academic, target_departments, target_semesters, registered_students)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, '{}')
		RETURNING `+eventColumns,
		e.ID, e.Title, e.Description, e.Department, e.Type, e.StartTime, e.EndTime, e.Location,
		e.CreatedBy, e.IsAcademic, nonNil(e.TargetDepartments), nonNil(e.TargetSemesters))
	out, err := scanEvent(row)
	if err != nil {
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return out, nil
}

// Get returns one event by id.
func (r *Repository) Get(ctx context.Context, id string) (model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, apperr.NotFound("event")
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// Update never touches registered_students so a concurrent registration
// is not lost.
func (r *Repository) Update(ctx context.Context, e model.Event) (model.Event, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE events
		SET title = $2, description = $3, department = $4, type = $5, start_time = $6, end_time = $7,
			location = $8, is_academic = $9, target_departments = $10, target_semesters = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+eventColumns,
		e.ID, e.Title, e.Description, e.Department, e.Type, e.StartTime, e.EndTime,
		e.Location, e.IsAcademic, nonNil(e.TargetDepartments), nonNil(e.TargetSemesters))
	out, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, apperr.NotFound("event")
		}
		return model.Event{}, fmt.Errorf("update event: %w", err)
	}
	return out, nil
}

// Delete removes the event. Attendance and notifications referencing it
// are kept.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("event")
	}
	return nil
}

// List filters by department, type and start-time window.
func (r *Repository) List(ctx context.Context, f Filter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Department != "" {
		add("department = $%d", f.Department)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.From != nil {
		add("start_time >= $%d", *f.From)
	}
	if f.To != nil {
		add("start_time <= $%d", *f.To)
	}
	q := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY start_time ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return scanEvents(rows)
}

// Overlapping uses the half-open test start < $end AND end > $start.
func (r *Repository) Overlapping(ctx context.Context, department string, start, end time.Time, excludeID string) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE department = $1 AND start_time < $3 AND end_time > $2 AND id <> $4
		ORDER BY start_time ASC, id ASC
	`, department, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping events: %w", err)
	}
	return scanEvents(rows)
}

// Register is a compare-and-append: the row is only rewritten when the
// student is absent, so concurrent calls append at most once.
func (r *Repository) Register(ctx context.Context, eventID, studentID string) (model.Event, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE events
		SET registered_students = array_append(registered_students, $2), updated_at = NOW()
		WHERE id = $1 AND NOT ($2 = ANY(registered_students))
		RETURNING `+eventColumns, eventID, studentID)
	e, err := scanEvent(row)
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, false, fmt.Errorf("register: %w", err)
	}
	// Either the event is missing or the student was already registered.
	e, err = r.Get(ctx, eventID)
	if err != nil {
		return model.Event{}, false, err
	}
	return e, false, nil
}

// UpcomingFor narrows by registration or targeted department; semester
// filtering happens in the caller.
func (r *Repository) UpcomingFor(ctx context.Context, from time.Time, studentID, department string) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE start_time >= $1
		  AND ($2 = ANY(registered_students) OR $3 = ANY(target_departments))
		ORDER BY start_time ASC, id ASC
	`, from, studentID, department)
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	return scanEvents(rows)
}

// StartingBetween returns events with at least one registration starting
// in [from, to).
func (r *Repository) StartingBetween(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE start_time >= $1 AND start_time < $2 AND cardinality(registered_students) > 0
		ORDER BY start_time ASC, id ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list starting events: %w", err)
	}
	return scanEvents(rows)
}
