// Package users reads the user records owned by the identity service.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campusevents/internal/apperr"
	"campusevents/internal/model"
)

// Repository is a read-only view of the users table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns a single user by id.
func (r *Repository) Get(ctx context.Context, id string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, department, COALESCE(semester, 0), roll_number
		FROM users WHERE id = $1
	`, id)
	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Department, &u.Semester, &u.RollNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, apperr.NotFound("user")
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Summaries returns summaries keyed by id for the ids that exist.
func (r *Repository) Summaries(ctx context.Context, ids []string) (map[string]model.StudentSummary, error) {
	out := make(map[string]model.StudentSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, department, COALESCE(semester, 0), roll_number
		FROM users WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("user summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s model.StudentSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Department, &s.Semester, &s.RollNumber); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}
