package attendance

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"campusevents/internal/apperr"
	"campusevents/internal/metrics"
	"campusevents/internal/model"
)

// Scan is the scan-side half of an attendance record; metadata is never
// part of it.
type Scan struct {
	EventID   string
	StudentID string
	Status    model.AttendanceStatus
	Source    model.AttendanceSource
	At        time.Time
}

// MetaPatch is a partial metadata update. Nil fields are left unchanged.
type MetaPatch struct {
	Hours               *float64
	Category            *model.AttendanceCategory
	InternalMarksWeight *float64
}

// Store is the attendance ledger.
type Store interface {
	// UpsertScan inserts the pair with default metadata, or on conflict
	// updates only status, source and scan time. inserted reports which.
	UpsertScan(ctx context.Context, s Scan) (rec model.Attendance, inserted bool, err error)
	UpdateMeta(ctx context.Context, id string, p MetaPatch) (model.Attendance, error)
	ListForEvent(ctx context.Context, eventID string) ([]model.Attendance, error)
}

// EventFinder loads events by id.
type EventFinder interface {
	Get(ctx context.Context, id string) (model.Event, error)
}

// StudentDirectory reads users owned by the identity service.
type StudentDirectory interface {
	Get(ctx context.Context, id string) (model.User, error)
	Summaries(ctx context.Context, ids []string) (map[string]model.StudentSummary, error)
}

// Service records attendance from scanned tokens.
type Service struct {
	store    Store
	events   EventFinder
	students StudentDirectory
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a recorder backed by the given stores.
func NewService(store Store, events EventFinder, students StudentDirectory, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		events:   events,
		students: students,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// MarkFromToken decodes token and marks the student present. Repeated scans
// of the same pair refresh the scan fields of the one existing record.
func (s *Service) MarkFromToken(ctx context.Context, token string, actor model.Role) (model.Attendance, error) {
	if !actor.IsStaff() {
		return model.Attendance{}, apperr.Forbidden("only faculty, hod or admin can mark attendance")
	}
	claims, ok := DecodeToken(token)
	if !ok {
		metrics.AttendanceMarks.WithLabelValues("invalid_token").Inc()
		return model.Attendance{}, apperr.InvalidToken()
	}

	if _, err := s.events.Get(ctx, claims.EventID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			metrics.AttendanceMarks.WithLabelValues("not_found").Inc()
		}
		return model.Attendance{}, err
	}
	student, err := s.students.Get(ctx, claims.StudentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			metrics.AttendanceMarks.WithLabelValues("not_found").Inc()
		}
		return model.Attendance{}, err
	}
	if student.Role != model.RoleStudent {
		metrics.AttendanceMarks.WithLabelValues("not_found").Inc()
		return model.Attendance{}, apperr.NotFound("student")
	}

	rec, inserted, err := s.store.UpsertScan(ctx, Scan{
		EventID:   claims.EventID,
		StudentID: claims.StudentID,
		Status:    model.StatusPresent,
		Source:    model.SourceQR,
		At:        s.now(),
	})
	if err != nil {
		return model.Attendance{}, err
	}
	metrics.AttendanceMarks.WithLabelValues("recorded").Inc()
	s.log.Debug("attendance marked",
		zap.String("attendance_id", rec.ID),
		zap.String("event_id", rec.EventID),
		zap.String("student_id", rec.StudentID),
		zap.Bool("first_scan", inserted))
	return rec, nil
}

// UpdateMetadata applies a partial hours/category/weight correction.
func (s *Service) UpdateMetadata(ctx context.Context, id string, p MetaPatch) (model.Attendance, error) {
	if p.Hours != nil && (*p.Hours < 0 || math.IsNaN(*p.Hours)) {
		return model.Attendance{}, apperr.Validation("hours", "must be zero or positive")
	}
	if p.InternalMarksWeight != nil && (*p.InternalMarksWeight < 0 || math.IsNaN(*p.InternalMarksWeight)) {
		return model.Attendance{}, apperr.Validation("internalMarksWeight", "must be zero or positive")
	}
	if p.Category != nil && !p.Category.Valid() {
		return model.Attendance{}, apperr.Validation("category", "must be one of academic, nss, club, other")
	}
	return s.store.UpdateMeta(ctx, id, p)
}

// ListForEvent returns the ledger for an event with student summaries.
func (s *Service) ListForEvent(ctx context.Context, eventID string) ([]model.AttendanceEntry, error) {
	records, err := s.store.ListForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.StudentID)
	}
	summaries, err := s.students.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]model.AttendanceEntry, 0, len(records))
	for _, r := range records {
		entry := model.AttendanceEntry{Attendance: r}
		if sum, ok := summaries[r.StudentID]; ok {
			entry.Student = &sum
		}
		out = append(out, entry)
	}
	return out, nil
}
