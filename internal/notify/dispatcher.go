// Package notify writes and reads notification records. Delivery is pull
// only: nothing here pushes to clients.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"campusevents/internal/apperr"
	"campusevents/internal/audience"
	"campusevents/internal/metrics"
	"campusevents/internal/model"
)

// ListLimit caps a student's notification feed.
const ListLimit = 100

// Store persists notifications.
type Store interface {
	Insert(ctx context.Context, n model.Notification) (model.Notification, error)
	// InsertOnce writes the reminder n unless one already exists for its
	// (event, student) pair. created reports which.
	InsertOnce(ctx context.Context, n model.Notification) (rec model.Notification, created bool, err error)
	MarkSeen(ctx context.Context, id string) (model.Notification, error)
	ListForStudent(ctx context.Context, studentID, department string, semester, limit int) ([]model.Notification, error)
}

// Dispatcher creates notifications for event lifecycle moments.
type Dispatcher struct {
	store Store
	log   *zap.Logger
}

// NewDispatcher creates a dispatcher backed by store.
func NewDispatcher(store Store, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{store: store, log: log}
}

// OnEventPublished writes one broadcast for a newly created event. It
// returns nil when the event targets no department.
func (d *Dispatcher) OnEventPublished(ctx context.Context, ev model.Event) (*model.Notification, error) {
	if len(ev.TargetDepartments) == 0 {
		return nil, nil
	}
	scope := audience.ResolveNotificationScope(ev)
	typ := model.NotifyGeneral
	if ev.Type == model.EventExam {
		typ = model.NotifyExam
	}

	n, err := d.store.Insert(ctx, model.Notification{
		Department: model.Ptr(scope.Department),
		Semester:   scope.Semester,
		Title:      fmt.Sprintf("New %s scheduled: %s", ev.Type, ev.Title),
		Body:       ev.Description,
		EventID:    model.Ptr(ev.ID),
		Type:       typ,
	})
	if err != nil {
		return nil, fmt.Errorf("broadcast for event %s: %w", ev.ID, err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(typ)).Inc()
	d.log.Debug("broadcast created",
		zap.String("event_id", ev.ID),
		zap.String("department", scope.Department),
		zap.Any("semester", scope.Semester))
	return &n, nil
}

// OnStudentRegistered writes the direct confirmation for a registration.
// Callers invoke it only when the registration was newly added.
func (d *Dispatcher) OnStudentRegistered(ctx context.Context, ev model.Event, studentID string) (model.Notification, error) {
	n, err := d.store.Insert(ctx, model.Notification{
		StudentID:  model.Ptr(studentID),
		Department: model.Ptr(ev.Department),
		Title:      "Registered for " + ev.Title,
		Body:       fmt.Sprintf("You have successfully registered for %s.", ev.Title),
		EventID:    model.Ptr(ev.ID),
		Type:       model.NotifyRegistration,
	})
	if err != nil {
		return model.Notification{}, fmt.Errorf("registration notice for event %s: %w", ev.ID, err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(model.NotifyRegistration)).Inc()
	return n, nil
}

// RemindRegistered writes one reminder per registered student, skipping
// students already reminded about ev. It returns how many were new.
func (d *Dispatcher) RemindRegistered(ctx context.Context, ev model.Event) (int, error) {
	created := 0
	for _, studentID := range ev.RegisteredStudents {
		_, ok, err := d.store.InsertOnce(ctx, model.Notification{
			StudentID:  model.Ptr(studentID),
			Department: model.Ptr(ev.Department),
			Title:      "Reminder: " + ev.Title,
			Body:       fmt.Sprintf("%s starts at %s.", ev.Title, ev.StartTime.UTC().Format(time.RFC3339)),
			EventID:    model.Ptr(ev.ID),
			Type:       model.NotifyReminder,
		})
		if err != nil {
			return created, fmt.Errorf("reminder for event %s: %w", ev.ID, err)
		}
		if ok {
			created++
			metrics.NotificationsCreated.WithLabelValues(string(model.NotifyReminder)).Inc()
		}
	}
	return created, nil
}

// MarkSeen flags a notification as read.
func (d *Dispatcher) MarkSeen(ctx context.Context, id string) (model.Notification, error) {
	if id == "" {
		return model.Notification{}, apperr.Validation("id", "required")
	}
	return d.store.MarkSeen(ctx, id)
}

// ListForStudent returns direct notifications for the student plus
// broadcasts for their department and semester, newest first.
func (d *Dispatcher) ListForStudent(ctx context.Context, studentID, department string, semester int) ([]model.Notification, error) {
	return d.store.ListForStudent(ctx, studentID, department, semester, ListLimit)
}

// Visible reports whether n belongs in the given student's feed.
func Visible(n model.Notification, studentID, department string, semester int) bool {
	if n.StudentID != nil {
		return *n.StudentID == studentID
	}
	if n.Department == nil || *n.Department != department {
		return false
	}
	return n.Semester == nil || *n.Semester == semester
}
