package events

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"campusevents/internal/apperr"
	"campusevents/internal/audience"
	"campusevents/internal/metrics"
	"campusevents/internal/model"
)

// Filter narrows event listings. Zero values match everything; From and
// To bound the start time inclusively.
type Filter struct {
	Department string
	Type       model.EventType
	From       *time.Time
	To         *time.Time
}

// Store persists events.
type Store interface {
	OverlapFinder
	Insert(ctx context.Context, ev model.Event) (model.Event, error)
	Get(ctx context.Context, id string) (model.Event, error)
	// Update rewrites every field except the registration set.
	Update(ctx context.Context, ev model.Event) (model.Event, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]model.Event, error)
	// Register appends studentID to the registration set in one atomic
	// step. added is false when the student was already registered.
	Register(ctx context.Context, eventID, studentID string) (ev model.Event, added bool, err error)
	// UpcomingFor returns events starting at or after from that the
	// student is registered for or whose target departments include
	// department. Callers refine with the audience rule.
	UpcomingFor(ctx context.Context, from time.Time, studentID, department string) ([]model.Event, error)
	// StartingBetween returns events with registrations starting in [from, to).
	StartingBetween(ctx context.Context, from, to time.Time) ([]model.Event, error)
}

// Notifier receives lifecycle moments that produce notifications.
type Notifier interface {
	OnEventPublished(ctx context.Context, ev model.Event) (*model.Notification, error)
	OnStudentRegistered(ctx context.Context, ev model.Event, studentID string) (model.Notification, error)
}

// CreateInput is a validated create request.
type CreateInput struct {
	Title             string
	Description       string
	Department        string
	Type              model.EventType
	StartTime         time.Time
	EndTime           time.Time
	Location          string
	TargetDepartments []string
	TargetSemesters   []int
	IsAcademic        *bool
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Title             *string
	Description       *string
	Department        *string
	Type              *model.EventType
	StartTime         *time.Time
	EndTime           *time.Time
	Location          *string
	TargetDepartments *[]string
	TargetSemesters   *[]int
	IsAcademic        *bool
}

func (u UpdateInput) reschedules() bool {
	return u.StartTime != nil || u.EndTime != nil || u.Department != nil
}

// WriteResult is the outcome of a create or update. Clashes is nil when
// the write did not touch the schedule and no overlap check ran.
type WriteResult struct {
	Event        model.Event
	Clashes      []model.Event
	Notification *model.Notification
}

// Manager runs the event lifecycle: create, update, register, delete.
type Manager struct {
	store     Store
	conflicts *ConflictDetector
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock used for relevance and derived state.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager wires a manager over store and notifier.
func NewManager(store Store, notifier Notifier, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		store:     store,
		conflicts: NewConflictDetector(store),
		notifier:  notifier,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func authorize(actor model.Principal, t model.EventType, verb string) error {
	if !actor.Role.IsStaff() {
		return apperr.Forbidden("only faculty, hod or admin can " + verb + " events")
	}
	if !CanManage(actor.Role, t) {
		return apperr.Forbidden("only HOD or admin can " + verb + " exam/deadline events")
	}
	return nil
}

// Create validates and persists a new event, reports overlapping events in
// the same department, and broadcasts it to the targeted cohort.
func (m *Manager) Create(ctx context.Context, actor model.Principal, in CreateInput) (WriteResult, error) {
	if err := authorize(actor, in.Type, "create"); err != nil {
		return WriteResult{}, err
	}

	ev := model.Event{
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		Department:        strings.TrimSpace(in.Department),
		Type:              in.Type,
		StartTime:         in.StartTime.UTC(),
		EndTime:           in.EndTime.UTC(),
		Location:          in.Location,
		CreatedBy:         actor.ID,
		IsAcademic:        in.IsAcademic == nil || *in.IsAcademic,
		TargetDepartments: normalizeDepartments(in.TargetDepartments),
		TargetSemesters:   normalizeSemesters(in.TargetSemesters),
	}
	if len(ev.TargetDepartments) == 0 {
		ev.TargetDepartments = []string{ev.Department}
	}
	if err := validate(ev); err != nil {
		return WriteResult{}, err
	}

	clashes, err := m.conflicts.FindOverlaps(ctx, ev.Department, ev.StartTime, ev.EndTime, "")
	if err != nil {
		return WriteResult{}, fmt.Errorf("conflict check: %w", err)
	}

	saved, err := m.store.Insert(ctx, ev)
	if err != nil {
		return WriteResult{}, fmt.Errorf("insert event: %w", err)
	}
	metrics.EventsCreated.WithLabelValues(string(saved.Type)).Inc()

	n, err := m.notifier.OnEventPublished(ctx, saved)
	if err != nil {
		return WriteResult{}, err
	}

	m.log.Info("event created",
		zap.String("event_id", saved.ID),
		zap.String("department", saved.Department),
		zap.String("type", string(saved.Type)),
		zap.String("actor", actor.ID),
		zap.Int("clashes", len(clashes)))
	return WriteResult{Event: saved, Clashes: clashes, Notification: n}, nil
}

// Update applies a partial update. The faculty restriction is checked
// against the resulting type, and overlaps are recomputed when the
// schedule or department changes.
func (m *Manager) Update(ctx context.Context, actor model.Principal, id string, in UpdateInput) (WriteResult, error) {
	if !actor.Role.IsStaff() {
		return WriteResult{}, apperr.Forbidden("only faculty, hod or admin can update events")
	}
	current, err := m.store.Get(ctx, id)
	if err != nil {
		return WriteResult{}, err
	}

	next := current.Clone()
	if in.Title != nil {
		next.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Department != nil {
		next.Department = strings.TrimSpace(*in.Department)
	}
	if in.Type != nil {
		next.Type = *in.Type
	}
	if in.StartTime != nil {
		next.StartTime = in.StartTime.UTC()
	}
	if in.EndTime != nil {
		next.EndTime = in.EndTime.UTC()
	}
	if in.Location != nil {
		next.Location = *in.Location
	}
	if in.TargetDepartments != nil {
		next.TargetDepartments = normalizeDepartments(*in.TargetDepartments)
		if len(next.TargetDepartments) == 0 {
			next.TargetDepartments = []string{next.Department}
		}
	}
	if in.TargetSemesters != nil {
		next.TargetSemesters = normalizeSemesters(*in.TargetSemesters)
	}
	if in.IsAcademic != nil {
		next.IsAcademic = *in.IsAcademic
	}

	if err := authorize(actor, next.Type, "manage"); err != nil {
		return WriteResult{}, err
	}
	if err := validate(next); err != nil {
		return WriteResult{}, err
	}

	var clashes []model.Event
	if in.reschedules() {
		clashes, err = m.conflicts.FindOverlaps(ctx, next.Department, next.StartTime, next.EndTime, id)
		if err != nil {
			return WriteResult{}, fmt.Errorf("conflict check: %w", err)
		}
	}

	saved, err := m.store.Update(ctx, next)
	if err != nil {
		return WriteResult{}, err
	}
	m.log.Info("event updated",
		zap.String("event_id", id),
		zap.String("actor", actor.ID),
		zap.Bool("rescheduled", in.reschedules()))
	return WriteResult{Event: saved, Clashes: clashes}, nil
}

// Delete removes an event. Faculty may not delete exam/deadline events.
func (m *Manager) Delete(ctx context.Context, actor model.Principal, id string) error {
	if !actor.Role.IsStaff() {
		return apperr.Forbidden("only faculty, hod or admin can delete events")
	}
	current, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, current.Type, "delete"); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.log.Info("event deleted", zap.String("event_id", id), zap.String("actor", actor.ID))
	return nil
}

// Register adds the calling student to the event. The confirmation
// notification is written only when the student was newly added.
func (m *Manager) Register(ctx context.Context, actor model.Principal, id string) (model.Event, error) {
	if actor.Role != model.RoleStudent {
		return model.Event{}, apperr.Forbidden("only students can register")
	}
	ev, added, err := m.store.Register(ctx, id, actor.ID)
	if err != nil {
		return model.Event{}, err
	}
	if added {
		if _, err := m.notifier.OnStudentRegistered(ctx, ev, actor.ID); err != nil {
			return model.Event{}, err
		}
	}
	return ev, nil
}

// RelevantFor lists upcoming events relevant to the calling student,
// earliest first.
func (m *Manager) RelevantFor(ctx context.Context, actor model.Principal) ([]model.Event, error) {
	if actor.Role != model.RoleStudent {
		return nil, apperr.Forbidden("only students can access this")
	}
	candidates, err := m.store.UpcomingFor(ctx, m.now(), actor.ID, actor.Department)
	if err != nil {
		return nil, err
	}
	return audience.Filter(candidates, audience.FromPrincipal(actor)), nil
}

// Get returns one event.
func (m *Manager) Get(ctx context.Context, id string) (model.Event, error) {
	return m.store.Get(ctx, id)
}

// List returns events matching f, earliest first.
func (m *Manager) List(ctx context.Context, f Filter) ([]model.Event, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, apperr.Validation("type", "unknown event type")
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperr.Validation("to", "must not be before from")
	}
	return m.store.List(ctx, f)
}

// Now is the manager's clock, exposed for derived lifecycle state.
func (m *Manager) Now() time.Time {
	return m.now()
}

func validate(ev model.Event) error {
	switch {
	case ev.Title == "":
		return apperr.Validation("title", "required")
	case ev.Department == "":
		return apperr.Validation("department", "required")
	case !ev.Type.Valid():
		return apperr.Validation("type", "must be one of seminar, workshop, circular, internal, deadline, exam")
	case ev.StartTime.IsZero():
		return apperr.Validation("startTime", "required")
	case ev.EndTime.IsZero():
		return apperr.Validation("endTime", "required")
	case !ev.StartTime.Before(ev.EndTime):
		return apperr.Validation("endTime", "must be after startTime")
	}
	for _, sem := range ev.TargetSemesters {
		if sem < 1 || sem > 12 {
			return apperr.Validation("targetSemesters", "semesters must be between 1 and 12")
		}
	}
	return nil
}

func normalizeDepartments(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.TrimSpace(d)
		if d != "" && !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

func normalizeSemesters(in []int) []int {
	out := make([]int, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}
