package events

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusevents/internal/apperr"
	"campusevents/internal/model"
)

// MemoryRepository keeps events in memory for dev/testing.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]model.Event
	now   func() time.Time
}

// NewMemoryRepository creates an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]model.Event),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRepository) Insert(_ context.Context, e model.Event) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, exists := m.items[e.ID]; exists {
		return model.Event{}, apperr.Conflict("event " + e.ID + " already exists")
	}
	now := m.now()
	e = e.Clone()
	e.TargetDepartments = nonNil(e.TargetDepartments)
	e.TargetSemesters = nonNil(e.TargetSemesters)
	e.RegisteredStudents = []string{}
	e.CreatedAt, e.UpdatedAt = now, now
	m.items[e.ID] = e
	return e.Clone(), nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[id]
	if !ok {
		return model.Event{}, apperr.NotFound("event")
	}
	return e.Clone(), nil
}

func (m *MemoryRepository) Update(_ context.Context, e model.Event) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[e.ID]
	if !ok {
		return model.Event{}, apperr.NotFound("event")
	}
	next := e.Clone()
	next.TargetDepartments = nonNil(next.TargetDepartments)
	next.TargetSemesters = nonNil(next.TargetSemesters)
	next.RegisteredStudents = cur.RegisteredStudents
	next.CreatedBy = cur.CreatedBy
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = m.now()
	m.items[e.ID] = next
	return next.Clone(), nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("event")
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryRepository) List(_ context.Context, f Filter) ([]model.Event, error) {
	return m.collect(func(e model.Event) bool {
		if f.Department != "" && e.Department != f.Department {
			return false
		}
		if f.Type != "" && e.Type != f.Type {
			return false
		}
		if f.From != nil && e.StartTime.Before(*f.From) {
			return false
		}
		if f.To != nil && e.StartTime.After(*f.To) {
			return false
		}
		return true
	}), nil
}

func (m *MemoryRepository) Overlapping(_ context.Context, department string, start, end time.Time, excludeID string) ([]model.Event, error) {
	return m.collect(func(e model.Event) bool {
		return e.Department == department && e.ID != excludeID && Overlaps(start, end, e.StartTime, e.EndTime)
	}), nil
}

func (m *MemoryRepository) Register(_ context.Context, eventID, studentID string) (model.Event, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[eventID]
	if !ok {
		return model.Event{}, false, apperr.NotFound("event")
	}
	if e.IsRegistered(studentID) {
		return e.Clone(), false, nil
	}
	e = e.Clone()
	e.RegisteredStudents = append(e.RegisteredStudents, studentID)
	e.UpdatedAt = m.now()
	m.items[eventID] = e
	return e.Clone(), true, nil
}

func (m *MemoryRepository) UpcomingFor(_ context.Context, from time.Time, studentID, department string) ([]model.Event, error) {
	return m.collect(func(e model.Event) bool {
		if e.StartTime.Before(from) {
			return false
		}
		return e.IsRegistered(studentID) || slices.Contains(e.TargetDepartments, department)
	}), nil
}

func (m *MemoryRepository) StartingBetween(_ context.Context, from, to time.Time) ([]model.Event, error) {
	return m.collect(func(e model.Event) bool {
		return len(e.RegisteredStudents) > 0 && !e.StartTime.Before(from) && e.StartTime.Before(to)
	}), nil
}

// collect returns matching events ordered by start time then id.
func (m *MemoryRepository) collect(keep func(model.Event) bool) []model.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []model.Event{}
	for _, e := range m.items {
		if keep(e) {
			res = append(res, e.Clone())
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].StartTime.Equal(res[j].StartTime) {
			return res[i].StartTime.Before(res[j].StartTime)
		}
		return res[i].ID < res[j].ID
	})
	return res
}
