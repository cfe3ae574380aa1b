package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusevents/internal/apperr"
	"campusevents/internal/model"
)

// MemoryRepository is a mutex-guarded ledger for dev/testing.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]*model.Attendance
	byPair map[[2]string]string
}

// NewMemoryRepository creates an empty in-memory ledger.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*model.Attendance),
		byPair: make(map[[2]string]string),
	}
}

func (m *MemoryRepository) UpsertScan(_ context.Context, s Scan) (model.Attendance, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	key := [2]string{s.EventID, s.StudentID}
	if id, ok := m.byPair[key]; ok {
		rec := m.byID[id]
		rec.Status = s.Status
		rec.Source = s.Source
		rec.ScannedAt = s.At
		rec.UpdatedAt = now
		return *rec, false, nil
	}

	rec := &model.Attendance{
		ID:        uuid.NewString(),
		EventID:   s.EventID,
		StudentID: s.StudentID,
		Status:    s.Status,
		Source:    s.Source,
		ScannedAt: s.At,
		Category:  model.CategoryAcademic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.byID[rec.ID] = rec
	m.byPair[key] = rec.ID
	return *rec, true, nil
}

func (m *MemoryRepository) UpdateMeta(_ context.Context, id string, p MetaPatch) (model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return model.Attendance{}, apperr.NotFound("attendance record")
	}
	if p.Hours != nil {
		rec.Hours = *p.Hours
	}
	if p.Category != nil {
		rec.Category = *p.Category
	}
	if p.InternalMarksWeight != nil {
		rec.InternalMarksWeight = *p.InternalMarksWeight
	}
	rec.UpdatedAt = time.Now().UTC()
	return *rec, nil
}

func (m *MemoryRepository) ListForEvent(_ context.Context, eventID string) ([]model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Attendance
	for _, rec := range m.byID {
		if rec.EventID == eventID {
			res = append(res, *rec)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].ScannedAt.Equal(res[j].ScannedAt) {
			return res[i].ScannedAt.Before(res[j].ScannedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}
