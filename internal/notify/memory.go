package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusevents/internal/apperr"
	"campusevents/internal/model"
)

// MemoryRepository keeps notifications in memory for dev/testing.
type MemoryRepository struct {
	mu    sync.Mutex
	items []*model.Notification
	seq   int64
	now   func() time.Time
}

// NewMemoryRepository creates an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: func() time.Time { return time.Now().UTC() }}
}

func (m *MemoryRepository) insertLocked(n model.Notification) model.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	m.seq++
	// strictly increasing timestamps keep newest-first ordering stable
	n.CreatedAt = m.now().Add(time.Duration(m.seq) * time.Nanosecond)
	n.Seen = false
	stored := n
	m.items = append(m.items, &stored)
	return stored
}

func (m *MemoryRepository) Insert(_ context.Context, n model.Notification) (model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(n), nil
}

func (m *MemoryRepository) InsertOnce(_ context.Context, n model.Notification) (model.Notification, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.Type == n.Type && eq(it.EventID, n.EventID) && eq(it.StudentID, n.StudentID) {
			return model.Notification{}, false, nil
		}
	}
	return m.insertLocked(n), true, nil
}

func (m *MemoryRepository) MarkSeen(_ context.Context, id string) (model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ID == id {
			it.Seen = true
			return *it, nil
		}
	}
	return model.Notification{}, apperr.NotFound("notification")
}

func (m *MemoryRepository) ListForStudent(_ context.Context, studentID, department string, semester, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = ListLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Notification
	for _, it := range m.items {
		if Visible(*it, studentID, department, semester) {
			res = append(res, *it)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// All returns every stored notification in insertion order.
func (m *MemoryRepository) All() []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Notification, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, *it)
	}
	return out
}

func eq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
