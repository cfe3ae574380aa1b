package users

import (
	"context"
	"sync"

	"campusevents/internal/apperr"
	"campusevents/internal/model"
)

// MemoryDirectory holds users in memory for dev/testing.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]model.User
}

// NewMemoryDirectory creates a directory seeded with users.
func NewMemoryDirectory(seed ...model.User) *MemoryDirectory {
	d := &MemoryDirectory{users: make(map[string]model.User, len(seed))}
	for _, u := range seed {
		d.users[u.ID] = u
	}
	return d
}

// Put adds or replaces a user.
func (d *MemoryDirectory) Put(u model.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *MemoryDirectory) Get(_ context.Context, id string) (model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return model.User{}, apperr.NotFound("user")
	}
	return u, nil
}

func (d *MemoryDirectory) Summaries(_ context.Context, ids []string) (map[string]model.StudentSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]model.StudentSummary, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}
