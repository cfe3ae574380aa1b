package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusevents/internal/apperr"
	"campusevents/internal/model"
	"campusevents/internal/users"
)

type eventsByID map[string]model.Event

func (e eventsByID) Get(_ context.Context, id string) (model.Event, error) {
	ev, ok := e[id]
	if !ok {
		return model.Event{}, apperr.NotFound("event")
	}
	return ev, nil
}

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	evs := eventsByID{"evt-1": {ID: "evt-1", Title: "Go workshop", Department: "CSE"}}
	dir := users.NewMemoryDirectory(
		model.User{ID: "stu-1", Name: "Asha", Email: "asha@college.edu", Role: model.RoleStudent, Department: "CSE", Semester: 4, RollNumber: "CSE-042"},
		model.User{ID: "fac-1", Name: "Dr. Rao", Email: "rao@college.edu", Role: model.RoleFaculty, Department: "CSE"},
	)
	return NewService(repo, evs, dir, nil), repo
}

func TestMarkFromTokenIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tok := EncodeToken("evt-1", "stu-1")

	first, err := svc.MarkFromToken(ctx, tok, model.RoleFaculty)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPresent, first.Status)
	assert.Equal(t, model.SourceQR, first.Source)
	assert.Equal(t, model.CategoryAcademic, first.Category)
	assert.Zero(t, first.Hours)

	hours := 3.0
	club := model.CategoryClub
	weight := 1.5
	_, err = svc.UpdateMetadata(ctx, first.ID, MetaPatch{Hours: &hours, Category: &club, InternalMarksWeight: &weight})
	require.NoError(t, err)

	later := first.ScannedAt.Add(time.Minute)
	svc.now = func() time.Time { return later }

	second, err := svc.MarkFromToken(ctx, tok, model.RoleHOD)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.ScannedAt.Equal(later))
	assert.Equal(t, 3.0, second.Hours, "rescan keeps edited metadata")
	assert.Equal(t, model.CategoryClub, second.Category)
	assert.Equal(t, 1.5, second.InternalMarksWeight)

	list, err := svc.ListForEvent(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Student)
	assert.Equal(t, "CSE-042", list[0].Student.RollNumber)
}

func TestMarkFromTokenConcurrentScans(t *testing.T) {
	svc, _ := newTestService(t)
	tok := EncodeToken("evt-1", "stu-1")

	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := svc.MarkFromToken(context.Background(), tok, model.RoleAdmin)
			assert.NoError(t, err)
			ids[i] = rec.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	list, err := svc.ListForEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMarkFromTokenFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
		role  model.Role
		want  error
	}{
		{"student cannot mark", EncodeToken("evt-1", "stu-1"), model.RoleStudent, apperr.ErrForbidden},
		{"malformed token", "EVT:evt-1:stu-1", model.RoleFaculty, apperr.ErrInvalidToken},
		{"unknown event", EncodeToken("evt-404", "stu-1"), model.RoleFaculty, apperr.ErrNotFound},
		{"unknown student", EncodeToken("evt-1", "stu-404"), model.RoleFaculty, apperr.ErrNotFound},
		{"token names a non-student", EncodeToken("evt-1", "fac-1"), model.RoleFaculty, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.MarkFromToken(ctx, tt.token, tt.role)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	list, err := svc.ListForEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Empty(t, list, "failed marks write nothing")
}

func TestUpdateMetadata(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.MarkFromToken(ctx, EncodeToken("evt-1", "stu-1"), model.RoleFaculty)
	require.NoError(t, err)

	zero := 0.0
	two := 2.0
	updated, err := svc.UpdateMetadata(ctx, rec.ID, MetaPatch{Hours: &two})
	require.NoError(t, err)
	assert.Equal(t, 2.0, updated.Hours)
	assert.Equal(t, model.CategoryAcademic, updated.Category)

	updated, err = svc.UpdateMetadata(ctx, rec.ID, MetaPatch{Hours: &zero})
	require.NoError(t, err)
	assert.Zero(t, updated.Hours, "explicit zero is applied")

	bad := model.AttendanceCategory("sports")
	_, err = svc.UpdateMetadata(ctx, rec.ID, MetaPatch{Category: &bad})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	neg := -1.0
	_, err = svc.UpdateMetadata(ctx, rec.ID, MetaPatch{Hours: &neg})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.UpdateMetadata(ctx, "missing", MetaPatch{Hours: &two})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
