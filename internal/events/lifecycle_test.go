package events

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
	"campusevents/internal/notify"
)

var (
	faculty = model.Principal{ID: "fac-1", Role: model.RoleFaculty, Department: "CSE"}
	hod     = model.Principal{ID: "hod-1", Role: model.RoleHOD, Department: "CSE"}
	admin   = model.Principal{ID: "adm-1", Role: model.RoleAdmin}
	sem4    = model.Principal{ID: "stu-4", Role: model.RoleStudent, Department: "CSE", Semester: 4}
	sem2    = model.Principal{ID: "stu-2", Role: model.RoleStudent, Department: "CSE", Semester: 2}
)

func newTestManager(t *testing.T) (*Manager, *notify.MemoryRepository) {
	t.Helper()
	notes := notify.NewMemoryRepository()
	m := NewManager(NewMemoryRepository(), notify.NewDispatcher(notes, nil), nil,
		WithClock(func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }))
	return m, notes
}

func cseWorkshop() CreateInput {
	return CreateInput{
		Title:             "Intro to Go",
		Department:        "CSE",
		Type:              model.EventWorkshop,
		StartTime:         time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		EndTime:           time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Location:          "Lab 2",
		TargetDepartments: []string{"CSE"},
		TargetSemesters:   []int{4},
	}
}

func TestCreateWorkshopReachesTargetedSemester(t *testing.T) {
	m, notes := newTestManager(t)
	ctx := context.Background()

	res, err := m.Create(ctx, faculty, cseWorkshop())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Event.ID)
	assert.Equal(t, "fac-1", res.Event.CreatedBy)
	assert.True(t, res.Event.IsAcademic, "isAcademic defaults to true")
	assert.Empty(t, res.Clashes)

	all := notes.All()
	require.Len(t, all, 1)
	assert.True(t, all[0].IsBroadcast())
	assert.Equal(t, "CSE", *all[0].Department)
	require.NotNil(t, all[0].Semester)
	assert.Equal(t, 4, *all[0].Semester)

	relevant, err := m.RelevantFor(ctx, sem4)
	require.NoError(t, err)
	require.Len(t, relevant, 1)
	assert.Equal(t, res.Event.ID, relevant[0].ID)

	relevant, err = m.RelevantFor(ctx, sem2)
	require.NoError(t, err)
	assert.Empty(t, relevant)
}

func TestCreateReportsClashesWithoutBlocking(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.Create(ctx, faculty, cseWorkshop())
	require.NoError(t, err)

	in := cseWorkshop()
	in.Title = "Overlapping talk"
	in.Type = model.EventSeminar
	in.StartTime = in.StartTime.Add(time.Hour)
	in.EndTime = in.EndTime.Add(time.Hour)
	second, err := m.Create(ctx, faculty, in)
	require.NoError(t, err)
	require.Len(t, second.Clashes, 1)
	assert.Equal(t, first.Event.ID, second.Clashes[0].ID)

	adjacent := cseWorkshop()
	adjacent.StartTime = time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	adjacent.EndTime = time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	third, err := m.Create(ctx, faculty, adjacent)
	require.NoError(t, err)
	assert.Empty(t, third.Clashes, "touching intervals do not overlap")
}

func TestRoleRestrictions(t *testing.T) {
	ctx := context.Background()
	for _, typ := range []model.EventType{model.EventExam, model.EventDeadline} {
		t.Run(string(typ), func(t *testing.T) {
			m, _ := newTestManager(t)
			in := cseWorkshop()
			in.Type = typ

			_, err := m.Create(ctx, faculty, in)
			assert.True(t, errors.Is(err, apperr.ErrForbidden))

			created, err := m.Create(ctx, hod, in)
			require.NoError(t, err)

			title := "renamed"
			_, err = m.Update(ctx, faculty, created.Event.ID, UpdateInput{Title: &title})
			assert.True(t, errors.Is(err, apperr.ErrForbidden))
			assert.True(t, errors.Is(m.Delete(ctx, faculty, created.Event.ID), apperr.ErrForbidden))

			_, err = m.Update(ctx, admin, created.Event.ID, UpdateInput{Title: &title})
			require.NoError(t, err)
			require.NoError(t, m.Delete(ctx, admin, created.Event.ID))
		})
	}
}

func TestFacultyCannotUpdateIntoRestrictedType(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	created, err := m.Create(ctx, faculty, cseWorkshop())
	require.NoError(t, err)

	exam := model.EventExam
	_, err = m.Update(ctx, faculty, created.Event.ID, UpdateInput{Type: &exam})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	got, err := m.Get(ctx, created.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventWorkshop, got.Type)
}

func TestStudentsCannotManageEvents(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Create(context.Background(), sem4, cseWorkshop())
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestCreateValidation(t *testing.T) {
	m, notes := newTestManager(t)
	ctx := context.Background()

	cases := map[string]func(*CreateInput){
		"title":           func(in *CreateInput) { in.Title = "  " },
		"department":      func(in *CreateInput) { in.Department = "" },
		"type":            func(in *CreateInput) { in.Type = "party" },
		"endTime":         func(in *CreateInput) { in.EndTime = in.StartTime },
		"targetSemesters": func(in *CreateInput) { in.TargetSemesters = []int{0} },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			in := cseWorkshop()
			mutate(&in)
			_, err := m.Create(ctx, hod, in)
			require.Error(t, err)
			var ae *apperr.Error
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, apperr.KindValidation, ae.Kind)
			assert.Equal(t, field, ae.Field)
		})
	}
	assert.Empty(t, notes.All(), "no write on validation failure")
}

func TestCreateDefaultsTargetDepartment(t *testing.T) {
	m, _ := newTestManager(t)
	in := cseWorkshop()
	in.TargetDepartments = nil
	in.TargetSemesters = []int{4, 2, 4}
	res, err := m.Create(context.Background(), faculty, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"CSE"}, res.Event.TargetDepartments)
	assert.Equal(t, []int{2, 4}, res.Event.TargetSemesters)
}

func TestUpdateRechecksConflictsOnlyWhenRescheduled(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	a, err := m.Create(ctx, faculty, cseWorkshop())
	require.NoError(t, err)
	later := cseWorkshop()
	later.StartTime = time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	later.EndTime = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	b, err := m.Create(ctx, faculty, later)
	require.NoError(t, err)

	loc := "Hall B"
	res, err := m.Update(ctx, faculty, b.Event.ID, UpdateInput{Location: &loc})
	require.NoError(t, err)
	assert.Nil(t, res.Clashes)
	assert.Equal(t, "Hall B", res.Event.Location)

	start := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	res, err = m.Update(ctx, faculty, b.Event.ID, UpdateInput{StartTime: &start})
	require.NoError(t, err)
	require.Len(t, res.Clashes, 1)
	assert.Equal(t, a.Event.ID, res.Clashes[0].ID)

	end := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err = m.Update(ctx, faculty, b.Event.ID, UpdateInput{EndTime: &end})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestUpdatePreservesRegistrations(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	created, err := m.Create(ctx, faculty, cseWorkshop())
	require.NoError(t, err)
	_, err = m.Register(ctx, sem4, created.Event.ID)
	require.NoError(t, err)

	title := "Intro to Go, part 1"
	res, err := m.Update(ctx, faculty, created.Event.ID, UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-4"}, res.Event.RegisteredStudents)
}

func TestRegisterIsIdempotent(t *testing.T) {
	m, notes := newTestManager(t)
	ctx := context.Background()
	created, err := m.Create(ctx, faculty, cseWorkshop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Register(ctx, sem2, created.Event.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ev, err := m.Get(ctx, created.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-2"}, ev.RegisteredStudents)

	registrations := 0
	for _, n := range notes.All() {
		if n.Type == model.NotifyRegistration {
			registrations++
			assert.Equal(t, "stu-2", *n.StudentID)
		}
	}
	assert.Equal(t, 1, registrations)

	relevant, err := m.RelevantFor(ctx, sem2)
	require.NoError(t, err)
	assert.Len(t, relevant, 1, "registration makes an untargeted semester relevant")
}

func TestRegisterErrors(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Register(ctx, sem4, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	created, err := m.Create(ctx, faculty, cseWorkshop())
	require.NoError(t, err)
	_, err = m.Register(ctx, faculty, created.Event.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestRelevantForSkipsPastEvents(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	_, err := m.Create(ctx, faculty, cseWorkshop())
	require.NoError(t, err)

	m.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }
	relevant, err := m.RelevantFor(ctx, sem4)
	require.NoError(t, err)
	assert.Empty(t, relevant)
}

func TestListFilters(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	_, err := m.Create(ctx, faculty, cseWorkshop())
	require.NoError(t, err)
	ece := cseWorkshop()
	ece.Department = "ECE"
	ece.Type = model.EventSeminar
	ece.StartTime = ece.StartTime.Add(-time.Hour)
	_, err = m.Create(ctx, hod, ece)
	require.NoError(t, err)

	all, err := m.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ECE", all[0].Department, "ascending start time")

	onlyCSE, err := m.List(ctx, Filter{Department: "CSE"})
	require.NoError(t, err)
	assert.Len(t, onlyCSE, 1)

	seminars, err := m.List(ctx, Filter{Type: model.EventSeminar})
	require.NoError(t, err)
	assert.Len(t, seminars, 1)

	from := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	window, err := m.List(ctx, Filter{From: &from})
	require.NoError(t, err)
	assert.Len(t, window, 1)

	_, err = m.List(ctx, Filter{Type: "party"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
