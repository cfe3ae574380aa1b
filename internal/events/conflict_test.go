package events

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusevents/internal/model"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

func TestOverlapsHalfOpen(t *testing.T) {
	cases := []struct {
		name           string
		aS, aE, bS, bE int
		want           bool
	}{
		{"touching end to start", 0, 2, 2, 4, false},
		{"touching start to end", 2, 4, 0, 2, false},
		{"contained", 0, 4, 1, 2, true},
		{"partial", 0, 3, 2, 5, true},
		{"identical", 1, 2, 1, 2, true},
		{"disjoint", 0, 1, 3, 4, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(at(tc.aS), at(tc.aE), at(tc.bS), at(tc.bE)))
		})
	}
}

func TestOverlapsSymmetric(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		aS := r.Intn(48)
		aE := aS + 1 + r.Intn(6)
		bS := r.Intn(48)
		bE := bS + 1 + r.Intn(6)
		want := aS < bE && bS < aE
		assert.Equal(t, want, Overlaps(at(aS), at(aE), at(bS), at(bE)))
		assert.Equal(t, Overlaps(at(aS), at(aE), at(bS), at(bE)), Overlaps(at(bS), at(bE), at(aS), at(aE)))
	}
}

func TestFindOverlapsSameDepartmentOnly(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	seed := []model.Event{
		{ID: "b", Title: "Lab", Department: "CSE", Type: model.EventInternal, StartTime: at(1), EndTime: at(3)},
		{ID: "a", Title: "Talk", Department: "CSE", Type: model.EventSeminar, StartTime: at(1), EndTime: at(2)},
		{ID: "c", Title: "Quiz", Department: "ECE", Type: model.EventInternal, StartTime: at(1), EndTime: at(3)},
		{ID: "d", Title: "Later", Department: "CSE", Type: model.EventSeminar, StartTime: at(4), EndTime: at(5)},
	}
	for _, e := range seed {
		_, err := repo.Insert(ctx, e)
		require.NoError(t, err)
	}

	found, err := NewConflictDetector(repo).FindOverlaps(ctx, "CSE", at(0), at(4), "")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "a", found[0].ID, "ties on start break by id")
	assert.Equal(t, "b", found[1].ID)

	found, err = NewConflictDetector(repo).FindOverlaps(ctx, "CSE", at(0), at(4), "a")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].ID)

	found, err = NewConflictDetector(repo).FindOverlaps(ctx, "MECH", at(0), at(4), "")
	require.NoError(t, err)
	assert.NotNil(t, found)
	assert.Empty(t, found)
}
