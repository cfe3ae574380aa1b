package events

import (
	"context"
	"sort"
	"time"

	"campusevents/internal/metrics"
	"campusevents/internal/model"
)

// OverlapFinder returns events of a department intersecting [start, end).
type OverlapFinder interface {
	Overlapping(ctx context.Context, department string, start, end time.Time, excludeID string) ([]model.Event, error)
}

// Overlaps is half-open interval intersection: [aStart,aEnd) and
// [bStart,bEnd) meet iff aStart < bEnd and bStart < aEnd.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ConflictDetector reports same-department overlaps. Results are advisory
// and never block a write; they may be stale under concurrent writes.
type ConflictDetector struct {
	finder OverlapFinder
}

func NewConflictDetector(finder OverlapFinder) *ConflictDetector {
	return &ConflictDetector{finder: finder}
}

// FindOverlaps returns overlapping events ordered by start time then id.
// excludeID, when set, drops the event being rescheduled.
func (d *ConflictDetector) FindOverlaps(ctx context.Context, department string, start, end time.Time, excludeID string) ([]model.Event, error) {
	found, err := d.finder.Overlapping(ctx, department, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].StartTime.Equal(found[j].StartTime) {
			return found[i].StartTime.Before(found[j].StartTime)
		}
		return found[i].ID < found[j].ID
	})
	if len(found) > 0 {
		metrics.ConflictsReported.Add(float64(len(found)))
	}
	if found == nil {
		found = []model.Event{}
	}
	return found, nil
}
