// Package reminder writes reminder notifications for registered students
// ahead of an event's start.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campusevents/internal/metrics"
	"campusevents/internal/model"
)

const lockKey = "campusevents:reminder-sweep"

// EventSource lists events with registrations starting in [from, to).
type EventSource interface {
	StartingBetween(ctx context.Context, from, to time.Time) ([]model.Event, error)
}

// Reminder writes at most one reminder per (event, student).
type Reminder interface {
	RemindRegistered(ctx context.Context, ev model.Event) (int, error)
}

// Locker serialises sweeps across worker replicas.
type Locker interface {
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, owner string) error
}

// Sweeper finds events starting within Lead and reminds their registrants.
type Sweeper struct {
	events   EventSource
	reminder Reminder
	locker   Locker
	lead     time.Duration
	log      *zap.Logger
	now      func() time.Time
	owner    string
}

// NewSweeper creates a sweeper. locker may be nil for a single worker.
func NewSweeper(events EventSource, reminder Reminder, locker Locker, lead time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		events:   events,
		reminder: reminder,
		locker:   locker,
		lead:     lead,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		owner:    uuid.NewString(),
	}
}

// Result summarises one sweep.
type Result struct {
	Events    int
	Reminders int
	Skipped   bool
}

// Sweep runs once. It is skipped when another worker holds the lock.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx, lockKey, s.owner, 5*time.Minute)
		if err != nil {
			metrics.ReminderSweeps.WithLabelValues("error").Inc()
			return Result{}, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			metrics.ReminderSweeps.WithLabelValues("skipped").Inc()
			return Result{Skipped: true}, nil
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), lockKey, s.owner); err != nil {
				s.log.Warn("release sweep lock", zap.Error(err))
			}
		}()
	}

	now := s.now()
	evs, err := s.events.StartingBetween(ctx, now, now.Add(s.lead))
	if err != nil {
		metrics.ReminderSweeps.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("list upcoming events: %w", err)
	}

	res := Result{Events: len(evs)}
	for _, ev := range evs {
		n, err := s.reminder.RemindRegistered(ctx, ev)
		res.Reminders += n
		if err != nil {
			metrics.ReminderSweeps.WithLabelValues("error").Inc()
			return res, err
		}
	}
	metrics.ReminderSweeps.WithLabelValues("ok").Inc()
	s.log.Info("reminder sweep done",
		zap.Int("events", res.Events),
		zap.Int("reminders", res.Reminders))
	return res, nil
}
