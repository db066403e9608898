// Package sweep matches reminders against the current wall-clock minute in
// each timezone that has reminders, and hands the hits to the notifier.
package sweep

import (
	"context"
	"fmt"
	"time"

	"mealbot/internal/notifier"
	"mealbot/internal/storage"
	"mealbot/internal/transport"
	"mealbot/pkg/logx"
)

// Store is the slice of the storage layer the sweep reads.
type Store interface {
	DistinctTimezones(ctx context.Context) ([]string, error)
	DueReminders(ctx context.Context, tz, hhmm string) ([]storage.Reminder, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, d notifier.Delivery) error
}

// Job runs once per minute under the scheduler.
type Job struct {
	Store      Store
	Dispatcher Dispatcher
	Log        logx.Logger

	// Now is swapped out in tests. Nil means time.Now.
	Now func() time.Time
}

// Run computes "HH:MM" separately for every timezone in use, so reminders
// fire at the user's local time regardless of where the bot runs. A zone
// that fails to load is logged and skipped; it must not starve the rest.
func (j *Job) Run(ctx context.Context) error {
	log := j.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}

	tzs, err := j.Store.DistinctTimezones(ctx)
	if err != nil {
		return fmt.Errorf("listing timezones: %w", err)
	}

	var firstErr error
	for _, tz := range tzs {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			log.Warn("skipping unloadable timezone", logx.String("tz", tz), logx.Err(err))
			continue
		}
		hhmm := now().In(loc).Format("15:04")

		due, err := j.Store.DueReminders(ctx, tz, hhmm)
		if err != nil {
			log.Warn("due query failed", logx.String("tz", tz), logx.Err(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		for _, r := range due {
			d := notifier.Delivery{
				UserID:   r.UserID,
				UserName: r.UserName,
				Chat:     transport.ChatTarget{ChatID: r.ChatID, ThreadID: r.ThreadID},
				Text:     MessageFor(r.Kind, r.Note),
				Private:  r.Private,
			}
			if err := j.Dispatcher.Dispatch(ctx, d); err != nil {
				log.Warn("reminder dispatch failed",
					logx.Int64("reminder", r.ID), logx.Int64("user", r.UserID), logx.Err(err))
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

// MessageFor renders the reminder text for a kind, appending the note in
// parentheses when present.
func MessageFor(kind, note string) string {
	var msg string
	switch kind {
	case storage.KindMedicine:
		msg = "Time to take your medicine!"
	case storage.KindFood:
		msg = "Time to eat!"
	default:
		msg = "Reminder!"
	}
	if note != "" {
		msg = fmt.Sprintf("%s (%s)", msg, note)
	}
	return msg
}
