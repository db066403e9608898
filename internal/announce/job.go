package announce

import (
	"context"
	"fmt"

	"mealbot/internal/notifier"
	"mealbot/internal/transport"
	"mealbot/pkg/logx"
)

// Dispatcher is the slice of the notifier the job needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, d notifier.Delivery) error
}

// Job posts one recipe to the configured chat. It is registered with the
// scheduler under the operator's cron spec.
type Job struct {
	Source      RandomSource
	History     History
	Dispatcher  Dispatcher
	Chat        transport.ChatTarget
	MaxAttempts int
	Log         logx.Logger
}

func (j *Job) Run(ctx context.Context) error {
	log := j.Log
	if log.IsZero() {
		log = logx.Nop()
	}

	out, err := SelectUnseen(ctx, j.Source, j.History, j.MaxAttempts, log)
	if err != nil {
		return fmt.Errorf("selecting recipe: %w", err)
	}

	text := FormatMeal(out.Meal, true, out.Repeat)
	if err := j.Dispatcher.Dispatch(ctx, notifier.Delivery{
		Chat: j.Chat,
		Text: text,
		HTML: true,
	}); err != nil {
		return fmt.Errorf("dispatching announcement: %w", err)
	}

	// Record after dispatch was accepted. The insert is idempotent, so a
	// repeat announcement re-marking its key is harmless.
	if out.Key != "" {
		if err := j.History.MarkRecipeSeen(ctx, out.Key, out.Meal.Name); err != nil {
			log.Warn("recording announcement failed",
				logx.String("key", out.Key), logx.Err(err))
		}
	}

	log.Info("recipe announced",
		logx.String("key", out.Key),
		logx.String("name", out.Meal.Name),
		logx.Bool("repeat", out.Repeat),
	)
	return nil
}
