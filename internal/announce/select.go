// Package announce implements the daily recipe announcement: draw random
// recipes until one hasn't been posted before, with a bounded retry budget.
package announce

import (
	"context"
	"strings"

	"mealbot/internal/catalog"
	"mealbot/pkg/logx"
)

// RandomSource draws one random recipe.
type RandomSource interface {
	Random(ctx context.Context) (*catalog.Meal, error)
}

// History is the announcement dedup record.
type History interface {
	SeenRecipe(ctx context.Context, key string) (bool, error)
	MarkRecipeSeen(ctx context.Context, key, title string) error
}

// Outcome is the selected recipe. Repeat is true when every draw in the
// budget was already announced; the last draw is then reused.
type Outcome struct {
	Meal   *catalog.Meal
	Key    string
	Repeat bool
}

// DefaultMaxAttempts bounds the unseen search.
const DefaultMaxAttempts = 5

// KeyFor returns the dedup key for a recipe: the meal id when present, the
// raw idMeal column as a fallback, the name as a last resort. Empty means
// the recipe cannot be deduplicated.
func KeyFor(m *catalog.Meal) string {
	if m == nil {
		return ""
	}
	if id := strings.TrimSpace(m.ID); id != "" {
		return id
	}
	if id := strings.TrimSpace(m.Extra["idMeal"]); id != "" {
		return id
	}
	return strings.TrimSpace(m.Name)
}

// SelectUnseen draws up to maxAttempts recipes from src and returns the
// first one absent from hist. When the budget runs out, the last draw is
// returned with Repeat set instead of drawing further.
//
// A history read error does not abort the announcement: the draw is treated
// as unseen and posted anyway.
func SelectUnseen(ctx context.Context, src RandomSource, hist History, maxAttempts int, log logx.Logger) (Outcome, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	var last Outcome
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		meal, err := src.Random(ctx)
		if err != nil {
			return Outcome{}, err
		}

		key := KeyFor(meal)
		last = Outcome{Meal: meal, Key: key, Repeat: true}
		if key == "" {
			// Nothing to deduplicate on; just post it.
			return Outcome{Meal: meal}, nil
		}

		seen, err := hist.SeenRecipe(ctx, key)
		if err != nil {
			log.Warn("history check failed, announcing anyway",
				logx.String("key", key), logx.Err(err))
			return Outcome{Meal: meal, Key: key}, nil
		}
		if !seen {
			return Outcome{Meal: meal, Key: key}, nil
		}
		log.Debug("recipe already announced, redrawing",
			logx.String("key", key), logx.Int("attempt", attempt))
	}
	return last, nil
}
