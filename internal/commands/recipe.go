package commands

import (
	"context"
	"errors"
	"strings"

	"mealbot/internal/announce"
	"mealbot/internal/catalog"
	"mealbot/pkg/logx"
)

func (r *Router) handleRecipe(ctx context.Context, req *Request) error {
	meal, err := r.lookupMeal(ctx, req.Args)
	if err != nil {
		if errors.Is(err, catalog.ErrNoMeals) {
			return r.reply(ctx, req, "No recipes found for that. Try another category or ingredient.")
		}
		req.Log.Warn("recipe lookup failed", logx.Err(err))
		return r.reply(ctx, req, "Recipe lookup failed. Please try again later.")
	}
	return r.replyHTML(ctx, req, announce.FormatMeal(meal, false, false))
}

func (r *Router) lookupMeal(ctx context.Context, args []string) (*catalog.Meal, error) {
	if len(args) == 0 || strings.EqualFold(args[0], "random") {
		return r.meals.Random(ctx)
	}
	switch strings.ToLower(args[0]) {
	case "category":
		if len(args) < 2 {
			return nil, catalog.ErrNoMeals
		}
		return r.meals.RandomByCategory(ctx, strings.Join(args[1:], " "))
	case "ingredient":
		if len(args) < 2 {
			return nil, catalog.ErrNoMeals
		}
		return r.meals.RandomByIngredient(ctx, strings.Join(args[1:], " "))
	}

	// Bare term: a known category name filters by category, anything else is
	// treated as an ingredient.
	term := strings.Join(args, " ")
	if c, ok := catalog.IsCategory(term); ok {
		return r.meals.RandomByCategory(ctx, c)
	}
	return r.meals.RandomByIngredient(ctx, term)
}
