package announce

import (
	"strings"
	"testing"

	"mealbot/internal/catalog"
)

func TestFormatMeal(t *testing.T) {
	t.Parallel()
	m := &catalog.Meal{
		ID:           "52772",
		Name:         "Teriyaki <Chicken>",
		Category:     "Chicken",
		Instructions: "Preheat oven & bake.",
		Thumbnail:    "https://example.test/t.jpg",
		Extra: map[string]string{
			"strIngredient1": "soy sauce",
			"strMeasure1":    "3/4 cup",
		},
	}

	got := FormatMeal(m, true, false)
	for _, want := range []string{
		"Daily recipe:",
		"Teriyaki &lt;Chicken&gt;",
		"soy sauce (3/4 cup)",
		"Preheat oven &amp; bake.",
		`href="https://example.test/t.jpg"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatMeal missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "(Repeat)") {
		t.Errorf("unexpected repeat marker")
	}

	if got := FormatMeal(m, false, true); !strings.Contains(got, "(Repeat)") || strings.Contains(got, "Daily recipe:") {
		t.Errorf("repeat formatting wrong:\n%s", got)
	}
}

func TestFormatMealBoundsInstructions(t *testing.T) {
	t.Parallel()
	m := &catalog.Meal{
		Name:         "Endless Stew",
		Instructions: strings.Repeat("stir ", 2000),
	}

	got := FormatMeal(m, false, false)
	if !strings.Contains(got, "…") {
		t.Fatalf("long instructions not truncated")
	}
	if n := len([]rune(got)); n > 3200 {
		t.Fatalf("card too long: %d runes", n)
	}
}
