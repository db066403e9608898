package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Meal is one recipe as served by TheMealDB. The API flattens up to twenty
// ingredient/measure column pairs into the same object; those land in Extra
// together with any other fields a future API revision might add.
type Meal struct {
	ID           string
	Name         string
	Instructions string
	Category     string
	Thumbnail    string

	Extra map[string]string
}

// Ingredient is one (name, measure) pair from a recipe.
type Ingredient struct {
	Name    string
	Measure string
}

func (m *Meal) UnmarshalJSON(b []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	str := func(key string) string {
		if v := raw[key]; v != nil {
			return *v
		}
		return ""
	}

	m.ID = str("idMeal")
	m.Name = str("strMeal")
	m.Instructions = str("strInstructions")
	m.Category = str("strCategory")
	m.Thumbnail = str("strMealThumb")

	m.Extra = make(map[string]string, len(raw))
	for k, v := range raw {
		switch k {
		case "idMeal", "strMeal", "strInstructions", "strCategory", "strMealThumb":
			continue
		}
		if v == nil {
			continue
		}
		m.Extra[k] = *v
	}
	return nil
}

// Ingredients returns the recipe's ingredient pairs in column order,
// stopping at the first blank or absent slot.
func (m *Meal) Ingredients() []Ingredient {
	var out []Ingredient
	for i := 1; i <= 20; i++ {
		ing, okI := m.Extra[fmt.Sprintf("strIngredient%d", i)]
		mea, okM := m.Extra[fmt.Sprintf("strMeasure%d", i)]
		if !okI || !okM || strings.TrimSpace(ing) == "" {
			break
		}
		out = append(out, Ingredient{Name: ing, Measure: mea})
	}
	return out
}
