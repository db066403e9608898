// Package catalog is the TheMealDB HTTP client used for daily announcements
// and the /recipe command.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is TheMealDB's free-tier API root.
const DefaultBaseURL = "https://www.themealdb.com/api/json/v1/1/"

// ErrNoMeals is returned when the API answers with an empty or null meal
// list (the API signals "not found" as {"meals":null}, not as an HTTP error).
var ErrNoMeals = errors.New("catalog: no meals found")

// Categories the filter endpoint understands. The API's category list is
// effectively static on the free tier.
var Categories = []string{
	"Beef", "Breakfast", "Chicken", "Dessert", "Goat", "Lamb",
	"Miscellaneous", "Pasta", "Pork", "Seafood", "Side", "Starter",
	"Vegan", "Vegetarian",
}

// IsCategory reports whether name is a known category (case-insensitive).
// The matched canonical spelling is returned.
func IsCategory(name string) (string, bool) {
	for _, c := range Categories {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	// pick selects an index in [0,n); swapped out in tests.
	pick func(n int) int
}

func New(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		pick:       rand.Intn,
	}
}

type mealsResponse struct {
	Meals []*Meal `json:"meals"`
}

type mealListResponse struct {
	Meals []struct {
		ID string `json:"idMeal"`
	} `json:"meals"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// Random returns one random recipe.
func (c *Client) Random(ctx context.Context) (*Meal, error) {
	var mr mealsResponse
	if err := c.get(ctx, "random.php", &mr); err != nil {
		return nil, err
	}
	if len(mr.Meals) == 0 || mr.Meals[0] == nil {
		return nil, ErrNoMeals
	}
	return mr.Meals[0], nil
}

// Lookup returns the full recipe for a meal id.
func (c *Client) Lookup(ctx context.Context, id string) (*Meal, error) {
	var mr mealsResponse
	if err := c.get(ctx, "lookup.php?i="+url.QueryEscape(id), &mr); err != nil {
		return nil, err
	}
	if len(mr.Meals) == 0 || mr.Meals[0] == nil {
		return nil, ErrNoMeals
	}
	return mr.Meals[0], nil
}

// RandomByCategory picks a random recipe from a category. The filter
// endpoint only returns ids, so the pick is resolved with a lookup.
func (c *Client) RandomByCategory(ctx context.Context, category string) (*Meal, error) {
	return c.randomFiltered(ctx, "filter.php?c="+url.QueryEscape(category))
}

// RandomByIngredient picks a random recipe containing an ingredient.
func (c *Client) RandomByIngredient(ctx context.Context, ingredient string) (*Meal, error) {
	return c.randomFiltered(ctx, "filter.php?i="+url.QueryEscape(ingredient))
}

func (c *Client) randomFiltered(ctx context.Context, path string) (*Meal, error) {
	var lr mealListResponse
	if err := c.get(ctx, path, &lr); err != nil {
		// The filter endpoint answers some unknown terms with an empty body.
		if errors.Is(err, io.EOF) {
			return nil, ErrNoMeals
		}
		return nil, err
	}
	if len(lr.Meals) == 0 {
		return nil, ErrNoMeals
	}
	return c.Lookup(ctx, lr.Meals[c.pick(len(lr.Meals))].ID)
}
