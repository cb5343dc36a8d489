package app

import (
	"encoding/json"
	"strconv"
	"strings"

	"savora/internal/model"
	"savora/internal/repository"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

const msgInvalidDifficulty = "Invalid difficulty. Use easy, medium, or hard."

// RecipeQueryParams holds the raw query string values of GET /recipes.
// List parameters keep every repeated value.
type RecipeQueryParams struct {
	Q          string
	CreatedBy  string
	Tags       []string
	Diet       []string
	Allergens  []string
	Difficulty string
	Page       string
	Limit      string
	Sort       string
}

type RecipeQuery struct {
	Filter repository.RecipeFilter
	Sort   repository.RecipeSort
	Page   int
	Limit  int
}

func (q RecipeQuery) Skip() int {
	return (q.Page - 1) * q.Limit
}

func BuildRecipeQuery(params RecipeQueryParams) (RecipeQuery, error) {
	query := RecipeQuery{
		Filter: repository.RecipeFilter{
			CreatedBy: strings.TrimSpace(params.CreatedBy),
			Tags:      ParseStringList(params.Tags...),
			Diet:      ParseStringList(params.Diet...),
			Allergens: ParseStringList(params.Allergens...),
			Text:      strings.TrimSpace(params.Q),
		},
		Sort:  parseSort(params.Sort),
		Page:  parsePage(params.Page),
		Limit: parseLimit(params.Limit),
	}

	difficulty, err := parseDifficultyFilter(params.Difficulty)
	if err != nil {
		return RecipeQuery{}, err
	}
	query.Filter.Difficulty = difficulty
	return query, nil
}

// ParseStringList flattens raw values that are either comma separated or a
// JSON array of strings. Blank items are dropped.
func ParseStringList(raw ...string) []string {
	var out []string
	for _, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if strings.HasPrefix(value, "[") {
			var items []string
			if err := json.Unmarshal([]byte(value), &items); err == nil {
				out = appendTrimmed(out, items)
				continue
			}
		}
		out = appendTrimmed(out, strings.Split(value, ","))
	}
	return out
}

func appendTrimmed(dst, items []string) []string {
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			dst = append(dst, item)
		}
	}
	return dst
}

func parseDifficultyFilter(raw string) (model.Difficulty, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "all" {
		return "", nil
	}
	d, ok := model.ParseDifficulty(raw)
	if !ok {
		return "", newError(ErrValidation, msgInvalidDifficulty)
	}
	return d, nil
}

func parseSort(raw string) repository.RecipeSort {
	if strings.TrimSpace(raw) == "oldest" {
		return repository.SortOldest
	}
	return repository.SortNewest
}

// Zero and unparsable values fall back to the default before clamping.
func parsePage(raw string) int {
	page := atoiOr(raw, DefaultPage)
	if page < 1 {
		page = 1
	}
	return page
}

func parseLimit(raw string) int {
	limit := atoiOr(raw, DefaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}

func atoiOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n == 0 {
		return fallback
	}
	return n
}

func totalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
