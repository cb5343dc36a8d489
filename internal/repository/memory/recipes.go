package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"savora/internal/model"
	"savora/internal/repository"
)

type RecipeStore struct {
	mu      sync.RWMutex
	recipes map[string]model.Recipe
}

func NewRecipeStore() *RecipeStore {
	return &RecipeStore{recipes: make(map[string]model.Recipe)}
}

func (s *RecipeStore) Create(_ context.Context, recipe *model.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[recipe.ID]; ok {
		return repository.ErrDuplicateKey
	}
	s.recipes[recipe.ID] = cloneRecipe(*recipe)
	return nil
}

func (s *RecipeStore) GetByID(_ context.Context, id string) (*model.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipe, ok := s.recipes[id]
	if !ok {
		return nil, nil
	}
	out := cloneRecipe(recipe)
	return &out, nil
}

func (s *RecipeStore) Find(_ context.Context, filter repository.RecipeFilter, order repository.RecipeSort, skip, limit int) ([]model.Recipe, error) {
	matched := s.matching(filter)

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		if order == repository.SortOldest {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	if skip < 0 {
		skip = 0
	}
	if skip >= len(matched) {
		return []model.Recipe{}, nil
	}
	matched = matched[skip:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *RecipeStore) Count(_ context.Context, filter repository.RecipeFilter) (int64, error) {
	return int64(len(s.matching(filter))), nil
}

func (s *RecipeStore) UpdateByID(_ context.Context, id string, patch model.RecipePatch) (*model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipe, ok := s.recipes[id]
	if !ok {
		return nil, nil
	}
	patch.Apply(&recipe)
	recipe.UpdatedAt = time.Now().UTC()
	recipe = cloneRecipe(recipe)
	s.recipes[id] = recipe

	out := cloneRecipe(recipe)
	return &out, nil
}

func (s *RecipeStore) DeleteByID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[id]; !ok {
		return false, nil
	}
	delete(s.recipes, id)
	return true, nil
}

func (s *RecipeStore) DeleteByOwner(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, recipe := range s.recipes {
		if recipe.CreatedBy == ownerID {
			delete(s.recipes, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *RecipeStore) matching(filter repository.RecipeFilter) []model.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(filter.Text))
	out := make([]model.Recipe, 0)
	for _, recipe := range s.recipes {
		if filter.CreatedBy != "" && recipe.CreatedBy != filter.CreatedBy {
			continue
		}
		if !overlaps(recipe.Tags, filter.Tags) || !overlaps(recipe.Diet, filter.Diet) || !overlaps(recipe.Allergens, filter.Allergens) {
			continue
		}
		if filter.Difficulty != "" && recipe.Difficulty != filter.Difficulty {
			continue
		}
		if needle != "" && !containsText(recipe, needle) {
			continue
		}
		out = append(out, cloneRecipe(recipe))
	}
	return out
}

// overlaps reports whether have shares an element with want. An empty want
// places no constraint.
func overlaps(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

func containsText(recipe model.Recipe, needle string) bool {
	if strings.Contains(strings.ToLower(recipe.Title), needle) ||
		strings.Contains(strings.ToLower(recipe.FullRecipe), needle) {
		return true
	}
	for _, list := range [][]string{recipe.Ingredients, recipe.Tags} {
		for _, item := range list {
			if strings.Contains(strings.ToLower(item), needle) {
				return true
			}
		}
	}
	return false
}

func cloneRecipe(r model.Recipe) model.Recipe {
	r.Ingredients = slices.Clone(r.Ingredients)
	r.Tags = slices.Clone(r.Tags)
	r.Diet = slices.Clone(r.Diet)
	r.Allergens = slices.Clone(r.Allergens)
	if r.CookingTime != nil {
		v := *r.CookingTime
		r.CookingTime = &v
	}
	if r.Servings != nil {
		v := *r.Servings
		r.Servings = &v
	}
	return r
}
