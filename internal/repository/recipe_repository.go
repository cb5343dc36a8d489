package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"savora/internal/model"
)

type RecipeRepository struct {
	db *gorm.DB
}

func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

func (r *RecipeRepository) Create(ctx context.Context, recipe *model.Recipe) error {
	if err := r.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return fmt.Errorf("create recipe failed: %w", err)
	}
	return nil
}

func (r *RecipeRepository) GetByID(ctx context.Context, id string) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&recipe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query recipe by id failed: %w", err)
	}
	return &recipe, nil
}

func (r *RecipeRepository) Find(ctx context.Context, filter RecipeFilter, sort RecipeSort, skip, limit int) ([]model.Recipe, error) {
	query := r.db.WithContext(ctx).Scopes(recipeFilterScope(filter), recipeSortScope(sort))
	if skip > 0 {
		query = query.Offset(skip)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	recipes := make([]model.Recipe, 0)
	if err := query.Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes failed: %w", err)
	}
	return recipes, nil
}

func (r *RecipeRepository) Count(ctx context.Context, filter RecipeFilter) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Recipe{}).Scopes(recipeFilterScope(filter)).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count recipes failed: %w", err)
	}
	return total, nil
}

func (r *RecipeRepository) UpdateByID(ctx context.Context, id string, patch model.RecipePatch) (*model.Recipe, error) {
	values, columns := recipeUpdateColumns(patch)
	err := r.db.WithContext(ctx).
		Model(&model.Recipe{}).
		Where("id = ?", id).
		Select(columns).
		Updates(&values).Error
	if err != nil {
		return nil, fmt.Errorf("update recipe failed: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *RecipeRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Recipe{})
	if result.Error != nil {
		return false, fmt.Errorf("delete recipe failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *RecipeRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_by = ?", ownerID).Delete(&model.Recipe{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete recipes by owner failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func recipeFilterScope(filter RecipeFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.CreatedBy != "" {
			db = db.Where("created_by = ?", filter.CreatedBy)
		}
		db = whereOverlaps(db, "tags", filter.Tags)
		db = whereOverlaps(db, "diet", filter.Diet)
		db = whereOverlaps(db, "allergens", filter.Allergens)
		if filter.Difficulty != "" {
			db = db.Where("difficulty = ?", string(filter.Difficulty))
		}
		if text := strings.TrimSpace(filter.Text); text != "" {
			pattern := "%" + EscapeLike(strings.ToLower(text)) + "%"
			db = db.Where(
				"(LOWER(title) LIKE ? OR LOWER(full_recipe) LIKE ? OR "+elementLike("ingredients")+" OR "+elementLike("tags")+")",
				pattern, pattern, pattern, pattern,
			)
		}
		return db
	}
}

func recipeSortScope(sort RecipeSort) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if sort == SortOldest {
			return db.Order("created_at ASC")
		}
		return db.Order("created_at DESC")
	}
}

// elementLike matches when any string element of a JSON array column is LIKE
// the bound pattern. The JSON text itself is never searched.
func elementLike(column string) string {
	return "EXISTS (SELECT 1 FROM JSON_TABLE(COALESCE(" + column + ", JSON_ARRAY()), '$[*]' COLUMNS(v VARCHAR(1024) PATH '$')) AS jt WHERE LOWER(jt.v) LIKE ?)"
}

// whereOverlaps matches rows whose JSON array column shares at least one
// element with values.
func whereOverlaps(db *gorm.DB, column string, values []string) *gorm.DB {
	if len(values) == 0 {
		return db
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		_ = db.AddError(fmt.Errorf("encode %s filter failed: %w", column, err))
		return db
	}
	return db.Where("JSON_OVERLAPS("+column+", ?)", string(encoded))
}

// EscapeLike escapes the LIKE wildcards so user text matches literally.
func EscapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

func recipeUpdateColumns(patch model.RecipePatch) (model.Recipe, []string) {
	values := model.Recipe{UpdatedAt: time.Now().UTC()}
	columns := []string{"updated_at"}

	if patch.Title != nil {
		values.Title = *patch.Title
		columns = append(columns, "title")
	}
	if patch.Ingredients != nil {
		values.Ingredients = *patch.Ingredients
		columns = append(columns, "ingredients")
	}
	if patch.FullRecipe != nil {
		values.FullRecipe = *patch.FullRecipe
		columns = append(columns, "full_recipe")
	}
	if patch.Tags != nil {
		values.Tags = *patch.Tags
		columns = append(columns, "tags")
	}
	if patch.Diet != nil {
		values.Diet = *patch.Diet
		columns = append(columns, "diet")
	}
	if patch.Allergens != nil {
		values.Allergens = *patch.Allergens
		columns = append(columns, "allergens")
	}
	if patch.Difficulty != nil {
		values.Difficulty = *patch.Difficulty
		columns = append(columns, "difficulty")
	}
	if patch.CookingTime != nil {
		values.CookingTime = patch.CookingTime
		columns = append(columns, "cooking_time")
	}
	if patch.Servings != nil {
		values.Servings = patch.Servings
		columns = append(columns, "servings")
	}
	if patch.Image != nil {
		values.Image = *patch.Image
		columns = append(columns, "image")
	}
	return values, columns
}
