package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"savora/internal/model"
	"savora/internal/repository"
)

const (
	msgRecipeNotFound     = "Recipe not found"
	msgForbiddenUpdate    = "Forbidden, you can only update your own recipes"
	msgForbiddenDelete    = "Forbidden, you can only delete your own recipes"
	MsgRecipeDeleted      = "Recipe entry was deleted successfully."
	imageCleanupReplaced  = "recipe image replaced"
	imageCleanupDeleted   = "recipe deleted"
	imageCleanupWriteFail = "recipe write failed"
)

// RecipeCache is a read-through cache for single recipes. Get reports a
// miss with false and no error.
type RecipeCache interface {
	GetRecipe(ctx context.Context, id string) (*model.Recipe, bool, error)
	SetRecipe(ctx context.Context, recipe *model.Recipe) error
	DeleteRecipes(ctx context.Context, ids ...string) error
}

type RecipeService struct {
	recipes repository.RecipeStore
	cache   RecipeCache
	images  *ImageService
	log     logrus.FieldLogger
}

type RecipeInput struct {
	Title       string   `validate:"required"`
	Ingredients []string `validate:"required,min=1"`
	FullRecipe  string   `validate:"required" label:"fullRecipe"`
	Tags        []string
	Diet        []string
	Allergens   []string
	// Difficulty is nil when the client sent none; it then defaults to easy.
	Difficulty  *string
	CookingTime *int `validate:"omitempty,min=0" label:"cookingTime"`
	Servings    *int `validate:"omitempty,min=0"`
}

// RecipeUpdateInput carries only the fields present in the request.
type RecipeUpdateInput struct {
	Title       *string
	Ingredients *[]string
	FullRecipe  *string
	Tags        *[]string
	Diet        *[]string
	Allergens   *[]string
	Difficulty  *string
	CookingTime *int
	Servings    *int
}

type RecipePage struct {
	Items      []model.Recipe
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// NewRecipeService accepts a nil cache.
func NewRecipeService(recipes repository.RecipeStore, cache RecipeCache, images *ImageService, log logrus.FieldLogger) *RecipeService {
	return &RecipeService{
		recipes: recipes,
		cache:   cache,
		images:  images,
		log:     log,
	}
}

func (s *RecipeService) Create(ctx context.Context, ownerID string, input RecipeInput, image *ImageUpload) (*model.Recipe, error) {
	if ownerID == "" {
		return nil, newError(ErrUnauthorized, "Unauthorized")
	}

	input.Title = strings.TrimSpace(input.Title)
	input.FullRecipe = strings.TrimSpace(input.FullRecipe)
	input.Ingredients = appendTrimmed(nil, input.Ingredients)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	difficulty := model.DifficultyEasy
	if input.Difficulty != nil {
		d, ok := model.ParseDifficulty(strings.TrimSpace(*input.Difficulty))
		if !ok {
			return nil, newError(ErrValidation, msgInvalidDifficulty)
		}
		difficulty = d
	}

	imagePath, err := s.images.Save(ctx, image)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recipe := &model.Recipe{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Ingredients: input.Ingredients,
		FullRecipe:  input.FullRecipe,
		Tags:        appendTrimmed(nil, input.Tags),
		Diet:        appendTrimmed(nil, input.Diet),
		Allergens:   appendTrimmed(nil, input.Allergens),
		Difficulty:  difficulty,
		CookingTime: input.CookingTime,
		Servings:    input.Servings,
		Image:       imagePath,
		CreatedBy:   ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.recipes.Create(ctx, recipe); err != nil {
		s.images.Discard(ctx, imageCleanupWriteFail, imagePath)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"recipe_id": recipe.ID, "user_id": ownerID}).Info("recipe created")
	return recipe, nil
}

func (s *RecipeService) Get(ctx context.Context, id string) (*model.Recipe, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetRecipe(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("recipe_id", id).Warn("recipe cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	recipe, err := s.recipes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, newError(ErrNotFound, msgRecipeNotFound)
	}

	if s.cache != nil {
		if err := s.cache.SetRecipe(ctx, recipe); err != nil {
			s.log.WithError(err).WithField("recipe_id", id).Warn("recipe cache write failed")
		}
	}
	return recipe, nil
}

func (s *RecipeService) List(ctx context.Context, query RecipeQuery) (*RecipePage, error) {
	var (
		items []model.Recipe
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.recipes.Find(gctx, query.Filter, query.Sort, query.Skip(), query.Limit)
		if err != nil {
			return err
		}
		items = found
		return nil
	})
	g.Go(func() error {
		count, err := s.recipes.Count(gctx, query.Filter)
		if err != nil {
			return err
		}
		total = count
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if items == nil {
		items = []model.Recipe{}
	}
	return &RecipePage{
		Items:      items,
		Page:       query.Page,
		Limit:      query.Limit,
		Total:      total,
		TotalPages: totalPages(total, query.Limit),
	}, nil
}

// authorize loads the recipe and checks that userID owns it.
func (s *RecipeService) authorize(ctx context.Context, userID, id, forbidden string) (*model.Recipe, error) {
	if userID == "" {
		return nil, newError(ErrUnauthorized, "Unauthorized")
	}
	recipe, err := s.recipes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, newError(ErrNotFound, msgRecipeNotFound)
	}
	if recipe.CreatedBy != userID {
		return nil, newError(ErrForbidden, "%s", forbidden)
	}
	return recipe, nil
}

// AuthorizeUpdate runs before any payload validation, so a non-owner always
// gets ErrForbidden.
func (s *RecipeService) AuthorizeUpdate(ctx context.Context, userID, id string) (*model.Recipe, error) {
	return s.authorize(ctx, userID, id, msgForbiddenUpdate)
}

func (s *RecipeService) AuthorizeDelete(ctx context.Context, userID, id string) (*model.Recipe, error) {
	return s.authorize(ctx, userID, id, msgForbiddenDelete)
}

func (s *RecipeService) Update(ctx context.Context, userID, id string, input RecipeUpdateInput, image *ImageUpload) (*model.Recipe, error) {
	existing, err := s.AuthorizeUpdate(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	patch, err := input.toPatch()
	if err != nil {
		return nil, err
	}

	imagePath, err := s.images.Save(ctx, image)
	if err != nil {
		return nil, err
	}
	if imagePath != "" {
		patch.Image = &imagePath
	}

	if patch.IsEmpty() {
		return existing, nil
	}

	updated, err := s.recipes.UpdateByID(ctx, id, patch)
	if err != nil {
		s.images.Discard(ctx, imageCleanupWriteFail, imagePath)
		return nil, err
	}
	if updated == nil {
		s.images.Discard(ctx, imageCleanupWriteFail, imagePath)
		return nil, newError(ErrNotFound, msgRecipeNotFound)
	}

	s.evict(ctx, id)
	if imagePath != "" && existing.Image != "" && existing.Image != imagePath {
		s.images.Discard(ctx, imageCleanupReplaced, existing.Image)
	}
	return updated, nil
}

func (s *RecipeService) Delete(ctx context.Context, userID, id string) error {
	existing, err := s.AuthorizeDelete(ctx, userID, id)
	if err != nil {
		return err
	}

	deleted, err := s.recipes.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return newError(ErrNotFound, msgRecipeNotFound)
	}

	s.evict(ctx, id)
	s.images.Discard(ctx, imageCleanupDeleted, existing.Image)
	s.log.WithFields(logrus.Fields{"recipe_id": id, "user_id": userID}).Info("recipe deleted")
	return nil
}

func (s *RecipeService) evict(ctx context.Context, ids ...string) {
	if s.cache == nil || len(ids) == 0 {
		return
	}
	if err := s.cache.DeleteRecipes(ctx, ids...); err != nil {
		s.log.WithError(err).Warn("recipe cache eviction failed")
	}
}

func (in RecipeUpdateInput) toPatch() (model.RecipePatch, error) {
	var patch model.RecipePatch

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return patch, newError(ErrValidation, `"title" is not allowed to be empty`)
		}
		patch.Title = &title
	}
	if in.FullRecipe != nil {
		full := strings.TrimSpace(*in.FullRecipe)
		if full == "" {
			return patch, newError(ErrValidation, `"fullRecipe" is not allowed to be empty`)
		}
		patch.FullRecipe = &full
	}
	if in.Ingredients != nil {
		ingredients := appendTrimmed([]string{}, *in.Ingredients)
		if len(ingredients) == 0 {
			return patch, newError(ErrValidation, `"ingredients" must contain at least 1 items`)
		}
		patch.Ingredients = &ingredients
	}
	patch.Tags = trimmedList(in.Tags)
	patch.Diet = trimmedList(in.Diet)
	patch.Allergens = trimmedList(in.Allergens)

	if in.Difficulty != nil {
		d, ok := model.ParseDifficulty(strings.TrimSpace(*in.Difficulty))
		if !ok {
			return patch, newError(ErrValidation, msgInvalidDifficulty)
		}
		patch.Difficulty = &d
	}
	if in.CookingTime != nil {
		if *in.CookingTime < 0 {
			return patch, newError(ErrValidation, `"cookingTime" must be greater than or equal to 0`)
		}
		patch.CookingTime = in.CookingTime
	}
	if in.Servings != nil {
		if *in.Servings < 0 {
			return patch, newError(ErrValidation, `"servings" must be greater than or equal to 0`)
		}
		patch.Servings = in.Servings
	}
	return patch, nil
}

func trimmedList(values *[]string) *[]string {
	if values == nil {
		return nil
	}
	out := appendTrimmed([]string{}, *values)
	return &out
}
