package repository

import (
	"context"
	"errors"

	"savora/internal/model"
)

// ErrDuplicateKey is returned when a unique username or email constraint
// rejects a write.
var ErrDuplicateKey = errors.New("duplicate key")

// Read methods return nil, nil when nothing matches.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type RecipeStore interface {
	Create(ctx context.Context, recipe *model.Recipe) error
	GetByID(ctx context.Context, id string) (*model.Recipe, error)
	// Find returns one page of matches; limit <= 0 means no limit.
	Find(ctx context.Context, filter RecipeFilter, sort RecipeSort, skip, limit int) ([]model.Recipe, error)
	Count(ctx context.Context, filter RecipeFilter) (int64, error)
	UpdateByID(ctx context.Context, id string, patch model.RecipePatch) (*model.Recipe, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

// RecipeFilter is a backend-neutral recipe search. Zero fields do not
// constrain the result. Text is raw user input; each backend escapes it.
type RecipeFilter struct {
	CreatedBy  string
	Tags       []string
	Diet       []string
	Allergens  []string
	Difficulty model.Difficulty
	Text       string
}

type RecipeSort int

const (
	SortNewest RecipeSort = iota
	SortOldest
)

func (s RecipeSort) String() string {
	if s == SortOldest {
		return "oldest"
	}
	return "newest"
}
