package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"savora/internal/model"
	"savora/internal/repository/memory"
)

const testSecret = "test-secret"

type fakeImageStore struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
	saveErr error
}

func (f *fakeImageStore) Save(_ context.Context, filename, _ string, body io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	path := "/uploads/" + filename
	f.saved = append(f.saved, path)
	return path, nil
}

func (f *fakeImageStore) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, path)
	return nil
}

type fakePublisher struct {
	jobs []model.ImageCleanupJob
	err  error
}

func (f *fakePublisher) PublishImageCleanup(_ context.Context, job model.ImageCleanupJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeRecipeCache struct {
	items   map[string]model.Recipe
	evicted []string
}

func newFakeRecipeCache() *fakeRecipeCache {
	return &fakeRecipeCache{items: map[string]model.Recipe{}}
}

func (c *fakeRecipeCache) GetRecipe(_ context.Context, id string) (*model.Recipe, bool, error) {
	r, ok := c.items[id]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *fakeRecipeCache) SetRecipe(_ context.Context, recipe *model.Recipe) error {
	c.items[recipe.ID] = *recipe
	return nil
}

func (c *fakeRecipeCache) DeleteRecipes(_ context.Context, ids ...string) error {
	for _, id := range ids {
		delete(c.items, id)
	}
	c.evicted = append(c.evicted, ids...)
	return nil
}

type fixture struct {
	users   *memory.UserStore
	recipes *memory.RecipeStore
	cache   *fakeRecipeCache
	store   *fakeImageStore
	log     *test.Hook
	auth    *AuthService
	recipe  *RecipeService
	user    *UserService
}

func nullLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		users:   memory.NewUserStore(),
		recipes: memory.NewRecipeStore(),
		cache:   newFakeRecipeCache(),
		store:   &fakeImageStore{},
		log:     hook,
	}
	images := NewImageService(f.store, nil, 5<<20, logger)
	f.auth = NewAuthService(f.users, testSecret, 0, bcrypt.MinCost, logger)
	f.recipe = NewRecipeService(f.recipes, f.cache, images, logger)
	f.user = NewUserService(f.users, f.recipes, f.cache, images, logger)
	return f
}

func (f *fixture) register(t *testing.T, username, email string) *model.User {
	t.Helper()
	user, err := f.auth.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: "secret1"})
	require.NoError(t, err)
	return user
}

func (f *fixture) createRecipe(t *testing.T, ownerID, title string) *model.Recipe {
	t.Helper()
	recipe, err := f.recipe.Create(context.Background(), ownerID, RecipeInput{
		Title:       title,
		Ingredients: []string{"water", "salt"},
		FullRecipe:  "Boil it.",
	}, nil)
	require.NoError(t, err)
	return recipe
}

func requireKind(t *testing.T, err error, kind error, message string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
	if message != "" {
		require.Equal(t, message, PublicMessage(err, ""))
	}
}
