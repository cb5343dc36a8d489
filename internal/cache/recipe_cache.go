package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"savora/internal/model"
)

type RecipeCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRecipeCache(client *redisv9.Client, ttl time.Duration) *RecipeCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RecipeCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RecipeCache) GetRecipe(ctx context.Context, id string) (*model.Recipe, bool, error) {
	raw, err := c.client.Get(ctx, c.recipeKey(id)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get recipe failed: %w", err)
	}

	var recipe model.Recipe
	if err := json.Unmarshal(raw, &recipe); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached recipe failed: %w", err)
	}
	return &recipe, true, nil
}

func (c *RecipeCache) SetRecipe(ctx context.Context, recipe *model.Recipe) error {
	payload, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("marshal recipe cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.recipeKey(recipe.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set recipe failed: %w", err)
	}
	return nil
}

func (c *RecipeCache) DeleteRecipes(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, c.recipeKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete recipes failed: %w", err)
	}
	return nil
}

func (c *RecipeCache) recipeKey(id string) string {
	return "savora:recipe:" + id
}
