package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"savora/internal/model"
	"savora/internal/repository"
)

const recipesCollection = "recipes"

type RecipeRepository struct {
	coll *mongo.Collection
}

func NewRecipeRepository(db *mongo.Database) *RecipeRepository {
	return &RecipeRepository{coll: db.Collection(recipesCollection)}
}

func (r *RecipeRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdBy", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create recipe indexes failed: %w", err)
	}
	return nil
}

func (r *RecipeRepository) Create(ctx context.Context, recipe *model.Recipe) error {
	if _, err := r.coll.InsertOne(ctx, recipe); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateKey
		}
		return fmt.Errorf("insert recipe failed: %w", err)
	}
	return nil
}

func (r *RecipeRepository) GetByID(ctx context.Context, id string) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&recipe); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("query recipe by id failed: %w", err)
	}
	return &recipe, nil
}

func (r *RecipeRepository) Find(ctx context.Context, filter repository.RecipeFilter, sort repository.RecipeSort, skip, limit int) ([]model.Recipe, error) {
	opts := options.Find().SetSort(recipeSortDocument(sort))
	if skip > 0 {
		opts.SetSkip(int64(skip))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll.Find(ctx, recipeFilterDocument(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list recipes failed: %w", err)
	}
	defer cursor.Close(ctx)

	recipes := make([]model.Recipe, 0)
	if err := cursor.All(ctx, &recipes); err != nil {
		return nil, fmt.Errorf("decode recipes failed: %w", err)
	}
	return recipes, nil
}

func (r *RecipeRepository) Count(ctx context.Context, filter repository.RecipeFilter) (int64, error) {
	total, err := r.coll.CountDocuments(ctx, recipeFilterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("count recipes failed: %w", err)
	}
	return total, nil
}

func (r *RecipeRepository) UpdateByID(ctx context.Context, id string, patch model.RecipePatch) (*model.Recipe, error) {
	var recipe model.Recipe
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": recipeSetDocument(patch, time.Now().UTC())},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&recipe)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("update recipe failed: %w", err)
	}
	return &recipe, nil
}

func (r *RecipeRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete recipe failed: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *RecipeRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"createdBy": ownerID})
	if err != nil {
		return 0, fmt.Errorf("delete recipes by owner failed: %w", err)
	}
	return result.DeletedCount, nil
}
