package mongodb

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"savora/internal/model"
	"savora/internal/repository"
)

// recipeFilterDocument translates a filter into a query document. Free text
// is quoted before it becomes a regular expression so input like "(a+)+$"
// is matched literally.
func recipeFilterDocument(filter repository.RecipeFilter) bson.M {
	doc := bson.M{}
	if filter.CreatedBy != "" {
		doc["createdBy"] = filter.CreatedBy
	}
	if len(filter.Tags) > 0 {
		doc["tags"] = bson.M{"$in": filter.Tags}
	}
	if len(filter.Diet) > 0 {
		doc["diet"] = bson.M{"$in": filter.Diet}
	}
	if len(filter.Allergens) > 0 {
		doc["allergens"] = bson.M{"$in": filter.Allergens}
	}
	if filter.Difficulty != "" {
		doc["difficulty"] = string(filter.Difficulty)
	}
	if text := strings.TrimSpace(filter.Text); text != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
		doc["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"fullRecipe": re},
			bson.M{"ingredients": re},
			bson.M{"tags": re},
		}
	}
	return doc
}

func recipeSortDocument(sort repository.RecipeSort) bson.D {
	if sort == repository.SortOldest {
		return bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
	}
	return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
}

func recipeSetDocument(patch model.RecipePatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Ingredients != nil {
		set["ingredients"] = nonNil(*patch.Ingredients)
	}
	if patch.FullRecipe != nil {
		set["fullRecipe"] = *patch.FullRecipe
	}
	if patch.Tags != nil {
		set["tags"] = nonNil(*patch.Tags)
	}
	if patch.Diet != nil {
		set["diet"] = nonNil(*patch.Diet)
	}
	if patch.Allergens != nil {
		set["allergens"] = nonNil(*patch.Allergens)
	}
	if patch.Difficulty != nil {
		set["difficulty"] = string(*patch.Difficulty)
	}
	if patch.CookingTime != nil {
		set["cookingTime"] = *patch.CookingTime
	}
	if patch.Servings != nil {
		set["servings"] = *patch.Servings
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}
	return set
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
