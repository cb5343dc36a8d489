package mongodb

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"savora/internal/model"
	"savora/internal/repository"
)

func TestRecipeFilterDocument_Empty(t *testing.T) {
	assert.Equal(t, bson.M{}, recipeFilterDocument(repository.RecipeFilter{}))
}

func TestRecipeFilterDocument_Fields(t *testing.T) {
	doc := recipeFilterDocument(repository.RecipeFilter{
		CreatedBy:  "owner-1",
		Tags:       []string{"soup"},
		Diet:       []string{"vegan", "gluten-free"},
		Allergens:  []string{"nuts"},
		Difficulty: model.DifficultyMedium,
	})

	assert.Equal(t, "owner-1", doc["createdBy"])
	assert.Equal(t, bson.M{"$in": []string{"soup"}}, doc["tags"])
	assert.Equal(t, bson.M{"$in": []string{"vegan", "gluten-free"}}, doc["diet"])
	assert.Equal(t, bson.M{"$in": []string{"nuts"}}, doc["allergens"])
	assert.Equal(t, "medium", doc["difficulty"])
	assert.NotContains(t, doc, "$or")
}

func TestRecipeFilterDocument_TextIsQuoted(t *testing.T) {
	doc := recipeFilterDocument(repository.RecipeFilter{Text: "  (a+)+$ "})

	or, ok := doc["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 4)

	clause, ok := or[0].(bson.M)
	require.True(t, ok)
	re, ok := clause["title"].(primitive.Regex)
	require.True(t, ok)
	assert.Equal(t, `\(a\+\)\+\$`, re.Pattern)
	assert.Equal(t, "i", re.Options)

	compiled := regexp.MustCompile("(?i)" + re.Pattern)
	assert.True(t, compiled.MatchString("literally (A+)+$ here"))
	assert.False(t, compiled.MatchString("aaaa"))

	fields := make([]string, 0, len(or))
	for _, item := range or {
		for k := range item.(bson.M) {
			fields = append(fields, k)
		}
	}
	assert.ElementsMatch(t, []string{"title", "fullRecipe", "ingredients", "tags"}, fields)
}

func TestRecipeSortDocument(t *testing.T) {
	assert.Equal(t, -1, recipeSortDocument(repository.SortNewest)[0].Value)
	assert.Equal(t, 1, recipeSortDocument(repository.SortOldest)[0].Value)
	assert.Equal(t, "createdAt", recipeSortDocument(repository.SortOldest)[0].Key)
}

func TestRecipeSetDocument(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	title := "Soup"
	var cleared []string
	hard := model.DifficultyHard

	set := recipeSetDocument(model.RecipePatch{Title: &title, Tags: &cleared, Difficulty: &hard}, now)

	assert.Equal(t, bson.M{
		"updatedAt":  now,
		"title":      "Soup",
		"tags":       []string{},
		"difficulty": "hard",
	}, set)
	assert.NotContains(t, set, "createdBy")
}
