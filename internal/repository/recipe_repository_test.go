package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"savora/internal/model"
)

func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "savora:pw@tcp(127.0.0.1:3306)/savora?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestRecipeFilterScope_AllConstraints(t *testing.T) {
	db := newDryRunDB(t)

	filter := RecipeFilter{
		CreatedBy:  "owner-1",
		Tags:       []string{"soup", "stew"},
		Allergens:  []string{"nuts"},
		Difficulty: model.DifficultyHard,
		Text:       "50%_off",
	}
	stmt := db.Scopes(recipeFilterScope(filter), recipeSortScope(SortOldest)).
		Find(&[]model.Recipe{}).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, "created_by = ?")
	assert.Contains(t, sql, "JSON_OVERLAPS(tags, ?)")
	assert.Contains(t, sql, "JSON_OVERLAPS(allergens, ?)")
	assert.NotContains(t, sql, "JSON_OVERLAPS(diet")
	assert.Contains(t, sql, "difficulty = ?")
	assert.Contains(t, sql, "LOWER(title) LIKE ?")
	assert.Contains(t, sql, "JSON_TABLE(COALESCE(ingredients, JSON_ARRAY()), '$[*]'")
	assert.Contains(t, sql, "JSON_TABLE(COALESCE(tags, JSON_ARRAY()), '$[*]'")
	assert.NotContains(t, sql, "CAST(ingredients AS CHAR)")
	assert.Contains(t, sql, "ORDER BY created_at ASC")

	assert.Contains(t, stmt.Vars, "owner-1")
	assert.Contains(t, stmt.Vars, `["soup","stew"]`)
	assert.Contains(t, stmt.Vars, `["nuts"]`)
	assert.Contains(t, stmt.Vars, "hard")
	assert.Contains(t, stmt.Vars, `%50\%\_off%`)
}

func TestRecipeFilterScope_Empty(t *testing.T) {
	db := newDryRunDB(t)

	stmt := db.Scopes(recipeFilterScope(RecipeFilter{}), recipeSortScope(SortNewest)).
		Find(&[]model.Recipe{}).Statement
	sql := stmt.SQL.String()

	assert.NotContains(t, sql, "WHERE")
	assert.Contains(t, sql, "ORDER BY created_at DESC")
	assert.Empty(t, stmt.Vars)
}

func TestRecipeRepository_FindPaging(t *testing.T) {
	db := newDryRunDB(t)
	repo := NewRecipeRepository(db)

	_, err := repo.Find(context.Background(), RecipeFilter{}, SortNewest, 40, 20)
	require.NoError(t, err)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, EscapeLike("100%"))
	assert.Equal(t, `a\_b`, EscapeLike("a_b"))
	assert.Equal(t, `c:\\temp`, EscapeLike(`c:\temp`))
	assert.Equal(t, "plain", EscapeLike("plain"))
}

func TestRecipeUpdateColumns(t *testing.T) {
	title := "Soup"
	tags := []string{"warm"}
	servings := 4

	values, columns := recipeUpdateColumns(model.RecipePatch{
		Title:    &title,
		Tags:     &tags,
		Servings: &servings,
	})

	assert.ElementsMatch(t, []string{"updated_at", "title", "tags", "servings"}, columns)
	assert.NotContains(t, columns, "created_by")
	assert.Equal(t, "Soup", values.Title)
	assert.Equal(t, []string{"warm"}, values.Tags)
	require.NotNil(t, values.Servings)
	assert.Equal(t, 4, *values.Servings)
	assert.False(t, values.UpdatedAt.IsZero())
}

func TestRecipeFilterScope_TextSearchMatchesArrayElements(t *testing.T) {
	db := newDryRunDB(t)

	stmt := db.Scopes(recipeFilterScope(RecipeFilter{Text: `Salt"`})).
		Find(&[]model.Recipe{}).Statement
	sql := stmt.SQL.String()

	assert.Equal(t, 2, strings.Count(sql, "WHERE LOWER(jt.v) LIKE ?"))
	assert.NotContains(t, sql, "CAST(")
	require.Len(t, stmt.Vars, 4)
	for _, v := range stmt.Vars {
		assert.Equal(t, `%salt"%`, v)
	}
}
