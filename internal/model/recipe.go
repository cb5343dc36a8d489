package model

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func ParseDifficulty(raw string) (Difficulty, bool) {
	for _, d := range Difficulties {
		if string(d) == raw {
			return d, true
		}
	}
	return "", false
}

type Recipe struct {
	ID          string     `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Title       string     `gorm:"size:255;not null" bson:"title" json:"title"`
	Ingredients []string   `gorm:"serializer:json;type:json;not null" bson:"ingredients" json:"ingredients"`
	FullRecipe  string     `gorm:"type:text;not null" bson:"fullRecipe" json:"fullRecipe"`
	Tags        []string   `gorm:"serializer:json;type:json" bson:"tags,omitempty" json:"tags,omitempty"`
	Diet        []string   `gorm:"serializer:json;type:json" bson:"diet,omitempty" json:"diet,omitempty"`
	Allergens   []string   `gorm:"serializer:json;type:json" bson:"allergens,omitempty" json:"allergens,omitempty"`
	Difficulty  Difficulty `gorm:"size:16;not null;index" bson:"difficulty" json:"difficulty"`
	CookingTime *int       `bson:"cookingTime,omitempty" json:"cookingTime,omitempty"`
	Servings    *int       `bson:"servings,omitempty" json:"servings,omitempty"`
	Image       string     `gorm:"size:512" bson:"image,omitempty" json:"image,omitempty"`
	CreatedBy   string     `gorm:"size:36;not null;index" bson:"createdBy" json:"createdBy"`
	CreatedAt   time.Time  `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// RecipePatch is a partial update. It has no owner field.
type RecipePatch struct {
	Title       *string
	Ingredients *[]string
	FullRecipe  *string
	Tags        *[]string
	Diet        *[]string
	Allergens   *[]string
	Difficulty  *Difficulty
	CookingTime *int
	Servings    *int
	Image       *string
}

func (p RecipePatch) IsEmpty() bool {
	return p.Title == nil && p.Ingredients == nil && p.FullRecipe == nil &&
		p.Tags == nil && p.Diet == nil && p.Allergens == nil &&
		p.Difficulty == nil && p.CookingTime == nil && p.Servings == nil && p.Image == nil
}

// Apply copies every set field of the patch onto r.
func (p RecipePatch) Apply(r *Recipe) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Ingredients != nil {
		r.Ingredients = *p.Ingredients
	}
	if p.FullRecipe != nil {
		r.FullRecipe = *p.FullRecipe
	}
	if p.Tags != nil {
		r.Tags = *p.Tags
	}
	if p.Diet != nil {
		r.Diet = *p.Diet
	}
	if p.Allergens != nil {
		r.Allergens = *p.Allergens
	}
	if p.Difficulty != nil {
		r.Difficulty = *p.Difficulty
	}
	if p.CookingTime != nil {
		v := *p.CookingTime
		r.CookingTime = &v
	}
	if p.Servings != nil {
		v := *p.Servings
		r.Servings = &v
	}
	if p.Image != nil {
		r.Image = *p.Image
	}
}
