package model

import "time"

// Cuisine is the enumerated category of a recipe.  Values are
// stored upper-case in the `recipes.cuisine` column.
type Cuisine string

const (
	CuisineItalian       Cuisine = "ITALIAN"
	CuisineFrench        Cuisine = "FRENCH"
	CuisineChinese       Cuisine = "CHINESE"
	CuisineJapanese      Cuisine = "JAPANESE"
	CuisineIndian        Cuisine = "INDIAN"
	CuisineMexican       Cuisine = "MEXICAN"
	CuisineThai          Cuisine = "THAI"
	CuisineMediterranean Cuisine = "MEDITERRANEAN"
	CuisineAmerican      Cuisine = "AMERICAN"
	CuisineOther         Cuisine = "OTHER"
)

// Difficulty is the enumerated skill level of a recipe.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Recipe represents a row in the `recipes` table.  Every recipe
// belongs to exactly one user.  Ingredients are an ordered list
// (duplicates allowed) kept in `recipe_ingredients`; tags are an
// unordered set kept in `recipe_tags`.  A recipe owns its steps:
// steps are deleted together with the recipe and replaced as a
// whole on update (orphan removal).
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – owning user, required.
//  Title           – required display title.
//  Description     – optional free text (nil when unset).
//  Cuisine         – enumerated category (nil when unset).
//  PrepTimeMinutes – preparation time in minutes (nil when unset).
//  CookTimeMinutes – cooking time in minutes (nil when unset).
//  Servings        – number of servings (nil when unset).
//  Difficulty      – enumerated level (nil when unset).
//  IsPublic        – discovery flag, defaults to false.
//  ImageURL        – optional image reference (nil when unset).
//  Ingredients     – ordered ingredient strings.
//  Tags            – deduplicated tag strings.
//  Steps           – ordered by StepNumber ascending.
//  CreatedAt       – stamped once at insert.
//  UpdatedAt       – restamped on every persisted change.
type Recipe struct {
	ID              uint64       // recipes.id
	UserID          uint64       // recipes.user_id
	Title           string       // recipes.title
	Description     *string      // recipes.description (nullable)
	Cuisine         *Cuisine     // recipes.cuisine (nullable)
	PrepTimeMinutes *int32       // recipes.prep_time_minutes (nullable)
	CookTimeMinutes *int32       // recipes.cook_time_minutes (nullable)
	Servings        *int32       // recipes.servings (nullable)
	Difficulty      *Difficulty  // recipes.difficulty (nullable)
	IsPublic        bool         // recipes.is_public
	ImageURL        *string      // recipes.image_url (nullable)
	Ingredients     []string     // recipe_ingredients.ingredient, ordered by position
	Tags            []string     // recipe_tags.recipe_tags
	Steps           []RecipeStep // recipe_steps rows, step_number ascending
	CreatedAt       time.Time    // recipes.created_at
	UpdatedAt       time.Time    // recipes.updated_at
}
