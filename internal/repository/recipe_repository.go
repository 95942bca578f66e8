package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/souschef/sous-chef/internal/model"
)

// RecipeRepo provides CRUD operations for recipes and their owned
// child rows: ordered ingredients, the tag set and the recipe steps.
// A recipe's children are written and replaced as a whole inside one
// transaction, so a recipe can never be observed with a partial step
// list (orphan removal). All timestamp fields are stored in UTC.
type RecipeRepo struct {
	db *sql.DB
}

// NewRecipeRepo returns a new RecipeRepo bound to the given database.
func NewRecipeRepo(db *sql.DB) *RecipeRepo { return &RecipeRepo{db: db} }

const recipeColumns = "id, user_id, title, description, cuisine, prep_time_minutes, cook_time_minutes, servings, difficulty, is_public, image_url, created_at, updated_at"

// Create inserts the recipe together with its ingredients, tags and
// steps in one transaction and populates the generated IDs and audit
// timestamps on the provided record. Steps are sorted by step number
// before insert. A missing owner maps to ErrNotFound; a duplicate
// step number within the recipe maps to ErrConflict.
func (r *RecipeRepo) Create(ctx context.Context, rec *model.Recipe) error {
	now := time.Now().UTC().Truncate(time.Second)
	rec.CreatedAt = now
	rec.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorage(err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO recipes (user_id, title, description, cuisine, prep_time_minutes, cook_time_minutes, servings, difficulty, is_public, image_url, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)",
		rec.UserID, rec.Title, rec.Description, cuisinePtr(rec.Cuisine), rec.PrepTimeMinutes,
		rec.CookTimeMinutes, rec.Servings, difficultyPtr(rec.Difficulty), rec.IsPublic, rec.ImageURL,
		rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return mapRecipeWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wrapStorage(err)
	}
	rec.ID = uint64(id)

	if err := r.insertChildrenTx(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapStorage(err)
	}
	return nil
}

// GetByID fetches a recipe by id with ingredients, tags and steps
// loaded. Steps come back ordered by step number ascending.
func (r *RecipeRepo) GetByID(ctx context.Context, id uint64) (*model.Recipe, error) {
	recipes, err := r.list(ctx, "SELECT "+recipeColumns+" FROM recipes WHERE id=?", id)
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, ErrNotFound
	}
	return &recipes[0], nil
}

// FindByUser returns all recipes owned by the given user, children
// included. Order is unspecified beyond being deterministic (by id).
func (r *RecipeRepo) FindByUser(ctx context.Context, userID uint64) ([]model.Recipe, error) {
	return r.list(ctx, "SELECT "+recipeColumns+" FROM recipes WHERE user_id=? ORDER BY id", userID)
}

// FindPublic returns all recipes marked public, for discovery.
func (r *RecipeRepo) FindPublic(ctx context.Context) ([]model.Recipe, error) {
	return r.list(ctx, "SELECT "+recipeColumns+" FROM recipes WHERE is_public=1 ORDER BY id")
}

// SearchByTitle returns recipes whose title contains the given
// substring, matched case-insensitively.
func (r *RecipeRepo) SearchByTitle(ctx context.Context, title string) ([]model.Recipe, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(title)) + "%"
	return r.list(ctx, "SELECT "+recipeColumns+" FROM recipes WHERE LOWER(title) LIKE ? ORDER BY id", pattern)
}

// StepCount returns the number of steps of a recipe. ErrNotFound is
// returned when the recipe itself does not exist.
func (r *RecipeRepo) StepCount(ctx context.Context, recipeID uint64) (int32, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM recipes WHERE id=?)", recipeID).Scan(&exists); err != nil {
		return 0, wrapStorage(err)
	}
	if !exists {
		return 0, ErrNotFound
	}
	var n int32
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM recipe_steps WHERE recipe_id=?", recipeID).Scan(&n); err != nil {
		return 0, wrapStorage(err)
	}
	return n, nil
}

// Update persists the recipe's mutable fields and replaces all of
// its children in one transaction. created_at is never touched;
// updated_at is restamped.
func (r *RecipeRepo) Update(ctx context.Context, rec *model.Recipe) error {
	rec.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorage(err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE recipes SET title=?, description=?, cuisine=?, prep_time_minutes=?, cook_time_minutes=?, servings=?, difficulty=?, is_public=?, image_url=?, updated_at=? WHERE id=?",
		rec.Title, rec.Description, cuisinePtr(rec.Cuisine), rec.PrepTimeMinutes, rec.CookTimeMinutes,
		rec.Servings, difficultyPtr(rec.Difficulty), rec.IsPublic, rec.ImageURL, rec.UpdatedAt, rec.ID)
	if err != nil {
		return mapRecipeWriteErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM recipes WHERE id=?)", rec.ID).Scan(&exists); err != nil {
			return wrapStorage(err)
		}
		if !exists {
			return ErrNotFound
		}
	}

	for _, q := range []string{
		"DELETE FROM recipe_steps WHERE recipe_id=?",
		"DELETE FROM recipe_ingredients WHERE recipe_id=?",
		"DELETE FROM recipe_tags WHERE recipe_id=?",
	} {
		if _, err := tx.ExecContext(ctx, q, rec.ID); err != nil {
			return wrapStorage(err)
		}
	}
	if err := r.insertChildrenTx(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapStorage(err)
	}
	return nil
}

// Delete removes the recipe and all of its children inside one
// transaction. A recipe that cooking sessions still reference cannot
// be deleted; the call fails with ErrConflict and nothing is removed.
func (r *RecipeRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorage(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		"DELETE FROM recipe_steps WHERE recipe_id=?",
		"DELETE FROM recipe_ingredients WHERE recipe_id=?",
		"DELETE FROM recipe_tags WHERE recipe_id=?",
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return wrapStorage(err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM recipes WHERE id=?", id)
	if err != nil {
		if isMySQLErr(err, mysqlRowReferenced) {
			return ErrConflict
		}
		return wrapStorage(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return wrapStorage(err)
	}
	return nil
}

// list runs a recipe query and populates the children of every
// returned recipe with one bulk query per child table.
func (r *RecipeRepo) list(ctx context.Context, query string, args ...any) ([]model.Recipe, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer rows.Close()

	recipes := make([]model.Recipe, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var rec model.Recipe
		var description, cuisine, difficulty, imageURL sql.NullString
		var prep, cook, servings sql.NullInt32
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Title, &description, &cuisine, &prep, &cook,
			&servings, &difficulty, &rec.IsPublic, &imageURL, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, wrapStorage(err)
		}
		if description.Valid {
			rec.Description = &description.String
		}
		if cuisine.Valid {
			c := model.Cuisine(cuisine.String)
			rec.Cuisine = &c
		}
		if difficulty.Valid {
			d := model.Difficulty(difficulty.String)
			rec.Difficulty = &d
		}
		if imageURL.Valid {
			rec.ImageURL = &imageURL.String
		}
		if prep.Valid {
			rec.PrepTimeMinutes = &prep.Int32
		}
		if cook.Valid {
			rec.CookTimeMinutes = &cook.Int32
		}
		if servings.Valid {
			rec.Servings = &servings.Int32
		}
		index[rec.ID] = len(recipes)
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage(err)
	}
	if len(recipes) == 0 {
		return recipes, nil
	}

	ids := make([]any, 0, len(recipes))
	placeholders := make([]string, 0, len(recipes))
	for _, rec := range recipes {
		ids = append(ids, rec.ID)
		placeholders = append(placeholders, "?")
	}
	in := "(" + strings.Join(placeholders, ",") + ")"

	// Ingredients, ordered by their stored position.
	irows, err := r.db.QueryContext(ctx,
		"SELECT recipe_id, ingredient FROM recipe_ingredients WHERE recipe_id IN "+in+" ORDER BY recipe_id, position", ids...)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer irows.Close()
	for irows.Next() {
		var rid uint64
		var ingredient string
		if err := irows.Scan(&rid, &ingredient); err != nil {
			return nil, wrapStorage(err)
		}
		if i, ok := index[rid]; ok {
			recipes[i].Ingredients = append(recipes[i].Ingredients, ingredient)
		}
	}
	if err := irows.Err(); err != nil {
		return nil, wrapStorage(err)
	}

	trows, err := r.db.QueryContext(ctx,
		"SELECT recipe_id, recipe_tags FROM recipe_tags WHERE recipe_id IN "+in+" ORDER BY recipe_id, recipe_tags", ids...)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer trows.Close()
	for trows.Next() {
		var rid uint64
		var tag string
		if err := trows.Scan(&rid, &tag); err != nil {
			return nil, wrapStorage(err)
		}
		if i, ok := index[rid]; ok {
			recipes[i].Tags = append(recipes[i].Tags, tag)
		}
	}
	if err := trows.Err(); err != nil {
		return nil, wrapStorage(err)
	}

	srows, err := r.db.QueryContext(ctx,
		"SELECT id, recipe_id, step_number, instruction, timer_minutes, timer_label FROM recipe_steps WHERE recipe_id IN "+in+" ORDER BY recipe_id, step_number", ids...)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer srows.Close()
	for srows.Next() {
		var step model.RecipeStep
		var timerMinutes sql.NullInt32
		var timerLabel sql.NullString
		if err := srows.Scan(&step.ID, &step.RecipeID, &step.StepNumber, &step.Instruction, &timerMinutes, &timerLabel); err != nil {
			return nil, wrapStorage(err)
		}
		if timerMinutes.Valid {
			step.TimerMinutes = &timerMinutes.Int32
		}
		if timerLabel.Valid {
			step.TimerLabel = &timerLabel.String
		}
		if i, ok := index[step.RecipeID]; ok {
			recipes[i].Steps = append(recipes[i].Steps, step)
		}
	}
	if err := srows.Err(); err != nil {
		return nil, wrapStorage(err)
	}
	return recipes, nil
}

// insertChildrenTx writes the ingredients, tags and steps of a
// recipe. Ingredients keep their slice order via the position
// column; tags are deduplicated; steps are sorted by step number and
// get their generated IDs populated.
func (r *RecipeRepo) insertChildrenTx(ctx context.Context, tx *sql.Tx, rec *model.Recipe) error {
	for i, ingredient := range rec.Ingredients {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO recipe_ingredients (recipe_id, position, ingredient) VALUES (?,?,?)",
			rec.ID, i, ingredient); err != nil {
			return wrapStorage(err)
		}
	}
	seen := make(map[string]bool, len(rec.Tags))
	for _, tag := range rec.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO recipe_tags (recipe_id, recipe_tags) VALUES (?,?)",
			rec.ID, tag); err != nil {
			return wrapStorage(err)
		}
	}
	sort.SliceStable(rec.Steps, func(i, j int) bool { return rec.Steps[i].StepNumber < rec.Steps[j].StepNumber })
	for i := range rec.Steps {
		step := &rec.Steps[i]
		step.RecipeID = rec.ID
		res, err := tx.ExecContext(ctx,
			"INSERT INTO recipe_steps (recipe_id, step_number, instruction, timer_minutes, timer_label) VALUES (?,?,?,?,?)",
			step.RecipeID, step.StepNumber, step.Instruction, step.TimerMinutes, step.TimerLabel)
		if err != nil {
			if isMySQLErr(err, mysqlDupEntry) {
				return ErrConflict
			}
			return wrapStorage(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return wrapStorage(err)
		}
		step.ID = uint64(id)
	}
	return nil
}

// mapRecipeWriteErr translates recipe write failures: a missing
// owner (foreign key) maps to ErrNotFound, duplicate step numbers to
// ErrConflict.
func mapRecipeWriteErr(err error) error {
	if isMySQLErr(err, mysqlNoReferenced) {
		return ErrNotFound
	}
	if isMySQLErr(err, mysqlDupEntry) {
		return ErrConflict
	}
	return wrapStorage(err)
}

func cuisinePtr(c *model.Cuisine) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

func difficultyPtr(d *model.Difficulty) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}
