package model

// RecipeStep represents a single instruction in a recipe's
// cooking sequence, stored in the `recipe_steps` table.  Steps of
// a recipe ordered by StepNumber ascending define the sequence a
// cooking session walks through.  Step numbers are 1-based and
// unique within a recipe (enforced by the storage layer).
//
// Fields:
//  ID           – primary key identifier.
//  RecipeID     – owning recipe, required.
//  StepNumber   – positive 1-based ordinal, the natural sort key.
//  Instruction  – required instruction text.
//  TimerMinutes – suggested timer duration (nil when the step has
//                 no timer).
//  TimerLabel   – human-readable timer label (nil when unset).
type RecipeStep struct {
	ID           uint64  // recipe_steps.id
	RecipeID     uint64  // recipe_steps.recipe_id
	StepNumber   int32   // recipe_steps.step_number
	Instruction  string  // recipe_steps.instruction
	TimerMinutes *int32  // recipe_steps.timer_minutes (nullable)
	TimerLabel   *string // recipe_steps.timer_label (nullable)
}
