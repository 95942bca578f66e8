// Command seed populates a development database with a demo user and
// recipe, then drives a full cooking session through the state
// machine: start, timer pause/resume, step advances, completion and
// the session.completed event. Useful as smoke coverage against a
// real MySQL instance.
package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/souschef/sous-chef/internal/cache"
	"github.com/souschef/sous-chef/internal/config"
	"github.com/souschef/sous-chef/internal/database"
	"github.com/souschef/sous-chef/internal/logger"
	"github.com/souschef/sous-chef/internal/model"
	"github.com/souschef/sous-chef/internal/queue"
	"github.com/souschef/sous-chef/internal/repository"
	queue_publisher "github.com/souschef/sous-chef/internal/service"
	"github.com/souschef/sous-chef/internal/utils"
)

func main() {
	cfg := config.Load()
	logger.Init()
	defer logger.Sync()
	log := logger.L()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("schema migration failed", zap.Error(err))
	}

	users := repository.NewUserRepo(db)
	recipes := cache.NewRecipeCache(repository.NewRecipeRepo(db), config.NewRedisClient(), config.LoadCacheConfig())
	sessions := repository.NewCookingSessionRepo(db)

	// Demo user. The identity layer normally supplies the hash; here
	// bcrypt stands in for it so the row carries a real credential.
	hash, err := utils.HashPassword("demo-password", 10)
	if err != nil {
		log.Fatal("hash password failed", zap.Error(err))
	}
	first := "Alice"
	user := &model.User{
		Username:            "alice",
		Email:               "alice@example.com",
		PasswordHash:        hash,
		FirstName:           &first,
		DietaryRestrictions: []string{"vegetarian", "nut-free"},
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) || errors.Is(err, repository.ErrEmailExists) {
			log.Fatal("demo user already seeded; wipe the database first", zap.Error(err))
		}
		log.Fatal("create user failed", zap.Error(err))
	}
	log.Info("user created", zap.Uint64("id", user.ID), zap.String("username", user.Username))

	cuisine := model.CuisineAmerican
	difficulty := model.DifficultyEasy
	prep, cook, servings := int32(10), int32(15), int32(4)
	batterTimer := int32(2)
	recipe := &model.Recipe{
		UserID:     user.ID,
		Title:      "Pancakes",
		Cuisine:    &cuisine,
		Difficulty: &difficulty,
		IsPublic:   true,
		PrepTimeMinutes: &prep, CookTimeMinutes: &cook, Servings: &servings,
		Ingredients: []string{"2 cups flour", "2 eggs", "1.5 cups milk", "pinch of salt"},
		Tags:        []string{"breakfast", "quick"},
		Steps: []model.RecipeStep{
			{StepNumber: 1, Instruction: "Whisk flour, eggs, milk and salt into a smooth batter."},
			{StepNumber: 2, Instruction: "Rest the batter.", TimerMinutes: &batterTimer},
			{StepNumber: 3, Instruction: "Fry ladlefuls on a hot griddle until golden on both sides."},
		},
	}
	if err := recipes.Create(ctx, recipe); err != nil {
		log.Fatal("create recipe failed", zap.Error(err))
	}
	log.Info("recipe created", zap.Uint64("id", recipe.ID), zap.Int("steps", len(recipe.Steps)))

	public, err := recipes.FindPublic(ctx)
	if err != nil {
		log.Fatal("list public recipes failed", zap.Error(err))
	}
	log.Info("public recipes", zap.Int("count", len(public)))

	session, err := sessions.Start(ctx, user.ID, recipe.ID)
	if err != nil {
		log.Fatal("start session failed", zap.Error(err))
	}
	log.Info("session started", zap.Uint64("id", session.ID), zap.Int32("current_step", session.CurrentStep))

	timer, err := sessions.AddTimer(ctx, session.ID, "Rest batter", 120)
	if err != nil {
		log.Fatal("add timer failed", zap.Error(err))
	}
	if err := sessions.PauseTimer(ctx, timer.ID); err != nil {
		log.Fatal("pause timer failed", zap.Error(err))
	}
	if err := sessions.ResumeTimer(ctx, timer.ID); err != nil {
		log.Fatal("resume timer failed", zap.Error(err))
	}
	if err := sessions.CompleteTimer(ctx, timer.ID); err != nil {
		log.Fatal("complete timer failed", zap.Error(err))
	}

	for step := int32(2); step <= 3; step++ {
		session, err = sessions.Advance(ctx, session.ID)
		if err != nil {
			log.Fatal("advance failed", zap.Error(err))
		}
		log.Info("advanced", zap.Int32("current_step", session.CurrentStep))
	}

	session, err = sessions.Complete(ctx, session.ID)
	if err != nil {
		log.Fatal("complete failed", zap.Error(err))
	}
	log.Info("session completed", zap.Timep("completed_at", session.CompletedAt))

	ev := queue.SessionCompletedEvent{
		SessionID:   session.ID,
		UserID:      user.ID,
		Username:    user.Username,
		RecipeID:    recipe.ID,
		RecipeTitle: recipe.Title,
		StepsTotal:  int32(len(recipe.Steps)),
		StartedAt:   session.StartedAt.Format(time.RFC3339),
		CompletedAt: session.CompletedAt.Format(time.RFC3339),
	}
	if err := queue_publisher.PublishSessionCompleted(ctx, ev); err != nil {
		log.Warn("event publish failed, continuing", zap.Error(err))
	}

	history, err := sessions.ListByUser(ctx, user.ID)
	if err != nil {
		log.Fatal("list history failed", zap.Error(err))
	}
	for _, s := range history {
		log.Info("history entry",
			zap.Uint64("session_id", s.ID),
			zap.String("state", string(s.State)),
			zap.Time("started_at", s.StartedAt))
	}
}
