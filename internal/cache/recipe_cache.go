// Package cache provides a Redis read-through cache over the recipe
// catalog's discovery queries. The cache is an optimization only:
// with a nil client or disabled config every call passes straight
// through to the repository, and any Redis failure is logged and
// ignored so the database remains the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/souschef/sous-chef/internal/config"
	"github.com/souschef/sous-chef/internal/logger"
	"github.com/souschef/sous-chef/internal/model"
	"github.com/souschef/sous-chef/internal/repository"
)

// RecipeCache decorates a RecipeRepo with cached reads for the
// public listing and title search. Writes must go through this type
// so the cached lists are invalidated together with the mutation.
type RecipeCache struct {
	repo *repository.RecipeRepo
	rdb  *redis.Client
	cfg  config.CacheConfig
}

// NewRecipeCache wraps the repo. rdb may be nil.
func NewRecipeCache(repo *repository.RecipeRepo, rdb *redis.Client, cfg config.CacheConfig) *RecipeCache {
	return &RecipeCache{repo: repo, rdb: rdb, cfg: cfg}
}

func (c *RecipeCache) enabled() bool { return c.cfg.Enabled && c.rdb != nil }

// FindPublic returns all public recipes, served from Redis when a
// fresh entry exists.
func (c *RecipeCache) FindPublic(ctx context.Context) ([]model.Recipe, error) {
	return c.cached(ctx, c.cfg.Prefix+":public", func() ([]model.Recipe, error) {
		return c.repo.FindPublic(ctx)
	})
}

// SearchByTitle returns recipes matching the substring, cached per
// normalized search term.
func (c *RecipeCache) SearchByTitle(ctx context.Context, title string) ([]model.Recipe, error) {
	key := c.cfg.Prefix + ":search:" + strings.ToLower(strings.TrimSpace(title))
	return c.cached(ctx, key, func() ([]model.Recipe, error) {
		return c.repo.SearchByTitle(ctx, title)
	})
}

// Create writes through to the repository and drops the cached lists.
func (c *RecipeCache) Create(ctx context.Context, rec *model.Recipe) error {
	if err := c.repo.Create(ctx, rec); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// Update writes through to the repository and drops the cached lists.
func (c *RecipeCache) Update(ctx context.Context, rec *model.Recipe) error {
	if err := c.repo.Update(ctx, rec); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// Delete writes through to the repository and drops the cached lists.
func (c *RecipeCache) Delete(ctx context.Context, id uint64) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *RecipeCache) cached(ctx context.Context, key string, load func() ([]model.Recipe, error)) ([]model.Recipe, error) {
	if !c.enabled() {
		return load()
	}
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var recipes []model.Recipe
		if err := json.Unmarshal(raw, &recipes); err == nil {
			return recipes, nil
		}
		// Corrupt entry; fall through and overwrite it.
	}
	recipes, err := load()
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(recipes); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.cfg.TTL).Err(); err != nil {
			logger.L().Warn("recipe cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return recipes, nil
}

// invalidate drops every cached list under the prefix. SCAN keeps
// this safe on a shared Redis; errors only cost freshness, not
// correctness, because entries expire by TTL anyway.
func (c *RecipeCache) invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	iter := c.rdb.Scan(sctx, 0, c.cfg.Prefix+":*", 100).Iterator()
	for iter.Next(sctx) {
		if err := c.rdb.Del(sctx, iter.Val()).Err(); err != nil {
			logger.L().Warn("recipe cache invalidation failed", zap.String("key", iter.Val()), zap.Error(err))
			return
		}
	}
	if err := iter.Err(); err != nil {
		logger.L().Warn("recipe cache scan failed", zap.Error(err))
	}
}
