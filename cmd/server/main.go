package main

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/souschef/sous-chef/internal/config"
	"github.com/souschef/sous-chef/internal/database"
	"github.com/souschef/sous-chef/internal/logger"
	"github.com/souschef/sous-chef/internal/queue"
	"github.com/souschef/sous-chef/internal/router"
)

func main() {
	cfg := config.Load()
	logger.Init()
	defer logger.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.L().Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OpTimeout)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		logger.L().Fatal("schema migration failed", zap.Error(err))
	}
	cancel()

	if rdb := config.NewRedisClient(); rdb != nil {
		defer rdb.Close()
		logger.L().Info("recipe cache enabled", zap.String("addr", rdb.Options().Addr))
	} else {
		logger.L().Warn("redis unavailable, recipe cache disabled")
	}

	// Consume session.completed events in the background for the
	// lifetime of the process; the loop reconnects on broker failure.
	go func() {
		if err := queue.StartSessionConsumer(); err != nil {
			logger.L().Error("session consumer stopped", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)

	addr := ":" + cfg.Port
	logger.L().Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.L().Fatal("server failed", zap.Error(err))
	}
}
