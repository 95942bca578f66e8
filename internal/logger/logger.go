// Package logger configures the global zap logger used by the
// binaries and background workers.
package logger

import (
	"log"
	"os"

	"go.uber.org/zap"
)

var Logger *zap.Logger

// Init initializes the global logger. Production config (JSON,
// sampled) when APP_ENV is "prod", development config otherwise.
func Init() {
	env := os.Getenv("APP_ENV")
	var err error
	if env == "prod" {
		Logger, err = zap.NewProduction()
	} else {
		Logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
}

// Sync flushes any buffered log entries. Call on shutdown.
func Sync() {
	if Logger == nil {
		return
	}
	if err := Logger.Sync(); err != nil {
		log.Printf("failed to flush log entries: %v", err)
	}
}

// L returns the global logger, initializing a development logger if
// Init was never called.
func L() *zap.Logger {
	if Logger == nil {
		Init()
	}
	return Logger
}
