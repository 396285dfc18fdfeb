package logger_test

import (
	"errors"

	"github.com/wonny/aegis-options/pkg/config"
	"github.com/wonny/aegis-options/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	// Create logger (SSOT)
	log := logger.New(cfg)

	log.Debug("This won't appear (level is info)")
	log.Info("Search engine started")
	log.Infof("Loaded %d legs", 48)
}

// Example_runScoped demonstrates component and run scoped logging
func Example_runScoped() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg).WithComponent("search").WithRun("6f1c...")

	log.WithFields(map[string]interface{}{
		"candidates": 125000,
		"survivors":  312,
		"rejected":   map[string]int{"delta": 90000, "premium": 34688},
	}).Info("Search completed")

	log.WithError(errors.New("context canceled")).Warn("Search aborted")
}
