package main

import (
	"os"

	"github.com/oggyb/codev-api/internal/config"
	"github.com/oggyb/codev-api/internal/db"
	"github.com/oggyb/codev-api/internal/logger"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)

	database, err := db.NewDB(cfg)
	if err != nil {
		logger.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database, cfg.Roles.User, cfg.Roles.Admin); err != nil {
		logger.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	logger.Info("seeding completed")
}
