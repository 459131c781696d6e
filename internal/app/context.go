package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/codev-api/internal/cache"
	"github.com/oggyb/codev-api/internal/config"
	"github.com/oggyb/codev-api/internal/events"
	"github.com/oggyb/codev-api/internal/repository"
)

// AppContext holds shared dependencies (DB, Redis, event publisher, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	Store      *repository.Store
	RedisCache *cache.RedisCache
	Publisher  events.Publisher
	Logger     *slog.Logger
}

// New creates a new AppContext. A nil RedisCache disables distributed
// locking; a nil publisher drops events.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, pub events.Publisher, logger *slog.Logger) *AppContext {
	if pub == nil {
		pub = events.Nop{}
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &AppContext{
		Config:     cfg,
		DB:         db,
		Store:      repository.NewStore(db),
		RedisCache: rdb,
		Publisher:  pub,
		Logger:     logger,
	}
}
