package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/campusvote/server/internal/cache"
	"github.com/campusvote/server/internal/config"
	"github.com/campusvote/server/internal/realtime"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Bus        realtime.Bus
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, bus realtime.Bus, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Bus:        bus,
		Logger:     logger,
	}
}
