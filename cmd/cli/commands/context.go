package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/internal/config"
	"github.com/jakechorley/duty-roster/pkg/cache"
	"github.com/jakechorley/duty-roster/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg    *config.Config
	Logger *zap.Logger
	Ctx    context.Context
}

// OpenDatabase connects to the configured Postgres roster store
func (a *AppContext) OpenDatabase() (*postgres.DB, error) {
	a.Logger.Info("Connecting to database")
	database, err := postgres.NewDB(a.Ctx, a.Cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.Logger.Debug("Database connected")
	return database, nil
}

// OpenCache connects to Redis when an address is configured. Without one the returned
// cache is disabled and every lookup misses.
func (a *AppContext) OpenCache() (*cache.ResultCache, error) {
	if a.Cfg.Redis.Addr == "" {
		a.Logger.Debug("Result cache disabled")
		return cache.New(nil, 0, a.Logger), nil
	}

	a.Logger.Info("Connecting to redis", zap.String("addr", a.Cfg.Redis.Addr))
	client, err := cache.NewRedis(a.Cfg.Redis.Addr, a.Cfg.Redis.Password, a.Cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cache: %w", err)
	}
	return cache.New(client, a.Cfg.Redis.TTL, a.Logger), nil
}
