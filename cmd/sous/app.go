package main

import (
	"context"
	"errors"
	"time"

	"sous-system/config"
	"sous-system/internal/database"
	"sous-system/internal/database/analytics"
	agent "sous-system/internal/services/agent/handler"
	dashboard "sous-system/internal/services/dashboard/handler"
	etl "sous-system/internal/services/etl/handler"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// app owns every long-lived resource. Both stores are opened once here and
// passed to the handlers.
type app struct {
	cfg       config.Config
	db        *gorm.DB
	analytics *analytics.Store
	redis     *redis.Client

	etl       *etl.ETLHandler
	dashboard *dashboard.DashboardHandler
	agent     *agent.AgentHandler
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logg := config.GetLogger()

	db, err := database.NewConnection(cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateSousDB(db); err != nil {
		database.Close(db)
		return nil, err
	}

	store, err := analytics.Open(cfg.Analytics.Path)
	if err != nil {
		database.Close(db)
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err = config.NewRedisClient(pingCtx, cfg.Redis)
		cancel()
		if err != nil {
			logg.WithError(err).Warn("redis unavailable, dashboard caching disabled")
			rdb = nil
		}
	}

	a := &app{
		cfg:       cfg,
		db:        db,
		analytics: store,
		redis:     rdb,
	}

	a.etl = etl.NewETLHandler(db, store, rdb, etl.Options{
		InventoryPath:         cfg.Seed.InventoryPath,
		InventoryFallbackPath: cfg.Seed.InventoryFallbackPath,
		Fetcher:               etl.NewMockPOSFetcher(cfg.Seed.BatchSize, time.Now().UnixNano()),
	})
	a.dashboard = dashboard.NewDashboardHandler(db, store, rdb)

	tools := agent.NewToolset(db, store)
	client, err := agent.NewOpenAIClient(cfg.LLM)
	switch {
	case errors.Is(err, agent.ErrNoLLMClient):
		logg.Warn("OPENAI_API_KEY not set, chat will answer with a fallback message")
		a.agent = agent.NewAgentHandler(nil, tools, cfg.LLM.Model, cfg.LLM.MaxSteps)
	case err != nil:
		a.close()
		return nil, err
	default:
		a.agent = agent.NewAgentHandler(client, tools, cfg.LLM.Model, cfg.LLM.MaxSteps)
	}

	return a, nil
}

func (a *app) close() {
	logg := config.GetLogger()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logg.WithError(err).Warn("failed to close redis")
		}
	}
	if err := a.analytics.Close(); err != nil {
		logg.WithError(err).Warn("failed to close analytics store")
	}
	if err := database.Close(a.db); err != nil {
		logg.WithError(err).Warn("failed to close database")
	}
}
