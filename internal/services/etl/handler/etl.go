package handler

import (
	"context"
	"errors"
	"time"

	"sous-system/config"
	"sous-system/internal/database/analytics"
	"sous-system/internal/observability"
	dashboard "sous-system/internal/services/dashboard/handler"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	SyncStatusSuccess = "success"
)

type Options struct {
	InventoryPath         string
	InventoryFallbackPath string
	Fetcher               Fetcher
	Now                   func() time.Time
}

type SyncResult struct {
	Status          string `json:"status"`
	NewTransactions int    `json:"new_transactions"`
}

// -- Handler --
type ETLHandler struct {
	db        *gorm.DB
	analytics *analytics.Store
	redis     *redis.Client
	fetcher   Fetcher
	metrics   *observability.PipelineMetrics
	logger    *logrus.Logger
	now       func() time.Time

	inventoryPath         string
	inventoryFallbackPath string
}

// NewETLHandler wires the pipeline. redisClient may be nil when no cache is configured.
func NewETLHandler(db *gorm.DB, store *analytics.Store, redisClient *redis.Client, opts Options) *ETLHandler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewMockPOSFetcher(DefaultBatchSize, now().UnixNano())
	}
	return &ETLHandler{
		db:                    db,
		analytics:             store,
		redis:                 redisClient,
		fetcher:               fetcher,
		metrics:               observability.DefaultMetrics,
		logger:                config.GetLogger(),
		now:                   now,
		inventoryPath:         opts.InventoryPath,
		inventoryFallbackPath: opts.InventoryFallbackPath,
	}
}

// SyncData runs one full ingest: seed reference data if the database is
// empty, commit a new POS batch, rebuild the analytical snapshot and log the
// outcome.
func (s *ETLHandler) SyncData(ctx context.Context) (*SyncResult, error) {
	if err := s.SeedReferenceData(ctx); err != nil {
		config.LogError(s.logger, "etl", "SyncData", "seed reference data", nil, err)
		return nil, err
	}

	batch, err := s.fetcher.FetchBatch(ctx)
	if err != nil {
		config.LogError(s.logger, "etl", "SyncData", "fetch pos batch", nil, err)
		return nil, err
	}

	committed, err := s.CommitBatch(ctx, batch)
	if err != nil {
		config.LogError(s.logger, "etl", "SyncData", "commit pos batch", len(batch), err)
		return nil, err
	}

	if err := s.RebuildAnalytics(ctx, committed); err != nil {
		return nil, err
	}

	s.InvalidateCaches(ctx)

	return &SyncResult{
		Status:          SyncStatusSuccess,
		NewTransactions: committed,
	}, nil
}

// SeedReferenceData loads inventory from the primary path, falling back to
// the alternate path once when the primary file is missing, then seeds recipes.
func (s *ETLHandler) SeedReferenceData(ctx context.Context) error {
	inv, err := s.LoadInventory(ctx, s.inventoryPath)
	if errors.Is(err, ErrSeedDataNotFound) && s.inventoryFallbackPath != "" && s.inventoryFallbackPath != s.inventoryPath {
		s.logger.WithField("path", s.inventoryPath).Warn("inventory seed file missing, trying fallback path")
		inv, err = s.LoadInventory(ctx, s.inventoryFallbackPath)
	}
	if err != nil {
		return err
	}
	if inv.Inserted > 0 {
		s.logger.WithField("items", inv.Inserted).Info("seeded inventory items")
	}

	recipes, err := s.SeedRecipes(ctx)
	if err != nil {
		return err
	}
	if recipes.Inserted > 0 {
		s.logger.WithField("mappings", recipes.Inserted).Info("seeded recipe mappings")
	}
	return nil
}

func (s *ETLHandler) InvalidateCaches(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := dashboard.InvalidateDashboardCaches(ctx, s.redis); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate dashboard cache")
	}
}
