package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sous-system/config"
	"sous-system/internal/database/analytics"
	"sous-system/internal/database/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	DASHBOARD_SUMMARY_CACHE_KEY = "sous:dashboard:summary"
	INVENTORY_LIST_CACHE_KEY    = "sous:dashboard:inventory"
	CACHE_TTL_SHORT             = 30 * time.Second
)

const (
	StockStatusOK       = "ok"
	StockStatusLow      = "low"
	StockStatusCritical = "critical"
)

type Summary struct {
	TotalSales        float64 `json:"total_sales"`
	TotalTransactions int64   `json:"total_transactions"`
	LowStockItemCount int64   `json:"low_stock_item_count"`
	TopSellingItem    *string `json:"top_selling_item"`
}

type InventoryView struct {
	models.InventoryItem
	Status string `json:"status"`
}

// StockStatus is critical below half of par, low below par.
func StockStatus(item models.InventoryItem) string {
	switch {
	case item.CurrentStock < item.ParLevel/2:
		return StockStatusCritical
	case item.CurrentStock < item.ParLevel:
		return StockStatusLow
	default:
		return StockStatusOK
	}
}

// -- Handler --
type DashboardHandler struct {
	db        *gorm.DB
	analytics *analytics.Store
	redis     *redis.Client
	logger    *logrus.Logger
}

// NewDashboardHandler accepts a nil redisClient, which disables caching.
func NewDashboardHandler(db *gorm.DB, store *analytics.Store, redisClient *redis.Client) *DashboardHandler {
	return &DashboardHandler{
		db:        db,
		analytics: store,
		redis:     redisClient,
		logger:    config.GetLogger(),
	}
}

// InvalidateDashboardCaches drops every cached dashboard payload.
func InvalidateDashboardCaches(ctx context.Context, rdb *redis.Client) error {
	return rdb.Del(ctx, DASHBOARD_SUMMARY_CACHE_KEY, INVENTORY_LIST_CACHE_KEY).Err()
}

// Summarize reports headline KPIs. Sales figures come from the analytical
// snapshot and read as zero when it is missing or unreadable. The low-stock
// count always comes from the transactional store.
func (s *DashboardHandler) Summarize(ctx context.Context) (*Summary, error) {
	var cached Summary
	if s.getCached(ctx, DASHBOARD_SUMMARY_CACHE_KEY, &cached) {
		return &cached, nil
	}

	summary := &Summary{}
	s.fillSalesMetrics(ctx, summary)

	err := s.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("current_stock < par_level").
		Count(&summary.LowStockItemCount).Error
	if err != nil {
		return nil, fmt.Errorf("count low stock items: %w", err)
	}

	s.setCached(ctx, DASHBOARD_SUMMARY_CACHE_KEY, summary)
	return summary, nil
}

func (s *DashboardHandler) fillSalesMetrics(ctx context.Context, summary *Summary) {
	totals, err := s.analytics.Totals(ctx)
	if err != nil {
		s.logAnalyticsError("Totals", err)
		return
	}
	summary.TotalSales = totals.TotalSales
	summary.TotalTransactions = totals.TotalTransactions

	top, ok, err := s.analytics.TopSellingItem(ctx)
	if err != nil {
		s.logAnalyticsError("TopSellingItem", err)
		return
	}
	if ok {
		summary.TopSellingItem = &top
	}
}

func (s *DashboardHandler) logAnalyticsError(funcName string, err error) {
	if errors.Is(err, analytics.ErrNoSnapshot) {
		s.logger.Debug("dashboard requested before first sync")
		return
	}
	config.LogError(s.logger, "dashboard", funcName, "read analytics snapshot", nil, err)
}

// ListInventory returns every item by name with its stock status.
func (s *DashboardHandler) ListInventory(ctx context.Context) ([]InventoryView, error) {
	var cached []InventoryView
	if s.getCached(ctx, INVENTORY_LIST_CACHE_KEY, &cached) {
		return cached, nil
	}

	var items []models.InventoryItem
	if err := s.db.WithContext(ctx).Order("name").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}

	views := make([]InventoryView, 0, len(items))
	for _, item := range items {
		views = append(views, InventoryView{InventoryItem: item, Status: StockStatus(item)})
	}

	s.setCached(ctx, INVENTORY_LIST_CACHE_KEY, views)
	return views, nil
}

func (s *DashboardHandler) getCached(ctx context.Context, key string, dst interface{}) bool {
	if s.redis == nil {
		return false
	}
	val, err := s.redis.Get(ctx, key).Result()
	if err == nil {
		return json.Unmarshal([]byte(val), dst) == nil
	}
	if err != redis.Nil {
		s.logger.WithError(err).WithField("key", key).Warn("redis error on GET, falling back to DB")
	}
	return false
}

func (s *DashboardHandler) setCached(ctx context.Context, key string, v interface{}) {
	if s.redis == nil {
		return
	}
	jsonData, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, jsonData, CACHE_TTL_SHORT).Err(); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("failed to set cache")
	}
}
