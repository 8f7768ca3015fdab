package handler

import (
	"context"
	"fmt"
	"time"

	"sous-system/config"
	"sous-system/internal/database/models"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPipelineLogLimit = 10
	pipelineLogWriteTimeout = 5 * time.Second
)

// RebuildAnalytics replaces the analytical snapshot with every committed
// transaction and appends exactly one pipeline log entry for the attempt.
func (s *ETLHandler) RebuildAnalytics(ctx context.Context, newTransactions int) error {
	start := time.Now()

	rows, err := s.rebuildSnapshot(ctx)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		s.metrics.RecordSync(models.PipelineStatusFailed, elapsed)
		if logErr := s.appendPipelineLog(ctx, models.PipelineStatusFailed, err.Error()); logErr != nil {
			config.LogError(s.logger, "etl", "RebuildAnalytics", "append failed pipeline log", nil, logErr)
		}
		config.LogError(s.logger, "etl", "RebuildAnalytics", "rebuild snapshot", newTransactions, err)
		return fmt.Errorf("analytics sync failed: %w", err)
	}

	s.metrics.RecordSync(models.PipelineStatusSuccess, elapsed)
	s.metrics.SnapshotRows.Set(float64(rows))

	details := fmt.Sprintf("Synced %d new transactions.", newTransactions)
	if err := s.appendPipelineLog(ctx, models.PipelineStatusSuccess, details); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"new_transactions": newTransactions,
		"snapshot_rows":    rows,
	}).Info("analytics snapshot rebuilt")
	return nil
}

func (s *ETLHandler) rebuildSnapshot(ctx context.Context) (int, error) {
	var rows []models.POSTransaction
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("read transactions: %w", err)
	}
	if err := s.analytics.Replace(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *ETLHandler) appendPipelineLog(ctx context.Context, status, details string) error {
	entry := models.PipelineLog{
		Timestamp: s.now().UTC(),
		Status:    status,
		Details:   details,
	}
	// The entry must outlive the caller's ctx so a cancelled sync is still recorded.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pipelineLogWriteTimeout)
	defer cancel()
	if err := s.db.WithContext(logCtx).Create(&entry).Error; err != nil {
		return fmt.Errorf("append pipeline log: %w", err)
	}
	return nil
}

// ListPipelineLogs returns the newest entries first.
func (s *ETLHandler) ListPipelineLogs(ctx context.Context, limit int) ([]models.PipelineLog, error) {
	if limit <= 0 {
		limit = DefaultPipelineLogLimit
	}

	logs := make([]models.PipelineLog, 0, limit)
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
