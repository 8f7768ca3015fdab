package handler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"sous-system/internal/database/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultBatchSize = 20

var ErrEmptyBatch = errors.New("pos batch is empty")

// Fetcher pulls one batch of sales from a point-of-sale source.
type Fetcher interface {
	FetchBatch(ctx context.Context) ([]models.POSTransaction, error)
}

type MenuItem struct {
	ItemID string
	Name   string
	Price  float64
}

var DefaultMenu = []MenuItem{
	{ItemID: "burger", Name: "Classic Burger", Price: 12.00},
	{ItemID: "fries", Name: "French Fries", Price: 5.00},
	{ItemID: "soda", Name: "Fountain Soda", Price: 3.00},
	{ItemID: "chicken_bowl", Name: "Chicken Rice Bowl", Price: 14.00},
}

// MockPOSFetcher generates synthetic sales from a fixed menu. Each line has a
// quantity of 1 to 3 and a timestamp 1 to 480 minutes before Now.
type MockPOSFetcher struct {
	Menu      []MenuItem
	BatchSize int
	Now       func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockPOSFetcher(batchSize int, seed int64) *MockPOSFetcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &MockPOSFetcher{
		Menu:      DefaultMenu,
		BatchSize: batchSize,
		Now:       time.Now,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (f *MockPOSFetcher) FetchBatch(ctx context.Context) ([]models.POSTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.Menu) == 0 {
		return nil, errors.New("mock pos menu is empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.Now()
	batch := make([]models.POSTransaction, 0, f.BatchSize)
	for i := 0; i < f.BatchSize; i++ {
		item := f.Menu[f.rng.Intn(len(f.Menu))]
		minutesAgo := 1 + f.rng.Intn(480)
		batch = append(batch, models.POSTransaction{
			OrderID:   uuid.NewString(),
			Timestamp: now.Add(-time.Duration(minutesAgo) * time.Minute).UTC(),
			ItemID:    item.ItemID,
			ItemName:  item.Name,
			Price:     item.Price,
			Quantity:  int32(1 + f.rng.Intn(3)),
		})
	}
	return batch, nil
}

// CommitBatch writes every record in one transaction. A single failing
// record rolls back the whole batch.
func (s *ETLHandler) CommitBatch(ctx context.Context, batch []models.POSTransaction) (int, error) {
	if len(batch) == 0 {
		return 0, ErrEmptyBatch
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range batch {
			if err := tx.Create(&batch[i]).Error; err != nil {
				return fmt.Errorf("insert transaction %s: %w", batch[i].OrderID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.TransactionsIngestedTotal.Add(float64(len(batch)))
	return len(batch), nil
}
