package models

import "time"

const (
	PipelineStatusSuccess = "SUCCESS"
	PipelineStatusFailed  = "FAILED"
)

// Business holds tenant metadata and provider keys. The pipeline does not read it.
type Business struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Name         string  `gorm:"size:255;index"`
	APIKeySquare *string `gorm:"size:255"`
	APIKeyToast  *string `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type InventoryItem struct {
	ID           int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string  `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Unit         string  `gorm:"size:50;not null" json:"unit"`
	CurrentStock float64 `gorm:"not null;default:0;check:current_stock >= 0" json:"current_stock"`
	ParLevel     float64 `gorm:"not null;default:0;check:par_level >= 0" json:"par_level"`
	Supplier     string  `gorm:"size:255" json:"supplier"`
	CostPerUnit  float64 `gorm:"not null;default:0;check:cost_per_unit >= 0" json:"cost_per_unit"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

func (i InventoryItem) IsLowStock() bool {
	return i.CurrentStock < i.ParLevel
}

// RecipeMapping is one (POS item, ingredient) pair.
type RecipeMapping struct {
	ID               int64   `gorm:"primaryKey;autoIncrement"`
	PosItemID        string  `gorm:"size:100;index;not null"`
	InventoryItemID  int64   `gorm:"index;not null"`
	QuantityRequired float64 `gorm:"not null;check:quantity_required > 0"`
	CreatedAt        time.Time

	InventoryItem *InventoryItem `gorm:"foreignKey:InventoryItemID"`
}

// POSTransaction is one line item of one order. Rows are never updated.
type POSTransaction struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" db:"id"`
	OrderID   string    `gorm:"size:64;index;not null" db:"order_id"`
	Timestamp time.Time `gorm:"index;not null" db:"timestamp"`
	ItemID    string    `gorm:"size:100;index;not null" db:"item_id"`
	ItemName  string    `gorm:"size:255;not null" db:"item_name"`
	Price     float64   `gorm:"not null;check:price >= 0" db:"price"`
	Quantity  int32     `gorm:"not null;check:quantity > 0" db:"quantity"`
}

func (POSTransaction) TableName() string {
	return "pos_transactions"
}

type PipelineLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	Status    string    `gorm:"size:16;not null" json:"status"`
	Details   string    `gorm:"type:text" json:"details"`
}
