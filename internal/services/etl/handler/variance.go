package handler

import (
	"context"
	"fmt"

	"sous-system/internal/database/models"

	"github.com/shopspring/decimal"
)

type VarianceLine struct {
	InventoryItemName string  `json:"inventory_item_name"`
	SalesItemID       string  `json:"sales_item_id"`
	TotalSold         int64   `json:"total_sold"`
	TheoreticalUsage  float64 `json:"theoretical_usage"`
	Unit              string  `json:"unit"`
}

type VarianceReport struct {
	Lines []VarianceLine `json:"lines"`
	// UnmappedItems lists sold item ids with no recipe mapping.
	UnmappedItems []string `json:"unmapped_items"`
}

// ComputeVariance derives theoretical ingredient usage from the analytical
// snapshot and the recipe mappings. It never writes. analytics.ErrNoSnapshot
// is returned unchanged when no sync has run yet.
func (s *ETLHandler) ComputeVariance(ctx context.Context) (*VarianceReport, error) {
	report := &VarianceReport{
		Lines:         []VarianceLine{},
		UnmappedItems: []string{},
	}

	sales, err := s.analytics.SalesByItem(ctx)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return report, nil
	}

	ids := make([]string, 0, len(sales))
	for _, sale := range sales {
		ids = append(ids, sale.ItemID)
	}

	var mappings []models.RecipeMapping
	err = s.db.WithContext(ctx).
		Preload("InventoryItem").
		Where("pos_item_id IN ?", ids).
		Order("pos_item_id").
		Order("id").
		Find(&mappings).Error
	if err != nil {
		return nil, fmt.Errorf("load recipe mappings: %w", err)
	}

	byItem := make(map[string][]models.RecipeMapping, len(ids))
	for _, m := range mappings {
		byItem[m.PosItemID] = append(byItem[m.PosItemID], m)
	}

	for _, sale := range sales {
		recipe := byItem[sale.ItemID]
		if len(recipe) == 0 {
			report.UnmappedItems = append(report.UnmappedItems, sale.ItemID)
			continue
		}
		sold := decimal.NewFromInt(sale.TotalSold)
		for _, m := range recipe {
			if m.InventoryItem == nil {
				continue
			}
			usage := sold.Mul(decimal.NewFromFloat(m.QuantityRequired))
			report.Lines = append(report.Lines, VarianceLine{
				InventoryItemName: m.InventoryItem.Name,
				SalesItemID:       sale.ItemID,
				TotalSold:         sale.TotalSold,
				TheoreticalUsage:  usage.InexactFloat64(),
				Unit:              m.InventoryItem.Unit,
			})
		}
	}

	return report, nil
}
