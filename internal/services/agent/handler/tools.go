package handler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"sous-system/internal/database/analytics"
	"sous-system/internal/database/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	HealthyInventoryMessage = "All inventory levels are healthy (above par)."
	NoSalesMessage          = "No sales found in the specified period."

	DefaultTrendDays = 7

	// DailyUsageParFraction estimates daily usage as a fraction of par level.
	DailyUsageParFraction = 0.2
	// NoUsageDaysRemaining is reported when estimated usage is zero.
	NoUsageDaysRemaining = 999.0
)

// Toolset holds the read-only tools the advisory agent can call. Every tool
// returns plain text for the model; failures are described, not returned.
type Toolset struct {
	db        *gorm.DB
	analytics *analytics.Store
	now       func() time.Time
}

func NewToolset(db *gorm.DB, store *analytics.Store) *Toolset {
	return &Toolset{db: db, analytics: store, now: time.Now}
}

// WithClock replaces the time source used for date windows and projections.
func (t *Toolset) WithClock(now func() time.Time) *Toolset {
	t.now = now
	return t
}

// InventoryStatus lists items below par, or reports that all are healthy.
func (t *Toolset) InventoryStatus(ctx context.Context) string {
	var items []models.InventoryItem
	err := t.db.WithContext(ctx).
		Where("current_stock < par_level").
		Order("name").
		Find(&items).Error
	if err != nil {
		return fmt.Sprintf("Error querying inventory: %v", err)
	}
	if len(items) == 0 {
		return HealthyInventoryMessage
	}

	var b strings.Builder
	b.WriteString("Low Stock Alert:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s: Current %s %s (Par: %s)\n",
			item.Name, formatQty(item.CurrentStock), item.Unit, formatQty(item.ParLevel))
	}
	return b.String()
}

// RevenueTrends sums revenue per calendar day over the last days days,
// newest first. days <= 0 uses DefaultTrendDays.
func (t *Toolset) RevenueTrends(ctx context.Context, days int) string {
	if days <= 0 {
		days = DefaultTrendDays
	}
	now := t.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -days)

	rows, err := t.analytics.DailyRevenueSince(ctx, since)
	if errors.Is(err, analytics.ErrNoSnapshot) {
		return NoSalesMessage
	}
	if err != nil {
		return fmt.Sprintf("Error querying revenue: %v", err)
	}
	if len(rows) == 0 {
		return NoSalesMessage
	}

	var b strings.Builder
	b.WriteString("Revenue Trends:\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "- %s: %s\n", r.Day.Format("2006-01-02"), formatMoney(r.Revenue))
	}
	return b.String()
}

type ReorderProjection struct {
	DailyUsage    float64
	DaysRemaining float64
	StockoutDate  time.Time
}

// ProjectReorder estimates when item runs out at the heuristic usage rate.
func ProjectReorder(item models.InventoryItem, now time.Time) ReorderProjection {
	usage := item.ParLevel * DailyUsageParFraction
	days := NoUsageDaysRemaining
	if usage > 0 {
		days = item.CurrentStock / usage
	}
	return ReorderProjection{
		DailyUsage:    usage,
		DaysRemaining: days,
		StockoutDate:  stockoutDate(now, days),
	}
}

// maxProjectionDays bounds the whole-day part handed to AddDate.
const maxProjectionDays = math.MaxInt32

// stockoutDate adds days to now without overflowing time.Duration, which
// tops out near 292 years.
func stockoutDate(now time.Time, days float64) time.Time {
	whole, frac := math.Modf(math.Min(days, maxProjectionDays))
	return now.AddDate(0, 0, int(whole)).Add(time.Duration(frac * float64(24*time.Hour)))
}

// PredictReorder matches itemName case-insensitively.
func (t *Toolset) PredictReorder(ctx context.Context, itemName string) string {
	var item models.InventoryItem
	err := t.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", strings.TrimSpace(itemName)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Sprintf("Item '%s' not found in inventory.", itemName)
	}
	if err != nil {
		return fmt.Sprintf("Error querying inventory: %v", err)
	}

	p := ProjectReorder(item, t.now())
	return fmt.Sprintf("Based on estimated usage of %.1f %s/day:\n- Current Stock: %s %s\n- Days remaining: %.1f days\n- Estimated stockout: %s",
		p.DailyUsage, item.Unit,
		formatQty(item.CurrentStock), item.Unit,
		p.DaysRemaining,
		p.StockoutDate.Format("2006-01-02"))
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatMoney renders v as $1,234.50.
func formatMoney(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}
