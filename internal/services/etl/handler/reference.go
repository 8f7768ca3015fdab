package handler

import (
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sous-system/internal/database/models"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

var ErrSeedDataNotFound = errors.New("inventory seed data not found")

var inventoryColumns = []string{"name", "unit", "current_stock", "par_level", "supplier", "cost_per_unit"}

//go:embed recipes.yaml
var recipesYAML []byte

type InventorySeedResult struct {
	Inserted      int
	AlreadySeeded bool
}

// SkippedReference is a recipe ingredient whose name matched no inventory item.
type SkippedReference struct {
	PosItemID         string
	InventoryItemName string
}

type RecipeSeedResult struct {
	Inserted      int
	Skipped       []SkippedReference
	AlreadySeeded bool
}

type recipeBook struct {
	Recipes []recipe `yaml:"recipes"`
}

type recipe struct {
	PosItemID   string       `yaml:"pos_item_id"`
	Ingredients []ingredient `yaml:"ingredients"`
}

type ingredient struct {
	Name     string  `yaml:"name"`
	Quantity float64 `yaml:"quantity"`
}

func loadRecipeBook() (recipeBook, error) {
	var book recipeBook
	if err := yaml.Unmarshal(recipesYAML, &book); err != nil {
		return book, fmt.Errorf("parse recipe table: %w", err)
	}
	return book, nil
}

// LoadInventory inserts one item per record in path, only when the inventory
// table is empty. The file is not read at all once the table has rows.
func (s *ETLHandler) LoadInventory(ctx context.Context, path string) (InventorySeedResult, error) {
	var result InventorySeedResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.InventoryItem{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			result.AlreadySeeded = true
			return nil
		}

		items, err := readInventoryFile(path)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}

		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("insert inventory items: %w", err)
		}
		result.Inserted = len(items)
		return nil
	})

	return result, err
}

// SeedRecipes inserts the fixed recipe table when no mappings exist yet.
// Ingredients that do not resolve to an inventory item are skipped and
// reported in the result.
func (s *ETLHandler) SeedRecipes(ctx context.Context) (RecipeSeedResult, error) {
	var result RecipeSeedResult

	book, err := loadRecipeBook()
	if err != nil {
		return result, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.RecipeMapping{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			result.AlreadySeeded = true
			return nil
		}

		var items []models.InventoryItem
		if err := tx.Select("id", "name").Find(&items).Error; err != nil {
			return err
		}
		idByName := make(map[string]int64, len(items))
		for _, item := range items {
			idByName[item.Name] = item.ID
		}

		var mappings []models.RecipeMapping
		for _, r := range book.Recipes {
			for _, ing := range r.Ingredients {
				id, ok := idByName[ing.Name]
				if !ok {
					result.Skipped = append(result.Skipped, SkippedReference{
						PosItemID:         r.PosItemID,
						InventoryItemName: ing.Name,
					})
					continue
				}
				mappings = append(mappings, models.RecipeMapping{
					PosItemID:        r.PosItemID,
					InventoryItemID:  id,
					QuantityRequired: ing.Quantity,
				})
			}
		}

		if len(mappings) == 0 {
			return nil
		}
		if err := tx.Create(&mappings).Error; err != nil {
			return fmt.Errorf("insert recipe mappings: %w", err)
		}
		result.Inserted = len(mappings)
		return nil
	})

	return result, err
}

func readInventoryFile(path string) ([]models.InventoryItem, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSeedDataNotFound, path)
		}
		return nil, err
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSXRows(path)
	default:
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseInventoryRows(rows)
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// parseInventoryRows expects a header row naming inventoryColumns in any order.
func parseInventoryRows(rows [][]string) ([]models.InventoryItem, error) {
	if len(rows) == 0 {
		return nil, errors.New("inventory data has no header row")
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range inventoryColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("inventory data is missing column %q", col)
		}
	}

	items := make([]models.InventoryItem, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		field := func(col string) string {
			i := index[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if isBlankRow(row) {
			continue
		}

		name := field("name")
		if name == "" {
			return nil, fmt.Errorf("row %d: name is required", line)
		}

		nums := make(map[string]float64, 3)
		for _, col := range []string{"current_stock", "par_level", "cost_per_unit"} {
			v, err := strconv.ParseFloat(field(col), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid %s %q: %w", line, col, field(col), err)
			}
			if v < 0 {
				return nil, fmt.Errorf("row %d: %s must not be negative", line, col)
			}
			nums[col] = v
		}

		items = append(items, models.InventoryItem{
			Name:         name,
			Unit:         field("unit"),
			CurrentStock: nums["current_stock"],
			ParLevel:     nums["par_level"],
			Supplier:     field("supplier"),
			CostPerUnit:  nums["cost_per_unit"],
		})
	}
	return items, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
