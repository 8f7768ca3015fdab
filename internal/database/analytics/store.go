// Package analytics holds the column-store copy of POS transactions.
//
// The DuckDB table is a derived snapshot of the transactional store. It is
// rebuilt wholesale by Replace and read by the dashboard, variance and agent
// queries. The handle is opened once per process and shared; there is no
// locking around Replace, so readers must treat ErrNoSnapshot as "no data".
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sous-system/internal/database/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/marcboeker/go-duckdb"
)

const TransactionsTable = "pos_transactions"

var ErrNoSnapshot = errors.New("analytics snapshot has not been built yet")

const (
	createTransactionsSQL = `
CREATE OR REPLACE TABLE pos_transactions (
    id BIGINT,
    order_id VARCHAR,
    "timestamp" TIMESTAMP,
    item_id VARCHAR,
    item_name VARCHAR,
    price DOUBLE,
    quantity INTEGER
)`

	insertTransactionSQL = `
INSERT INTO pos_transactions (id, order_id, "timestamp", item_id, item_name, price, quantity)
VALUES (:id, :order_id, :timestamp, :item_id, :item_name, :price, :quantity)`
)

type ItemSales struct {
	ItemID    string `db:"item_id"`
	TotalSold int64  `db:"total_sold"`
}

type Totals struct {
	TotalSales        float64 `db:"total_sales"`
	TotalTransactions int64   `db:"total_transactions"`
}

type DailyRevenue struct {
	Day     time.Time `db:"day"`
	Revenue float64   `db:"revenue"`
}

type Store struct {
	db *sqlx.DB
}

// Open starts DuckDB at path. An empty path keeps the database in memory.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Replace drops and recreates the transactions table from rows. The whole
// rebuild runs in one DuckDB transaction so a failed rebuild leaves the
// previous snapshot in place.
func (s *Store) Replace(ctx context.Context, rows []models.POSTransaction) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin analytics rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createTransactionsSQL); err != nil {
		return fmt.Errorf("recreate %s: %w", TransactionsTable, err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, insertTransactionSQL)
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", TransactionsTable, err)
	}
	defer stmt.Close()

	for i := range rows {
		row := rows[i]
		row.Timestamp = row.Timestamp.UTC()
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("insert transaction %d: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit analytics rebuild: %w", err)
	}
	return nil
}

func (s *Store) HasSnapshot(ctx context.Context) (bool, error) {
	var n int64
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`, TransactionsTable)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) requireSnapshot(ctx context.Context) error {
	ok, err := s.HasSnapshot(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoSnapshot
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	if err := s.requireSnapshot(ctx); err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM pos_transactions`); err != nil {
		return 0, err
	}
	return n, nil
}

// SalesByItem sums sold quantity per POS item id.
func (s *Store) SalesByItem(ctx context.Context) ([]ItemSales, error) {
	if err := s.requireSnapshot(ctx); err != nil {
		return nil, err
	}
	var out []ItemSales
	err := s.db.SelectContext(ctx, &out, `
		SELECT item_id, CAST(SUM(quantity) AS BIGINT) AS total_sold
		FROM pos_transactions
		GROUP BY item_id
		ORDER BY item_id`)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	if err := s.requireSnapshot(ctx); err != nil {
		return t, err
	}
	err := s.db.GetContext(ctx, &t, `
		SELECT COALESCE(SUM(price), 0.0) AS total_sales, COUNT(*) AS total_transactions
		FROM pos_transactions`)
	return t, err
}

// TopSellingItem returns the item name with the most rows. Ties go to
// whichever group DuckDB returns first. ok is false when there are no rows.
func (s *Store) TopSellingItem(ctx context.Context) (name string, ok bool, err error) {
	if err := s.requireSnapshot(ctx); err != nil {
		return "", false, err
	}
	err = s.db.GetContext(ctx, &name, `
		SELECT item_name
		FROM pos_transactions
		GROUP BY item_name
		ORDER BY COUNT(*) DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

// DailyRevenueSince returns revenue per calendar day (UTC) for rows at or
// after since, most recent day first.
func (s *Store) DailyRevenueSince(ctx context.Context, since time.Time) ([]DailyRevenue, error) {
	if err := s.requireSnapshot(ctx); err != nil {
		return nil, err
	}
	var out []DailyRevenue
	err := s.db.SelectContext(ctx, &out, `
		SELECT CAST(date_trunc('day', "timestamp") AS DATE) AS day, SUM(price) AS revenue
		FROM pos_transactions
		WHERE "timestamp" >= ?
		GROUP BY 1
		ORDER BY 1 DESC`, since.UTC())
	if err != nil {
		return nil, err
	}
	return out, nil
}
