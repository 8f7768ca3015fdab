// Package dbtest opens throwaway stores for package tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"sous-system/config"
	"sous-system/internal/database"
	"sous-system/internal/database/analytics"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var seq atomic.Int64

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := database.NewConnection(config.DBConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.MigrateSousDB(db))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// NewAnalytics returns an in-memory DuckDB store private to t.
func NewAnalytics(t testing.TB) *analytics.Store {
	t.Helper()
	store, err := analytics.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
