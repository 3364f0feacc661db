// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
)

// Open returns a migrated in-memory database that lives for the duration of the test.
// The pool is pinned to one connection because every SQLite :memory: connection is a
// separate database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := database.Config()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}
