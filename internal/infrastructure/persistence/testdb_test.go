package persistence

import (
	"testing"

	applogger "github.com/agency/backoffice/internal/infrastructure/logger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB returns a migrated in-memory sqlite database. The pool is
// limited to one connection since every sqlite memory connection is a
// separate database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(sqlite.Open(":memory:"), zap.NewNop(), applogger.GormLoggerConfig{Level: logger.Silent})
	require.NoError(t, err)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate())
	return db.DB
}
