// Package testutil holds helpers shared by repository tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/synaptica-ai/genomics/pkg/common/database"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB returns an isolated in-memory SQLite store migrated with models and
// closed when the test ends. A single connection keeps the in-memory database
// alive for the whole test.
func NewDB(t testing.TB, models ...interface{}) *gorm.DB {
	t.Helper()
	logger.Discard()

	db, err := database.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("failed to migrate test database: %v", err)
		}
	}
	return db
}
