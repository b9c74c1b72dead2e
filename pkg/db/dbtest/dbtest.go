// Package dbtest opens throwaway sqlite databases migrated with every model.
package dbtest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"

	"github.com/angelmondragon/farmmarket-backend/pkg/db"
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
)

// Open returns a client backed by a private in-memory sqlite database. The
// pool is pinned to one connection, so code that reaches for the root handle
// while a transaction is open blocks instead of silently seeing other state.
func Open(t *testing.T, name string) *db.Client {
	t.Helper()

	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if name == "" {
		name = "test"
	}
	dsn := "file:" + name + "_" + uuid.NewString() + "?mode=memory&cache=shared"

	conn, err := db.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db.NewFromConn(conn)
}
