package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/bunx"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
	"github.com/voip8pbx/ShieldHire-sub000/internal/migrations"
)

// setupTestDB returns a migrated database. It uses SHIELD_TEST_DATABASE_URL
// when set (e.g. a disposable PostgreSQL) and an in-memory SQLite otherwise.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := os.Getenv("SHIELD_TEST_DATABASE_URL")
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := bunx.NewDB(dsn)
	if err != nil {
		t.Skipf("database not available: %v", err)
	}
	t.Cleanup(func() { _ = bunx.Close(db) })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	if dsn != ":memory:" {
		t.Cleanup(func() { cleanupTestData(t, db) })
	}
	return db
}

func cleanupTestData(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx := context.Background()
	for _, table := range []string{"alerts", "staff_profiles", "principals"} {
		if _, err := db.NewDelete().TableExpr(table).Where("1 = 1").Exec(ctx); err != nil {
			t.Logf("cleanup %s: %v", table, err)
		}
	}
}

func newTestPrincipal(email string) *models.Principal {
	return &models.Principal{
		ID:          bunx.NewUUIDv7(),
		Email:       email,
		DisplayName: "Test Principal",
		Role:        models.RoleUser,
	}
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
