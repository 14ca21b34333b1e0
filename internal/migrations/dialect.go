package migrations

import (
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// IsPostgreSQL reports whether db speaks the PostgreSQL dialect. SQLite cannot
// ALTER TABLE ... ADD CONSTRAINT, so constraints added after table creation
// are PostgreSQL-only.
func IsPostgreSQL(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.PG
}
