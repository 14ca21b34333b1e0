package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20261001000001, down_20261001000001)
}

// up_20261001000001 creates the emergency alerts table.
func up_20261001000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating alerts table...")

	if _, err := db.NewCreateTable().
		Model((*models.Alert)(nil)).
		IfNotExists().
		ForeignKey(`("principal_id") REFERENCES "principals" ("id")`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create alerts table: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_alerts_open ON alerts(created_at) WHERE state = 'OPEN'
	`); err != nil {
		return fmt.Errorf("failed to create alerts open index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20261001000001 drops the alerts table.
func down_20261001000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping alerts table...")

	if _, err := db.NewDropTable().
		Model((*models.Alert)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop alerts table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}
