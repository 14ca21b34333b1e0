package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20261001000000, down_20261001000000)
}

// up_20261001000000 creates principals and staff_profiles.
func up_20261001000000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating principals table...")
	if _, err := db.NewCreateTable().
		Model((*models.Principal)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create principals table: %w", err)
	}

	if IsPostgreSQL(db) {
		if _, err := db.ExecContext(ctx, `
			ALTER TABLE principals
			ADD CONSTRAINT principals_role_check
			CHECK (role IN ('USER', 'BOUNCER', 'GUNMAN', 'ADMIN'))
		`); err != nil {
			return fmt.Errorf("failed to add principals role check: %w", err)
		}
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating staff_profiles table...")
	if _, err := db.NewCreateTable().
		Model((*models.StaffProfile)(nil)).
		IfNotExists().
		ForeignKey(`("principal_id") REFERENCES "principals" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create staff_profiles table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20261001000000 drops staff_profiles and principals.
func down_20261001000000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping staff_profiles table...")
	if _, err := db.NewDropTable().
		Model((*models.StaffProfile)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop staff_profiles table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [down] dropping principals table...")
	if _, err := db.NewDropTable().
		Model((*models.Principal)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop principals table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}
