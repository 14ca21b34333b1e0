package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

// BunProfileRepository implements ProfileRepository using Bun ORM
type BunProfileRepository struct {
	db  *bun.DB
	now func() time.Time
}

// NewBunProfileRepository creates a new Bun-based staff profile repository
func NewBunProfileRepository(db *bun.DB) *BunProfileRepository {
	return &BunProfileRepository{db: db, now: time.Now}
}

// FindByPrincipalID returns (nil, nil) when the principal has no profile.
func (r *BunProfileRepository) FindByPrincipalID(ctx context.Context, principalID string) (*models.StaffProfile, error) {
	p := new(models.StaffProfile)
	err := r.db.NewSelect().
		Model(p).
		Where("principal_id = ?", principalID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get staff profile: %w", err)
	}
	return p, nil
}

// Upsert inserts the profile or replaces the mutable columns of an existing one.
func (r *BunProfileRepository) Upsert(ctx context.Context, p *models.StaffProfile) error {
	if !p.VerificationState.Valid() {
		return fmt.Errorf("invalid verification state %q", p.VerificationState)
	}

	now := r.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(p).
		On("CONFLICT (principal_id) DO UPDATE").
		Set("is_armed_specialist = EXCLUDED.is_armed_specialist").
		Set("verification_state = EXCLUDED.verification_state").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert staff profile: %w", err)
	}
	return nil
}
