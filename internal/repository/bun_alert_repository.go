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

// BunAlertRepository implements AlertRepository using Bun ORM
type BunAlertRepository struct {
	db *bun.DB
}

// NewBunAlertRepository creates a new Bun-based alert repository
func NewBunAlertRepository(db *bun.DB) *BunAlertRepository {
	return &BunAlertRepository{db: db}
}

// Create inserts a new alert.
func (r *BunAlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	_, err := r.db.NewInsert().
		Model(alert).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by id.
func (r *BunAlertRepository) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	alert := new(models.Alert)
	err := r.db.NewSelect().
		Model(alert).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return alert, nil
}

// Acknowledge uses the state predicate as a compare-and-set so exactly one
// caller observes the OPEN -> ACKNOWLEDGED transition.
func (r *BunAlertRepository) Acknowledge(ctx context.Context, id, by string, at time.Time) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*models.Alert)(nil)).
		Set("state = ?", models.AlertAcknowledged).
		Set("acknowledged_at = ?", at.UTC()).
		Set("acknowledged_by = ?", by).
		Where("id = ?", id).
		Where("state = ?", models.AlertOpen).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acknowledge alert rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	// Distinguish "already acknowledged" from "no such alert".
	exists, err := r.db.NewSelect().
		Model((*models.Alert)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check alert exists: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return false, nil
}
