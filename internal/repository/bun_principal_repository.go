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

// BunPrincipalRepository implements PrincipalRepository using Bun ORM
type BunPrincipalRepository struct {
	db  *bun.DB
	now func() time.Time
}

// NewBunPrincipalRepository creates a new Bun-based principal repository
func NewBunPrincipalRepository(db *bun.DB) *BunPrincipalRepository {
	return &BunPrincipalRepository{db: db, now: time.Now}
}

// GetByID retrieves a principal by id.
func (r *BunPrincipalRepository) GetByID(ctx context.Context, id string) (*models.Principal, error) {
	p := new(models.Principal)
	err := r.db.NewSelect().
		Model(p).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("principal %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get principal by id: %w", err)
	}
	return p, nil
}

// GetByEmail retrieves a principal by normalized email.
func (r *BunPrincipalRepository) GetByEmail(ctx context.Context, email string) (*models.Principal, error) {
	p := new(models.Principal)
	err := r.db.NewSelect().
		Model(p).
		Where("email = ?", email).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("principal with email %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("get principal by email: %w", err)
	}
	return p, nil
}

// InsertIfAbsent relies on the unique email index: a concurrent insert for
// the same email makes this statement a no-op, detected via RowsAffected.
func (r *BunPrincipalRepository) InsertIfAbsent(ctx context.Context, p *models.Principal) error {
	now := r.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	res, err := r.db.NewInsert().
		Model(p).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert principal: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert principal rows affected: %w", err)
	}
	if rows == 0 {
		return ErrEmailTaken
	}
	return nil
}

// SetLinkSlot backfills a provider link slot only while it is still NULL.
func (r *BunPrincipalRepository) SetLinkSlot(ctx context.Context, id string, slot models.LinkSlot, subject string) (bool, error) {
	if !slot.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidLinkSlot, slot)
	}

	res, err := r.db.NewUpdate().
		Model((*models.Principal)(nil)).
		Set("? = ?", bun.Ident(string(slot)), subject).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Where("? IS NULL", bun.Ident(string(slot))).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("set %s: %w", slot, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set %s rows affected: %w", slot, err)
	}
	return rows > 0, nil
}

// UpdateRole overwrites the stored role.
func (r *BunPrincipalRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	res, err := r.db.NewUpdate().
		Model((*models.Principal)(nil)).
		Set("role = ?", role).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update principal role: %w", err)
	}
	return expectOneRow(res, "principal", id)
}

// SetPasswordHash stores a bcrypt hash for the password login path.
func (r *BunPrincipalRepository) SetPasswordHash(ctx context.Context, id string, hash string) error {
	res, err := r.db.NewUpdate().
		Model((*models.Principal)(nil)).
		Set("password_hash = ?", hash).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set principal password: %w", err)
	}
	return expectOneRow(res, "principal", id)
}

func expectOneRow(res sql.Result, kind, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
