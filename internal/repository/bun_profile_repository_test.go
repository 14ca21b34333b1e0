package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

func TestBunProfileRepository_FindAndUpsert(t *testing.T) {
	db := setupTestDB(t)
	principals := NewBunPrincipalRepository(db)
	profiles := NewBunProfileRepository(db)
	ctx := context.Background()

	p := newTestPrincipal("staff@example.com")
	require.NoError(t, principals.InsertIfAbsent(ctx, p))

	t.Run("absent profile is nil without error", func(t *testing.T) {
		got, err := profiles.FindByPrincipalID(ctx, p.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	require.NoError(t, profiles.Upsert(ctx, &models.StaffProfile{
		PrincipalID:       p.ID,
		IsArmedSpecialist: false,
		VerificationState: models.VerificationPending,
	}))

	t.Run("created", func(t *testing.T) {
		got, err := profiles.FindByPrincipalID(ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.False(t, got.IsArmedSpecialist)
		assert.Equal(t, models.VerificationPending, got.VerificationState)
	})

	t.Run("upsert replaces mutable fields", func(t *testing.T) {
		require.NoError(t, profiles.Upsert(ctx, &models.StaffProfile{
			PrincipalID:       p.ID,
			IsArmedSpecialist: true,
			VerificationState: models.VerificationApproved,
		}))

		got, err := profiles.FindByPrincipalID(ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.IsArmedSpecialist)
		assert.Equal(t, models.VerificationApproved, got.VerificationState)

		count, err := db.NewSelect().Model((*models.StaffProfile)(nil)).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("invalid state rejected", func(t *testing.T) {
		err := profiles.Upsert(ctx, &models.StaffProfile{
			PrincipalID:       p.ID,
			VerificationState: models.VerificationState("MAYBE"),
		})
		assert.Error(t, err)
	})
}
