package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/bunx"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

func TestBunAlertRepository_AcknowledgeOnce(t *testing.T) {
	db := setupTestDB(t)
	principals := NewBunPrincipalRepository(db)
	alerts := NewBunAlertRepository(db)
	ctx := context.Background()

	actor := newTestPrincipal("guard@example.com")
	require.NoError(t, principals.InsertIfAbsent(ctx, actor))
	admin := newTestPrincipal("admin@example.com")
	require.NoError(t, principals.InsertIfAbsent(ctx, admin))

	alert := &models.Alert{
		ID:          bunx.NewUUIDv7(),
		PrincipalID: actor.ID,
		Message:     "fight at door 2",
		State:       models.AlertOpen,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, alerts.Create(ctx, alert))

	var transitions int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := alerts.Acknowledge(ctx, alert.ID, admin.ID, time.Now())
			if err != nil {
				t.Errorf("acknowledge: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&transitions, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), transitions)

	got, err := alerts.GetByID(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertAcknowledged, got.State)
	require.NotNil(t, got.AcknowledgedBy)
	assert.Equal(t, admin.ID, *got.AcknowledgedBy)
	assert.NotNil(t, got.AcknowledgedAt)

	t.Run("unknown alert", func(t *testing.T) {
		_, err := alerts.Acknowledge(ctx, bunx.NewUUIDv7(), admin.ID, time.Now())
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = alerts.GetByID(ctx, bunx.NewUUIDv7())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
