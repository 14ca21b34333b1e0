package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
	"github.com/voip8pbx/ShieldHire-sub000/internal/repository"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
)

type memAlerts struct {
	mu        sync.Mutex
	alerts    map[string]*models.Alert
	createErr error
}

func newMemAlerts() *memAlerts {
	return &memAlerts{alerts: make(map[string]*models.Alert)}
}

func (m *memAlerts) Create(_ context.Context, a *models.Alert) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.alerts[a.ID] = &cp
	return nil
}

func (m *memAlerts) GetByID(_ context.Context, id string) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAlerts) Acknowledge(_ context.Context, id, by string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if a.State != models.AlertOpen {
		return false, nil
	}
	a.State = models.AlertAcknowledged
	a.AcknowledgedAt = &at
	a.AcknowledgedBy = &by
	return true, nil
}

func actor(id string, role models.Role) *identity.BoundPrincipal {
	return &identity.BoundPrincipal{Principal: &models.Principal{ID: id}, Role: role}
}

func floatPtr(f float64) *float64 { return &f }

func TestService_CreateStoresAndBroadcasts(t *testing.T) {
	repo := newMemAlerts()
	pub := &recordingPublisher{name: "rec"}
	svc := NewService(repo, pub, quietLogger())
	svc.newID = func() string { return "alert-1" }

	a, err := svc.Create(context.Background(), actor("p-1", models.RoleUser), CreateInput{
		Message:   "  fight at the bar  ",
		Latitude:  floatPtr(51.5),
		Longitude: floatPtr(-0.12),
	})
	require.NoError(t, err)

	assert.Equal(t, "alert-1", a.ID)
	assert.Equal(t, "p-1", a.PrincipalID)
	assert.Equal(t, "fight at the bar", a.Message)
	assert.Equal(t, models.AlertOpen, a.State)

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventCreated, events[0].Type)
	assert.Equal(t, "p-1", events[0].PrincipalID)
}

func TestService_CreateSurvivesBroadcastFailure(t *testing.T) {
	repo := newMemAlerts()
	pub := &recordingPublisher{name: "rec", err: errors.New("redis down")}
	svc := NewService(repo, pub, quietLogger())

	a, err := svc.Create(context.Background(), actor("p-1", models.RoleUser), CreateInput{Message: "help"})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "help", stored.Message)
}

func TestService_CreateValidation(t *testing.T) {
	svc := NewService(newMemAlerts(), nil, quietLogger())
	tests := []struct {
		name string
		in   CreateInput
	}{
		{"empty message", CreateInput{Message: "   "}},
		{"latitude without longitude", CreateInput{Message: "x", Latitude: floatPtr(10)}},
		{"latitude out of range", CreateInput{Message: "x", Latitude: floatPtr(91), Longitude: floatPtr(0)}},
		{"longitude out of range", CreateInput{Message: "x", Latitude: floatPtr(0), Longitude: floatPtr(-181)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), actor("p-1", models.RoleUser), tt.in)
			assert.ErrorIs(t, err, ErrInvalidAlert)
		})
	}
}

func TestService_CreateStorageFailure(t *testing.T) {
	repo := newMemAlerts()
	repo.createErr = errors.New("disk full")
	pub := &recordingPublisher{name: "rec"}
	svc := NewService(repo, pub, quietLogger())

	_, err := svc.Create(context.Background(), actor("p-1", models.RoleUser), CreateInput{Message: "help"})
	assert.Error(t, err)
	assert.Empty(t, pub.Events(), "nothing is broadcast for an unstored alert")
}

func TestService_AcknowledgeExactlyOnce(t *testing.T) {
	repo := newMemAlerts()
	pub := &recordingPublisher{name: "rec"}
	svc := NewService(repo, pub, quietLogger())

	a, err := svc.Create(context.Background(), actor("p-1", models.RoleUser), CreateInput{Message: "help"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	transitions := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, transitioned, err := svc.Acknowledge(context.Background(), a.ID, actor("admin-1", models.RoleAdmin))
			if assert.NoError(t, err) {
				assert.Equal(t, models.AlertAcknowledged, got.State)
			}
			if transitioned {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, transitions)

	acks := 0
	for _, ev := range pub.Events() {
		if ev.Type == EventAcknowledged {
			acks++
			assert.Equal(t, "admin-1", ev.AcknowledgedBy)
		}
	}
	assert.Equal(t, 1, acks)
}

func TestService_NotFound(t *testing.T) {
	svc := NewService(newMemAlerts(), nil, quietLogger())

	_, _, err := svc.Acknowledge(context.Background(), "missing", actor("admin", models.RoleAdmin))
	assert.ErrorIs(t, err, ErrAlertNotFound)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAlertNotFound)
}
