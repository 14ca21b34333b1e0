package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
	"github.com/voip8pbx/ShieldHire-sub000/internal/repository"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeVerifier returns a fixed outcome and counts calls.
type fakeVerifier struct {
	source  Source
	outcome Outcome
	calls   atomic.Int32
	verify  func(ctx context.Context, credential string) Outcome
}

func (f *fakeVerifier) Source() Source { return f.source }

func (f *fakeVerifier) Verify(ctx context.Context, credential string) Outcome {
	f.calls.Add(1)
	if f.verify != nil {
		return f.verify(ctx, credential)
	}
	return f.outcome
}

// claimVerifier maps credentials straight to claims, for resolver tests.
type claimVerifier map[string]VerifiedClaim

func (c claimVerifier) Verify(_ context.Context, credential string) (VerifiedClaim, error) {
	claim, ok := c[credential]
	if !ok {
		return VerifiedClaim{}, ErrInvalidCredential
	}
	return claim, nil
}

// memPrincipals is an in-memory PrincipalRepository with the same
// conditional-insert semantics as the SQL implementation.
type memPrincipals struct {
	mu      sync.Mutex
	byID    map[string]*models.Principal
	byEmail map[string]string

	// missBarrier, when set, holds the first missBarrierN lookups that miss
	// until all of them have missed, forcing a first-login race.
	missBarrier  *sync.WaitGroup
	missBarrierN int32
	misses       atomic.Int32

	lookupErr  error
	insertErr  error
	slotErr    error
	roleErr    error
	inserts    atomic.Int32
	roleWrites atomic.Int32
}

func newMemPrincipals() *memPrincipals {
	return &memPrincipals{
		byID:    make(map[string]*models.Principal),
		byEmail: make(map[string]string),
	}
}

func (m *memPrincipals) seed(p *models.Principal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.byID[p.ID] = &cp
	m.byEmail[p.Email] = p.ID
}

func (m *memPrincipals) get(id string) *models.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (m *memPrincipals) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memPrincipals) GetByID(_ context.Context, id string) (*models.Principal, error) {
	if p := m.get(id); p != nil {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memPrincipals) GetByEmail(_ context.Context, email string) (*models.Principal, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	m.mu.Lock()
	id, ok := m.byEmail[email]
	m.mu.Unlock()
	if ok {
		return m.get(id), nil
	}

	if m.missBarrier != nil && m.misses.Add(1) <= m.missBarrierN {
		m.missBarrier.Done()
		m.missBarrier.Wait()
	}
	return nil, fmt.Errorf("email %s: %w", email, repository.ErrNotFound)
}

func (m *memPrincipals) InsertIfAbsent(_ context.Context, p *models.Principal) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[p.Email]; ok {
		return repository.ErrEmailTaken
	}
	cp := *p
	m.byID[p.ID] = &cp
	m.byEmail[p.Email] = p.ID
	m.inserts.Add(1)
	return nil
}

func (m *memPrincipals) SetLinkSlot(_ context.Context, id string, slot models.LinkSlot, subject string) (bool, error) {
	if m.slotErr != nil {
		return false, m.slotErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if p.Slot(slot) != "" {
		return false, nil
	}
	p.SetSlot(slot, subject)
	return true, nil
}

func (m *memPrincipals) UpdateRole(_ context.Context, id string, role models.Role) error {
	if m.roleErr != nil {
		return m.roleErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Role = role
	m.roleWrites.Add(1)
	return nil
}

func (m *memPrincipals) SetPasswordHash(_ context.Context, id string, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.PasswordHash = &hash
	return nil
}

type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]*models.StaffProfile
	err      error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: make(map[string]*models.StaffProfile)}
}

func (m *memProfiles) FindByPrincipalID(_ context.Context, principalID string) (*models.StaffProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[principalID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memProfiles) Upsert(_ context.Context, p *models.StaffProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.PrincipalID] = &cp
	return nil
}

var errStorageDown = errors.New("connection refused")
