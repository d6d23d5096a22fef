package account

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type mockRepo struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*User
	clinics map[uuid.UUID][]ClinicMembership
	centers map[uuid.UUID][]CenterMembership

	findErr     error
	createErr   error
	tokenCalls  int
	clearCalls  int
	clearErr    error
	clinicAccts []*ClinicAccount
	centerAccts []*CenterAccount
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users:   make(map[uuid.UUID]*User),
		clinics: make(map[uuid.UUID][]ClinicMembership),
		centers: make(map[uuid.UUID][]CenterMembership),
	}
}

func (m *mockRepo) hydrate(u *User) *AppUser {
	au := newAppUser(u)
	au.ClinicMemberships = append(au.ClinicMemberships, m.clinics[u.ID]...)
	au.CenterMemberships = append(au.CenterMemberships, m.centers[u.ID]...)
	return au
}

func (m *mockRepo) FindBySessionToken(_ context.Context, token string) (*AppUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.SessionToken != nil && *u.SessionToken == token {
			return m.hydrate(u), nil
		}
	}
	return nil, nil
}

func (m *mockRepo) FindByID(_ context.Context, id uuid.UUID) (*AppUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.hydrate(u), nil
}

func (m *mockRepo) FindByPhone(_ context.Context, phone string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.PhoneNumber == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) RotateSessionToken(_ context.Context, userID uuid.UUID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.SessionToken = &token
	return nil
}

func (m *mockRepo) ClearSessionToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	if m.clearErr != nil {
		return m.clearErr
	}
	for _, u := range m.users {
		if u.SessionToken != nil && *u.SessionToken == token {
			u.SessionToken = nil
		}
	}
	return nil
}

func (m *mockRepo) insert(u *User) error {
	for _, existing := range m.users {
		if existing.PhoneNumber == u.PhoneNumber {
			return ErrPhoneTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	return m.insert(u)
}

func (m *mockRepo) CreateClinicAccount(_ context.Context, a *ClinicAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if err := m.insert(a.Owner); err != nil {
		return err
	}
	a.Clinic.ID = uuid.New()
	m.clinics[a.Owner.ID] = append(m.clinics[a.Owner.ID], ClinicMembership{
		ID:     uuid.New(),
		Role:   ClinicRoleOwner,
		Clinic: Facility{ID: a.Clinic.ID, Name: a.Clinic.Name, Status: a.Clinic.Status},
	})
	m.clinicAccts = append(m.clinicAccts, a)
	return nil
}

func (m *mockRepo) CreateCenterAccount(_ context.Context, a *CenterAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if err := m.insert(a.Owner); err != nil {
		return err
	}
	a.Center.ID = uuid.New()
	for _, d := range a.Doctors {
		if err := m.insert(d); err != nil {
			return err
		}
	}
	m.centerAccts = append(m.centerAccts, a)
	return nil
}
