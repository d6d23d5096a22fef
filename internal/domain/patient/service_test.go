package patient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
)

// mockRepo evaluates predicates in memory the way the SQL does.
type mockRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*Patient
	order    []uuid.UUID
	grants   map[[2]uuid.UUID]*Access
	err      error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients: make(map[uuid.UUID]*Patient),
		grants:   make(map[[2]uuid.UUID]*Access),
	}
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (m *mockRepo) Search(_ context.Context, p Predicate) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Summary{}
	if p.None() {
		return out, nil
	}
	if m.err != nil {
		return nil, m.err
	}
	for i := len(m.order) - 1; i >= 0 && len(out) < SearchLimit; i-- {
		pt := m.patients[m.order[i]]
		if !strings.Contains(pt.PhoneNumber, p.Phone) {
			continue
		}
		visible := false
		for _, c := range pt.ClinicIDs {
			visible = visible || contains(p.ClinicIDs, c)
		}
		for _, c := range pt.CenterIDs {
			visible = visible || contains(p.CenterIDs, c)
		}
		if _, ok := m.grants[[2]uuid.UUID{p.GrantDoctorID, pt.ID}]; ok {
			visible = true
		}
		if visible {
			out = append(out, Summary{ID: pt.ID, FullnameEn: pt.FullnameEn, FullnameAr: pt.FullnameAr, PhoneNumber: pt.PhoneNumber})
		}
	}
	return out, nil
}

func (m *mockRepo) CreateLinked(_ context.Context, p *Patient, t LinkTargets) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	p.ID = uuid.New()
	p.ClinicIDs = append([]uuid.UUID{}, t.ClinicIDs...)
	p.CenterIDs = append([]uuid.UUID{}, t.CenterIDs...)
	m.patients[p.ID] = p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) CanManage(_ context.Context, patientID uuid.UUID, t LinkTargets) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[patientID]
	if !ok {
		return false, nil
	}
	for _, c := range p.ClinicIDs {
		if contains(t.ClinicIDs, c) {
			return true, nil
		}
	}
	for _, c := range p.CenterIDs {
		if contains(t.CenterIDs, c) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) CanView(ctx context.Context, patientID uuid.UUID, t LinkTargets, doctorID uuid.UUID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if ok, _ := m.CanManage(ctx, patientID, t); ok {
		return true, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.grants[[2]uuid.UUID{doctorID, patientID}]
	return ok, nil
}

func (m *mockRepo) GrantAccess(_ context.Context, a *Access) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uuid.UUID{a.DoctorID, a.PatientID}
	if existing, ok := m.grants[key]; ok {
		*a = *existing
		return nil
	}
	a.ID = uuid.New()
	cp := *a
	m.grants[key] = &cp
	return nil
}

func (m *mockRepo) RevokeAccess(_ context.Context, patientID, doctorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uuid.UUID{doctorID, patientID}
	if _, ok := m.grants[key]; !ok {
		return ErrGrantNotFound
	}
	delete(m.grants, key)
	return nil
}

func (m *mockRepo) ListAccess(_ context.Context, patientID uuid.UUID) ([]Access, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Access{}
	for _, a := range m.grants {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func createReq(phone string) *CreateRequest {
	return &CreateRequest{Fullname: "Ali Hassan", FullnameAr: "علي حسن", Phone: phone}
}

func TestService_Create_LinksAllFullAccessFacilities(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	c1, c2, m1 := uuid.New(), uuid.New(), uuid.New()
	u := newUser(
		[]account.ClinicMembership{clinicAt(c1, account.ClinicRoleOwner), clinicAt(c2, account.ClinicRoleDoctorEmployee)},
		[]account.CenterMembership{centerAt(m1, account.CenterRoleDoctor)},
	)

	p, err := svc.Create(context.Background(), u, createReq("079 123 4567"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.ClinicIDs) != 2 || len(p.CenterIDs) != 1 {
		t.Errorf("expected links to every full-access facility, got %+v", p)
	}
	if p.PhoneNumber != "0791234567" {
		t.Errorf("expected sanitized phone, got %q", p.PhoneNumber)
	}
	if p.CreatedByID == nil || *p.CreatedByID != u.ID {
		t.Error("expected creator to be recorded")
	}
}

func TestService_Create_NoFacility(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	visitor := newUser([]account.ClinicMembership{clinicAt(uuid.New(), account.ClinicRoleVisitingDoctor)}, nil)

	_, err := svc.Create(context.Background(), visitor, createReq("0791234567"))
	if !errors.Is(err, ErrNoFacilityAccess) {
		t.Fatalf("expected ErrNoFacilityAccess, got %v", err)
	}
	if len(repo.patients) != 0 {
		t.Error("expected nothing written")
	}
}

// Users see exactly the patients of their full-access facilities plus their
// grants, never a patient from another clinic.
func TestService_Search_ScopingBoundary(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	clinicA, clinicB := uuid.New(), uuid.New()
	ownerA := newUser([]account.ClinicMembership{clinicAt(clinicA, account.ClinicRoleOwner)}, nil)
	ownerB := newUser([]account.ClinicMembership{clinicAt(clinicB, account.ClinicRoleOwner)}, nil)
	visitor := newUser([]account.ClinicMembership{clinicAt(clinicA, account.ClinicRoleVisitingDoctor)}, nil)
	assistant := newUser([]account.ClinicMembership{clinicAt(clinicA, account.ClinicRoleAssistant)}, nil)

	pa, _ := svc.Create(ctx, ownerA, createReq("0791000001"))
	pb, _ := svc.Create(ctx, ownerB, createReq("0791000002"))

	got, _ := svc.Search(ctx, ownerA, "0791")
	if len(got) != 1 || got[0].ID != pa.ID {
		t.Errorf("owner A should see only patient A, got %+v", got)
	}

	if got, _ := svc.Search(ctx, visitor, "0791"); len(got) != 0 {
		t.Errorf("visitor without grants should see nothing, got %+v", got)
	}
	if got, _ := svc.Search(ctx, assistant, "0791"); len(got) != 0 {
		t.Errorf("assistant has no full access, got %+v", got)
	}

	if _, err := svc.Grant(ctx, ownerB, pb.ID, visitor.ID); err != nil {
		t.Fatalf("grant: %v", err)
	}
	got, _ = svc.Search(ctx, visitor, "0791")
	if len(got) != 1 || got[0].ID != pb.ID {
		t.Errorf("visitor should see only the granted patient, got %+v", got)
	}
}

func TestService_Search_MultiFacilityUnion(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	clinic, center := uuid.New(), uuid.New()
	clinicOwner := newUser([]account.ClinicMembership{clinicAt(clinic, account.ClinicRoleOwner)}, nil)
	centerOwner := newUser(nil, []account.CenterMembership{centerAt(center, account.CenterRoleOwner)})
	both := newUser(
		[]account.ClinicMembership{clinicAt(clinic, account.ClinicRoleDoctorEmployee)},
		[]account.CenterMembership{centerAt(center, account.CenterRoleDoctor)},
	)

	_, _ = svc.Create(ctx, clinicOwner, createReq("0792000001"))
	_, _ = svc.Create(ctx, centerOwner, createReq("0792000002"))

	got, err := svc.Search(ctx, both, "0792")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected the union of both facilities, got %d", len(got))
	}
	if got[0].PhoneNumber != "0792000002" {
		t.Errorf("expected newest first, got %+v", got)
	}
}

func TestService_Grant_RequiresFacilityAccess(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	clinic := uuid.New()
	owner := newUser([]account.ClinicMembership{clinicAt(clinic, account.ClinicRoleOwner)}, nil)
	visitor := newUser(nil, nil)
	other := newUser(nil, nil)

	p, _ := svc.Create(ctx, owner, createReq("0793000001"))
	if _, err := svc.Grant(ctx, owner, p.ID, visitor.ID); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if _, err := svc.Grant(ctx, visitor, p.ID, other.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("a grant must not allow re-granting, got %v", err)
	}
	if err := svc.Revoke(ctx, visitor, p.ID, visitor.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("a grant must not allow revoking, got %v", err)
	}

	first, _ := svc.Grant(ctx, owner, p.ID, visitor.ID)
	second, _ := svc.Grant(ctx, owner, p.ID, visitor.ID)
	if first.ID != second.ID {
		t.Error("expected repeated grants to be idempotent")
	}

	if err := svc.Revoke(ctx, owner, p.ID, visitor.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got, _ := svc.Search(ctx, visitor, "0793"); len(got) != 0 {
		t.Errorf("expected revoked grant to hide the patient, got %+v", got)
	}
}

func TestService_Get_Visibility(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	clinicA, clinicB := uuid.New(), uuid.New()
	ownerA := newUser([]account.ClinicMembership{clinicAt(clinicA, account.ClinicRoleOwner)}, nil)
	ownerB := newUser([]account.ClinicMembership{clinicAt(clinicB, account.ClinicRoleOwner)}, nil)
	visitor := newUser([]account.ClinicMembership{clinicAt(clinicA, account.ClinicRoleVisitingDoctor)}, nil)

	p, _ := svc.Create(ctx, ownerA, createReq("0795000001"))

	got, err := svc.Get(ctx, ownerA, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID || len(got.ClinicIDs) != 1 || got.ClinicIDs[0] != clinicA {
		t.Errorf("unexpected patient %+v", got)
	}

	if _, err := svc.Get(ctx, ownerB, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("another clinic must not see the patient, got %v", err)
	}
	if _, err := svc.Get(ctx, visitor, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("a visiting doctor without a grant must not see the patient, got %v", err)
	}

	if _, err := svc.Grant(ctx, ownerA, p.ID, visitor.ID); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := svc.Get(ctx, visitor, p.ID); err != nil {
		t.Errorf("expected a grant to expose the patient, got %v", err)
	}
	if _, err := svc.Get(ctx, ownerA, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for an unknown id, got %v", err)
	}
}

func TestService_Get_StoreFailure(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("connection reset")
	svc := NewService(repo)

	_, err := svc.Get(context.Background(), newUser(nil, nil), uuid.New())
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a store error, got %v", err)
	}
}
