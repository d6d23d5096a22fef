package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
	"github.com/clinicdesk/clinicdesk/pkg/phone"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search returns the patients u may see whose phone number contains query.
func (s *Service) Search(ctx context.Context, u *account.AppUser, query string) ([]Summary, error) {
	return s.repo.Search(ctx, BuildSearchPredicate(u, query))
}

// Create registers a patient in every full-access facility of u. Users
// without one get ErrNoFacilityAccess and nothing is written.
func (s *Service) Create(ctx context.Context, u *account.AppUser, req *CreateRequest) (*Patient, error) {
	targets := ResolveLinkTargets(u)
	if targets.Empty() {
		return nil, ErrNoFacilityAccess
	}

	creator := u.ID
	p := &Patient{
		FullnameEn:  strings.TrimSpace(req.Fullname),
		FullnameAr:  strings.TrimSpace(req.FullnameAr),
		PhoneNumber: phone.Sanitize(req.Phone),
		CreatedByID: &creator,
	}
	if err := s.repo.CreateLinked(ctx, p, targets); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return p, nil
}

// Get returns a patient u can see: one linked to a full-access facility of
// u or granted to u. Any other patient reads as ErrNotFound.
func (s *Service) Get(ctx context.Context, u *account.AppUser, id uuid.UUID) (*Patient, error) {
	ok, err := s.repo.CanView(ctx, id, ResolveLinkTargets(u), u.ID)
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// authorize checks that u reaches patientID through a full-access facility.
// Grants alone never authorize managing other grants.
func (s *Service) authorize(ctx context.Context, u *account.AppUser, patientID uuid.UUID) error {
	ok, err := s.repo.CanManage(ctx, patientID, ResolveLinkTargets(u))
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *Service) Grant(ctx context.Context, u *account.AppUser, patientID, doctorID uuid.UUID) (*Access, error) {
	if err := s.authorize(ctx, u, patientID); err != nil {
		return nil, err
	}
	granter := u.ID
	a := &Access{DoctorID: doctorID, PatientID: patientID, GrantedByID: &granter}
	if err := s.repo.GrantAccess(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Revoke(ctx context.Context, u *account.AppUser, patientID, doctorID uuid.UUID) error {
	if err := s.authorize(ctx, u, patientID); err != nil {
		return err
	}
	return s.repo.RevokeAccess(ctx, patientID, doctorID)
}

func (s *Service) ListAccess(ctx context.Context, u *account.AppUser, patientID uuid.UUID) ([]Access, error) {
	if err := s.authorize(ctx, u, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListAccess(ctx, patientID)
}
