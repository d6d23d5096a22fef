package treatment

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Groups(ctx context.Context) ([]Group, error) {
	return s.repo.ListGroups(ctx)
}

func (s *Service) Catalog(ctx context.Context) ([]Group, error) {
	return s.repo.Catalog(ctx)
}

func (s *Service) TreatmentsInGroup(ctx context.Context, groupID uuid.UUID) ([]Treatment, error) {
	return s.repo.ListByGroup(ctx, groupID)
}

func (s *Service) CreateGroup(ctx context.Context, req *CreateGroupRequest) (*Group, error) {
	g := &Group{
		NameEn: strings.TrimSpace(req.NameEn),
		NameAr: strings.TrimSpace(req.NameAr),
		Color:  strings.ToLower(req.Color),
	}
	if g.Color == "" {
		g.Color = DefaultColor
	}
	if err := s.repo.CreateGroup(ctx, g); err != nil {
		return nil, err
	}
	g.Treatments = []Treatment{}
	return g, nil
}

func (s *Service) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteGroup(ctx, id)
}

func (s *Service) CreateTreatment(ctx context.Context, req *CreateTreatmentRequest) (*Treatment, error) {
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		return nil, ErrGroupNotFound
	}
	t := &Treatment{
		GroupID:   groupID,
		NameEn:    strings.TrimSpace(req.NameEn),
		NameAr:    strings.TrimSpace(req.NameAr),
		BasePrice: req.BasePrice,
	}
	if err := s.repo.CreateTreatment(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) DeleteTreatment(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTreatment(ctx, id)
}
