package treatment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("treatment not found")
	ErrGroupNotFound = errors.New("treatment group not found")
	ErrDuplicateName = errors.New("a treatment group with this name already exists")
)

type Repository interface {
	// ListGroups returns groups ordered by English name, without treatments.
	ListGroups(ctx context.Context) ([]Group, error)
	// Catalog returns every group with its treatments, both ordered by
	// English name, read from one snapshot.
	Catalog(ctx context.Context) ([]Group, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]Treatment, error)
	CreateGroup(ctx context.Context, g *Group) error
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	CreateTreatment(ctx context.Context, t *Treatment) error
	DeleteTreatment(ctx context.Context, id uuid.UUID) error
}
