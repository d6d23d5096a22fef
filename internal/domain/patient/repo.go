package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Search returns at most SearchLimit matches, newest first. A predicate
	// with None() true yields an empty result without touching the store.
	Search(ctx context.Context, p Predicate) ([]Summary, error)
	// CreateLinked inserts p and links it to every target in one transaction.
	CreateLinked(ctx context.Context, p *Patient, t LinkTargets) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// CanView reports whether patientID is linked to one of the given
	// facilities or granted to doctorID.
	CanView(ctx context.Context, patientID uuid.UUID, t LinkTargets, doctorID uuid.UUID) (bool, error)
	// CanManage reports whether patientID is linked to one of the given
	// facilities.
	CanManage(ctx context.Context, patientID uuid.UUID, t LinkTargets) (bool, error)
	// GrantAccess is idempotent: an existing grant is returned unchanged.
	GrantAccess(ctx context.Context, a *Access) error
	RevokeAccess(ctx context.Context, patientID, doctorID uuid.UUID) error
	ListAccess(ctx context.Context, patientID uuid.UUID) ([]Access, error)
}
