package facility

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
)

var ErrNotFound = errors.New("facility not found")

type Store interface {
	// SuspendExpired flips every ACTIVE facility whose subscription ended
	// before now to SUSPENDED, in one transaction.
	SuspendExpired(ctx context.Context, now time.Time) (clinics, centers int64, err error)
	UpdateClinicStatus(ctx context.Context, id uuid.UUID, status account.Status, endsAt *time.Time) (*Facility, error)
	UpdateCenterStatus(ctx context.Context, id uuid.UUID, status account.Status, endsAt *time.Time) (*Facility, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]Facility, int, error)
}
