package facility

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
)

type Kind string

const (
	KindClinic Kind = "clinic"
	KindCenter Kind = "medical_center"
)

func (k Kind) Valid() bool {
	return k == KindClinic || k == KindCenter
}

// Facility is a clinic or medical center as seen by platform staff.
type Facility struct {
	ID                 uuid.UUID      `json:"id"`
	Kind               Kind           `json:"kind"`
	Name               string         `json:"name"`
	NameAr             string         `json:"name_ar"`
	Status             account.Status `json:"status"`
	SubscriptionEndsAt *time.Time     `json:"subscription_ends_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// SweepResult is the body returned by the suspension cron.
type SweepResult struct {
	Success          bool      `json:"success"`
	SuspendedClinics int64     `json:"suspended_clinics"`
	SuspendedCenters int64     `json:"suspended_centers"`
	Timestamp        time.Time `json:"timestamp"`
}

type StatusUpdate struct {
	Status             string     `json:"status" validate:"required,oneof=PENDING ACTIVE SUSPENDED"`
	SubscriptionEndsAt *time.Time `json:"subscription_ends_at"`
}

// ListFilter narrows the admin facility listing. Empty fields match all.
type ListFilter struct {
	Kind   Kind
	Status account.Status
	Name   string
}
