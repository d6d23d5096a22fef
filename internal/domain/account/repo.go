package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NewFacility is a clinic or medical center created during signup.
type NewFacility struct {
	ID                 uuid.UUID
	Name               string
	NameAr             string
	Status             Status
	SubscriptionEndsAt *time.Time
}

// ClinicAccount is the owner and clinic written by a clinic signup.
type ClinicAccount struct {
	Owner  *User
	Clinic NewFacility
}

// CenterAccount is the owner, center and doctors written by a medical
// center signup.
type CenterAccount struct {
	Owner   *User
	Center  NewFacility
	Doctors []*User
}

type Repository interface {
	// FindBySessionToken returns (nil, nil) when no user holds token.
	FindBySessionToken(ctx context.Context, token string) (*AppUser, error)
	FindByID(ctx context.Context, id uuid.UUID) (*AppUser, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	RotateSessionToken(ctx context.Context, userID uuid.UUID, token string) error
	// ClearSessionToken drops token from whichever user holds it.
	ClearSessionToken(ctx context.Context, token string) error
	CreateUser(ctx context.Context, u *User) error
	CreateClinicAccount(ctx context.Context, a *ClinicAccount) error
	CreateCenterAccount(ctx context.Context, a *CenterAccount) error
}
