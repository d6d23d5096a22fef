package account

import (
	"time"

	"github.com/google/uuid"
)

type SystemRole string

const (
	SystemRoleSuperAdmin   SystemRole = "SUPER_ADMIN"
	SystemRoleSupportAgent SystemRole = "SUPPORT_AGENT"
	SystemRoleCustomer     SystemRole = "CUSTOMER"
)

func (r SystemRole) Valid() bool {
	switch r {
	case SystemRoleSuperAdmin, SystemRoleSupportAgent, SystemRoleCustomer:
		return true
	}
	return false
}

// Staff reports whether r is a platform operator role that bypasses facility
// gating.
func (r SystemRole) Staff() bool {
	return r == SystemRoleSuperAdmin || r == SystemRoleSupportAgent
}

// Status is shared by user accounts and facility subscriptions.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended:
		return true
	}
	return false
}

type ClinicRole string

const (
	ClinicRoleOwner          ClinicRole = "OWNER"
	ClinicRoleDoctorEmployee ClinicRole = "DOCTOR_EMPLOYEE"
	ClinicRoleAssistant      ClinicRole = "ASSISTANT"
	ClinicRoleVisitingDoctor ClinicRole = "VISITING_DOCTOR"
)

// Working roles are subject to the subscription gate.
func (r ClinicRole) Working() bool {
	return r == ClinicRoleOwner || r == ClinicRoleDoctorEmployee || r == ClinicRoleAssistant
}

// FullAccess roles see every patient linked to the clinic.
func (r ClinicRole) FullAccess() bool {
	return r == ClinicRoleOwner || r == ClinicRoleDoctorEmployee
}

type CenterRole string

const (
	CenterRoleOwner  CenterRole = "OWNER"
	CenterRoleDoctor CenterRole = "DOCTOR"
	CenterRoleNurse  CenterRole = "NURSE"
)

func (r CenterRole) Working() bool {
	return r == CenterRoleOwner || r == CenterRoleDoctor || r == CenterRoleNurse
}

func (r CenterRole) FullAccess() bool {
	return r == CenterRoleOwner || r == CenterRoleDoctor
}

// Facility is the slice of a clinic or medical center carried on a membership.
type Facility struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Status Status    `json:"status"`
}

// Present is false for a membership whose facility row no longer exists.
func (f Facility) Present() bool {
	return f.ID != uuid.Nil
}

type ClinicMembership struct {
	ID        uuid.UUID  `json:"id"`
	Role      ClinicRole `json:"role"`
	Clinic    Facility   `json:"clinic"`
	CreatedAt time.Time  `json:"created_at"`
}

type CenterMembership struct {
	ID        uuid.UUID  `json:"id"`
	Role      CenterRole `json:"role"`
	Center    Facility   `json:"medical_center"`
	CreatedAt time.Time  `json:"created_at"`
}

// User is the credential row.
type User struct {
	ID             uuid.UUID  `json:"id"`
	NameEn         string     `json:"name_en"`
	NameAr         string     `json:"name_ar"`
	Specialization *string    `json:"specialization,omitempty"`
	PhoneNumber    string     `json:"phone_number"`
	PasswordHash   string     `json:"-"`
	SystemRole     SystemRole `json:"system_role"`
	Status         Status     `json:"status"`
	SessionToken   *string    `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// AppUser is the identity attached to a request: the user without secrets
// plus both membership lists in creation order. It is rebuilt per request
// and must not be modified after hydration.
type AppUser struct {
	ID                uuid.UUID          `json:"id"`
	NameEn            string             `json:"name_en"`
	NameAr            string             `json:"name_ar"`
	Specialization    *string            `json:"specialization,omitempty"`
	PhoneNumber       string             `json:"phone_number"`
	SystemRole        SystemRole         `json:"system_role"`
	Status            Status             `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	ClinicMemberships []ClinicMembership `json:"clinic_memberships"`
	CenterMemberships []CenterMembership `json:"center_memberships"`
}

func newAppUser(u *User) *AppUser {
	return &AppUser{
		ID:                u.ID,
		NameEn:            u.NameEn,
		NameAr:            u.NameAr,
		Specialization:    u.Specialization,
		PhoneNumber:       u.PhoneNumber,
		SystemRole:        u.SystemRole,
		Status:            u.Status,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
		ClinicMemberships: []ClinicMembership{},
		CenterMemberships: []CenterMembership{},
	}
}

// WorkingClinic returns the first clinic membership with a working role.
func (u *AppUser) WorkingClinic() (ClinicMembership, bool) {
	for _, m := range u.ClinicMemberships {
		if m.Clinic.Present() && m.Role.Working() {
			return m, true
		}
	}
	return ClinicMembership{}, false
}

// WorkingCenter returns the first center membership with a working role.
func (u *AppUser) WorkingCenter() (CenterMembership, bool) {
	for _, m := range u.CenterMemberships {
		if m.Center.Present() && m.Role.Working() {
			return m, true
		}
	}
	return CenterMembership{}, false
}

// HasActiveWorkingFacility reports whether any working membership points at
// an ACTIVE facility.
func (u *AppUser) HasActiveWorkingFacility() bool {
	for _, m := range u.ClinicMemberships {
		if m.Clinic.Present() && m.Role.Working() && m.Clinic.Status == StatusActive {
			return true
		}
	}
	for _, m := range u.CenterMemberships {
		if m.Center.Present() && m.Role.Working() && m.Center.Status == StatusActive {
			return true
		}
	}
	return false
}
