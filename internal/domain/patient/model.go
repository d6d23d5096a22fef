package patient

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID          uuid.UUID   `json:"id"`
	FullnameEn  string      `json:"fullname_en"`
	FullnameAr  string      `json:"fullname_ar"`
	PhoneNumber string      `json:"phone_number"`
	CreatedByID *uuid.UUID  `json:"created_by_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	ClinicIDs   []uuid.UUID `json:"clinic_ids"`
	CenterIDs   []uuid.UUID `json:"center_ids"`
}

// Summary is one search hit.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	FullnameEn  string    `json:"fullname_en"`
	FullnameAr  string    `json:"fullname_ar"`
	PhoneNumber string    `json:"phone_number"`
}

// Access is an explicit per-patient grant to one doctor.
type Access struct {
	ID          uuid.UUID  `json:"id"`
	DoctorID    uuid.UUID  `json:"doctor_id"`
	PatientID   uuid.UUID  `json:"patient_id"`
	GrantedByID *uuid.UUID `json:"granted_by_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CreateRequest struct {
	Fullname   string `json:"fullname" validate:"required,min=3,max=255"`
	FullnameAr string `json:"fullname_ar" validate:"required,min=3,max=255"`
	Phone      string `json:"phone" validate:"required,phone"`
}

type GrantRequest struct {
	DoctorID string `json:"doctor_id" validate:"required,uuid"`
}
