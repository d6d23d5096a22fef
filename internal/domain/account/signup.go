package account

import (
	"github.com/go-playground/validator/v10"
)

// Specializations accepted at signup.
var Specializations = []string{
	"General Dentist",
	"Orthodontist",
	"Periodontist",
	"Prosthodontist",
	"Endodontist",
	"Oral Surgeon",
	"Pediatric Dentist",
	"Other",
}

// ValidSpecialization is registered with the request validator under the
// "specialization" tag.
func ValidSpecialization(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	for _, s := range Specializations {
		if s == v {
			return true
		}
	}
	return false
}

// PersonInput is one doctor listed on a medical center signup.
type PersonInput struct {
	Name                 string `json:"name" validate:"required,min=2,max=255"`
	NameAr               string `json:"name_ar" validate:"required,min=2,max=255"`
	Phone                string `json:"phone" validate:"required,phone"`
	Specialization       string `json:"specialization" validate:"required,specialization"`
	Password             string `json:"password" validate:"required,min=8,max=100"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type ClinicSignupRequest struct {
	Name                 string `json:"name" form:"name" validate:"required,min=2,max=255"`
	NameAr               string `json:"name_ar" form:"name_ar" validate:"required,min=2,max=255"`
	Phone                string `json:"phone" form:"phone" validate:"required,phone"`
	Specialization       string `json:"specialization" form:"specialization" validate:"required,specialization"`
	Password             string `json:"password" form:"password" validate:"required,min=8,max=100"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation" validate:"required,eqfield=Password"`
	ClinicName           string `json:"clinic_name" form:"clinic_name" validate:"required,min=2,max=255"`
	ClinicNameAr         string `json:"clinic_name_ar" form:"clinic_name_ar" validate:"omitempty,min=2,max=255"`
}

type CenterSignupRequest struct {
	Name                 string        `json:"name" validate:"required,min=2,max=255"`
	NameAr               string        `json:"name_ar" validate:"required,min=2,max=255"`
	Phone                string        `json:"phone" validate:"required,phone"`
	Specialization       string        `json:"specialization" validate:"required,specialization"`
	Password             string        `json:"password" validate:"required,min=8,max=100"`
	PasswordConfirmation string        `json:"password_confirmation" validate:"required,eqfield=Password"`
	CenterName           string        `json:"center_name" validate:"required,min=2,max=255"`
	CenterNameAr         string        `json:"center_name_ar" validate:"required,min=2,max=255"`
	Doctors              []PersonInput `json:"doctors" validate:"required,min=2,dive"`
}

type LoginRequest struct {
	Phone    string `json:"phone" form:"phone" validate:"required,min=10"`
	Password string `json:"password" form:"password" validate:"required"`
}

// SignupResult is returned to the client after a successful signup.
type SignupResult struct {
	UserID     string `json:"user_id"`
	FacilityID string `json:"facility_id"`
	Redirect   string `json:"redirect"`
}
