package patient

import "errors"

var (
	ErrNotFound         = errors.New("patient not found")
	ErrNoFacilityAccess = errors.New("no facility to register the patient in")
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrForbidden        = errors.New("patient is not managed by this user")
	ErrGrantNotFound    = errors.New("grant not found")
)
