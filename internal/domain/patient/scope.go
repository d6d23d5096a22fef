package patient

import (
	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
	"github.com/clinicdesk/clinicdesk/pkg/phone"
)

// SearchLimit caps every patient search.
const SearchLimit = 50

// LinkTargets are the facilities a new patient is linked to.
type LinkTargets struct {
	ClinicIDs []uuid.UUID
	CenterIDs []uuid.UUID
}

func (t LinkTargets) Empty() bool {
	return len(t.ClinicIDs) == 0 && len(t.CenterIDs) == 0
}

// ResolveLinkTargets returns every full-access facility of u, de-duplicated,
// in membership order. Visiting doctors, assistants and nurses contribute
// nothing.
func ResolveLinkTargets(u *account.AppUser) LinkTargets {
	t := LinkTargets{ClinicIDs: []uuid.UUID{}, CenterIDs: []uuid.UUID{}}
	if u == nil {
		return t
	}

	clinics := make(map[uuid.UUID]bool)
	for _, m := range u.ClinicMemberships {
		if m.Clinic.Present() && m.Role.FullAccess() && !clinics[m.Clinic.ID] {
			clinics[m.Clinic.ID] = true
			t.ClinicIDs = append(t.ClinicIDs, m.Clinic.ID)
		}
	}
	centers := make(map[uuid.UUID]bool)
	for _, m := range u.CenterMemberships {
		if m.Center.Present() && m.Role.FullAccess() && !centers[m.Center.ID] {
			centers[m.Center.ID] = true
			t.CenterIDs = append(t.CenterIDs, m.Center.ID)
		}
	}
	return t
}

// Predicate is the row-level filter for a patient search: the phone
// fragment must match AND the patient must be linked to one of the
// facilities or carry a grant for GrantDoctorID.
type Predicate struct {
	Phone         string
	ClinicIDs     []uuid.UUID
	CenterIDs     []uuid.UUID
	GrantDoctorID uuid.UUID
}

// None reports whether the predicate can match nothing at all.
func (p Predicate) None() bool {
	return p.Phone == "" || p.GrantDoctorID == uuid.Nil
}

// BuildSearchPredicate derives the search filter for u from the raw query.
func BuildSearchPredicate(u *account.AppUser, query string) Predicate {
	if u == nil {
		return Predicate{}
	}
	q := phone.Sanitize(query)
	if phone.Digits(q) == 0 {
		return Predicate{}
	}
	t := ResolveLinkTargets(u)
	return Predicate{
		Phone:         q,
		ClinicIDs:     t.ClinicIDs,
		CenterIDs:     t.CenterIDs,
		GrantDoctorID: u.ID,
	}
}
