package account

// IdentityType is the single primary role used for routing and display.
type IdentityType string

const (
	IdentitySuperAdmin         IdentityType = "SUPER_ADMIN"
	IdentitySupportAgent       IdentityType = "SUPPORT_AGENT"
	IdentityClinicOwner        IdentityType = "CLINIC_OWNER"
	IdentityMedicalCenterOwner IdentityType = "MEDICAL_CENTER_OWNER"
	IdentityDoctor             IdentityType = "DOCTOR"
	IdentityVisitor            IdentityType = "VISITOR"
	IdentityUser               IdentityType = "USER"
)

// Classify picks the highest-priority identity for u. Memberships whose
// facility is missing never count.
func Classify(u *AppUser) IdentityType {
	if u == nil {
		return IdentityUser
	}

	switch u.SystemRole {
	case SystemRoleSuperAdmin:
		return IdentitySuperAdmin
	case SystemRoleSupportAgent:
		return IdentitySupportAgent
	}

	if u.hasClinicRole(ClinicRoleOwner) {
		return IdentityClinicOwner
	}
	if u.hasCenterRole(CenterRoleOwner) {
		return IdentityMedicalCenterOwner
	}
	if u.hasClinicRole(ClinicRoleDoctorEmployee) || u.hasCenterRole(CenterRoleDoctor) {
		return IdentityDoctor
	}
	if u.hasClinicRole(ClinicRoleVisitingDoctor) {
		return IdentityVisitor
	}
	return IdentityUser
}

// LandingPath is where login sends an identity.
func LandingPath(t IdentityType) string {
	switch t {
	case IdentitySuperAdmin, IdentitySupportAgent:
		return "/admin"
	default:
		return "/dashboard"
	}
}

func (u *AppUser) hasClinicRole(role ClinicRole) bool {
	for _, m := range u.ClinicMemberships {
		if m.Clinic.Present() && m.Role == role {
			return true
		}
	}
	return false
}

func (u *AppUser) hasCenterRole(role CenterRole) bool {
	for _, m := range u.CenterMemberships {
		if m.Center.Present() && m.Role == role {
			return true
		}
	}
	return false
}
