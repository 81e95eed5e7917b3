package service

import "eduplatform/internal/models"

// RolePolicy is everything that differs between the admin, student and
// tutor authentication flows.
type RolePolicy struct {
	Role models.Role

	// VerifiedOnRegister marks new accounts as e-mail verified immediately.
	VerifiedOnRegister bool

	EmailVerification bool
	PasswordReset     bool
	ProfileUpdate     bool
}

var (
	AdminPolicy = RolePolicy{
		Role:               models.RoleAdmin,
		VerifiedOnRegister: true,
	}
	StudentPolicy = RolePolicy{
		Role:              models.RoleStudent,
		EmailVerification: true,
		PasswordReset:     true,
	}
	TutorPolicy = RolePolicy{
		Role:               models.RoleTutor,
		VerifiedOnRegister: true,
		ProfileUpdate:      true,
	}
)

func Policies() []RolePolicy {
	return []RolePolicy{AdminPolicy, StudentPolicy, TutorPolicy}
}

func PolicyFor(role models.Role) (RolePolicy, bool) {
	for _, p := range Policies() {
		if p.Role == role {
			return p, true
		}
	}
	return RolePolicy{}, false
}
