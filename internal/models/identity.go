package models

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStudent, RoleTutor:
		return true
	}
	return false
}

// Identity is an account of exactly one role. PasswordHash is nil for
// accounts created through a federated provider.
type Identity struct {
	ID             string
	Email          string
	PasswordHash   *string
	FirstName      string
	LastName       string
	Role           Role
	Active         bool
	EmailVerified  bool
	LastLoginAt    *time.Time
	Bio            *string
	PhoneNumber    *string
	ProfilePicture *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IdentitySummary is the public projection returned to clients.
type IdentitySummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
}

func (i Identity) Summary() IdentitySummary {
	return IdentitySummary{
		ID:        i.ID,
		Email:     i.Email,
		FirstName: i.FirstName,
		LastName:  i.LastName,
		Role:      i.Role,
	}
}

type Profile struct {
	IdentitySummary
	EmailVerified  bool       `json:"emailVerified"`
	Bio            *string    `json:"bio,omitempty"`
	PhoneNumber    *string    `json:"phoneNumber,omitempty"`
	ProfilePicture *string    `json:"profilePicture,omitempty"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (i Identity) Profile() Profile {
	return Profile{
		IdentitySummary: i.Summary(),
		EmailVerified:   i.EmailVerified,
		Bio:             i.Bio,
		PhoneNumber:     i.PhoneNumber,
		ProfilePicture:  i.ProfilePicture,
		LastLoginAt:     i.LastLoginAt,
		CreatedAt:       i.CreatedAt,
	}
}

// ProfileUpdate carries the self-service editable fields. Nil leaves a field unchanged.
type ProfileUpdate struct {
	FirstName      *string
	LastName       *string
	Bio            *string
	PhoneNumber    *string
	ProfilePicture *string
}
