package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents an account role.
type Role string

const (
	// RoleAdmin is a club account: it owns posts and decides the club's applications.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin is the platform administrator who provisions and removes club accounts.
	RoleSuperAdmin Role = "super_admin"
)

// User is an authentication principal. Club accounts double as the owner of
// their posts and applications; the super admin owns nothing but may act on
// any resource.
type User struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	Password           string    `json:"-"`
	Name               string    `json:"name"`
	Role               Role      `json:"role"`
	MustChangePassword bool      `json:"must_change_password"`
	Description        string    `json:"description"`
	LogoURL            string    `json:"logo_url"`
	BannerURL          string    `json:"banner_url"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	Role               Role      `json:"role"`
	MustChangePassword bool      `json:"must_change_password"`
	Description        string    `json:"description"`
	LogoURL            string    `json:"logo_url"`
	BannerURL          string    `json:"banner_url"`
	CreatedAt          time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Role:               u.Role,
		MustChangePassword: u.MustChangePassword,
		Description:        u.Description,
		LogoURL:            u.LogoURL,
		BannerURL:          u.BannerURL,
		CreatedAt:          u.CreatedAt,
	}
}
