package account

import (
	"time"

	"github.com/learnhub/learnhub/internal/auth"
)

// Registration types.
const (
	RegistrationManual   = "manual"
	RegistrationGoogle   = "google"
	RegistrationFacebook = "facebook"
)

// Account is the unified record behind both student and admin principals.
// The role field is the only discriminator between the two kinds.
type Account struct {
	ID               string
	FullName         string
	Email            string
	Phone            string
	PasswordHash     string
	Role             auth.Role
	RegistrationType string
	EmailVerified    bool
	OTPCode          string
	OTPExpire        time.Time
	Status           string
	ProfileImage     string
	GoogleID         string
	FacebookID       string
	Permissions      []string
	ActiveCourseIDs  []string
	LastLogin        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	IsDeleted        bool
}

// Public is the client-facing projection without credential material.
type Public struct {
	ID               string    `json:"id"`
	FullName         string    `json:"fullName"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Role             auth.Role `json:"role"`
	RegistrationType string    `json:"registrationType"`
	EmailVerified    bool      `json:"emailVerified"`
	Status           string    `json:"status"`
	ProfileImage     string    `json:"profileImage,omitempty"`
	Permissions      []string  `json:"permissions,omitempty"`
	ActiveCourseIDs  []string  `json:"activeCourses,omitempty"`
	LastLogin        time.Time `json:"lastLogin,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ToPublic strips password and OTP material from an account.
func (a *Account) ToPublic() Public {
	return Public{
		ID:               a.ID,
		FullName:         a.FullName,
		Email:            a.Email,
		Phone:            a.Phone,
		Role:             a.Role,
		RegistrationType: a.RegistrationType,
		EmailVerified:    a.EmailVerified,
		Status:           a.Status,
		ProfileImage:     a.ProfileImage,
		Permissions:      a.Permissions,
		ActiveCourseIDs:  a.ActiveCourseIDs,
		LastLogin:        a.LastLogin,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}
